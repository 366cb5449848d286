package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tigra-astronomy/skycondition/internal/domain"
)

func TestStatusFile_PublishAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "status.json")
	f := NewStatusFile(path)

	now := time.Date(2026, 10, 18, 21, 0, 0, 0, time.UTC)
	want := domain.Snapshot{
		Condition:   3,
		Available:   true,
		Serving:     true,
		Accepted:    4,
		Rejected:    1,
		Connections: 2,
		UpdatedAt:   now,
	}
	if err := f.Publish(context.Background(), want); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got, err := ReadStatusFile(f.Path())
	if err != nil {
		t.Fatalf("ReadStatusFile: %v", err)
	}
	if !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, want.UpdatedAt)
	}
	got.UpdatedAt = want.UpdatedAt
	if got != want {
		t.Errorf("snapshot = %+v, want %+v", got, want)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestStatusFile_OverwritesPrevious(t *testing.T) {
	f := NewStatusFile(filepath.Join(t.TempDir(), "status.json"))
	ctx := context.Background()

	for c := domain.MinCondition; c <= domain.MaxCondition; c++ {
		if err := f.Publish(ctx, domain.Snapshot{Condition: c, Available: true}); err != nil {
			t.Fatalf("Publish(%d): %v", c, err)
		}
	}

	got, err := ReadStatusFile(f.Path())
	if err != nil {
		t.Fatalf("ReadStatusFile: %v", err)
	}
	if got.Condition != domain.MaxCondition {
		t.Errorf("Condition = %d, want %d", got.Condition, domain.MaxCondition)
	}
}

func TestStatusFile_CanceledContext(t *testing.T) {
	f := NewStatusFile(filepath.Join(t.TempDir(), "status.json"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.Publish(ctx, domain.Snapshot{}); err == nil {
		t.Error("expected error for canceled context")
	}
	if _, err := os.Stat(f.Path()); !os.IsNotExist(err) {
		t.Error("status file should not be written after cancellation")
	}
}

func TestReadStatusFile_Missing(t *testing.T) {
	_, err := ReadStatusFile(filepath.Join(t.TempDir(), "absent.json"))
	if !os.IsNotExist(err) {
		t.Errorf("error = %v, want not-exist", err)
	}
}
