package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/tigra-astronomy/skycondition/internal/domain"
)

// StatusFile implements ports.StatePublisher using a JSON file.
// Consumers read the file; the server never loads it back.
type StatusFile struct {
	path string

	// serializes temp-file reuse between concurrent publishers
	mu sync.Mutex
}

// NewStatusFile creates a StatusFile writing to path.
func NewStatusFile(path string) *StatusFile {
	return &StatusFile{path: path}
}

// Publish writes the snapshot atomically.
// Uses atomic write (write to temp file, then rename) so readers never see a torn file.
func (f *StatusFile) Publish(ctx context.Context, snap domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, f.path)
}

// Path returns the full path to the status file.
func (f *StatusFile) Path() string {
	return f.path
}

// ReadStatusFile loads a snapshot previously written by Publish.
func ReadStatusFile(path string) (domain.Snapshot, error) {
	var snap domain.Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, err
	}
	return snap, nil
}
