package app

import (
	"context"
	"testing"
	"time"
)

func TestBackoff_GrowsAndCaps(t *testing.T) {
	b := newBackoff(time.Millisecond, 4*time.Millisecond)
	ctx := context.Background()

	want := []time.Duration{2 * time.Millisecond, 4 * time.Millisecond, 4 * time.Millisecond}
	for i, w := range want {
		if !b.Wait(ctx) {
			t.Fatalf("Wait %d returned false", i)
		}
		if b.Current() != w {
			t.Errorf("after wait %d Current() = %v, want %v", i, b.Current(), w)
		}
	}

	b.Reset()
	if b.Current() != time.Millisecond {
		t.Errorf("Current() after Reset = %v, want 1ms", b.Current())
	}
}

func TestBackoff_CanceledContext(t *testing.T) {
	b := newBackoff(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if b.Wait(ctx) {
		t.Error("Wait should return false for a canceled context")
	}
	if time.Since(start) > time.Second {
		t.Error("Wait did not return promptly")
	}
	if b.Current() != time.Hour {
		t.Errorf("canceled wait must not grow the delay, got %v", b.Current())
	}
}

func TestBackoff_Defaults(t *testing.T) {
	b := newBackoff(0, 0)
	if b.Current() != DefaultBackoffInitial {
		t.Errorf("Current() = %v, want %v", b.Current(), DefaultBackoffInitial)
	}
	if b.max != DefaultBackoffInitial {
		t.Errorf("max = %v, want clamp to initial", b.max)
	}
}
