//go:build !windows

package skycondition_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tigra-astronomy/skycondition"
	"github.com/tigra-astronomy/skycondition/pkg/skyclient"
	"github.com/tigra-astronomy/skycondition/pkg/skyserver"
)

type conditionRecorder struct {
	skyserver.BaseEventHandler
	accepted chan int
}

func (r *conditionRecorder) OnConditionAccepted(e skyserver.ConditionEvent) {
	r.accepted <- e.Current
}

func TestRun_ServesUntilCanceled(t *testing.T) {
	dir, err := os.MkdirTemp("", "sky")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	defer os.RemoveAll(dir)

	cfg := skycondition.DefaultConfig()
	cfg.EndpointName = filepath.Join(dir, "run.sock")

	rec := &conditionRecorder{accepted: make(chan int, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- skycondition.Run(ctx, cfg, skyserver.WithEventHandler(rec)) }()

	var c *skyclient.Client
	deadline := time.Now().Add(2 * time.Second)
	for {
		c, err = skyclient.Dial(context.Background(), cfg.EndpointName)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Dial: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	defer c.Close()

	if err := c.Send(2); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case v := <-rec.accepted:
		if v != 2 {
			t.Errorf("accepted %d, want 2", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("update not accepted")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := skycondition.DefaultConfig()
	cfg.MaxLineBytes = -1

	err := skycondition.Run(context.Background(), cfg)
	if !errors.Is(err, skyserver.ErrInvalidConfig) {
		t.Errorf("Run() = %v, want ErrInvalidConfig", err)
	}
}
