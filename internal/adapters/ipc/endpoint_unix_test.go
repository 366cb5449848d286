//go:build unix

package ipc

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/tigra-astronomy/skycondition/internal/domain"
)

// socketDir returns a short directory; Unix socket paths are limited to ~104 bytes.
func socketDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "sky")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestAddress(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	if got := Address(DefaultName); got != "/run/user/1000/tigraSkyQuality.sock" {
		t.Errorf("Address(default) = %q", got)
	}
	if got := Address("/tmp/custom.sock"); got != "/tmp/custom.sock" {
		t.Errorf("Address(path) = %q, want verbatim", got)
	}

	t.Setenv("XDG_RUNTIME_DIR", "")
	if got := Address("x"); got != filepath.Join(os.TempDir(), "x.sock") {
		t.Errorf("Address fallback = %q", got)
	}
}

func TestUnixEndpoint_ListenAcceptDial(t *testing.T) {
	path := filepath.Join(socketDir(t), "s.sock")
	ep := NewEndpoint(path)
	defer ep.Close()
	ctx := context.Background()

	l, err := ep.Listen(ctx)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer l.Close()

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat socket: %v", err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Errorf("socket mode = %v, want 0600", fi.Mode().Perm())
	}

	accepted := make(chan string, 1)
	go func() {
		c, err := l.Accept()
		if err != nil {
			accepted <- "error: " + err.Error()
			return
		}
		defer c.Close()
		accepted <- ep.Peer(c)
	}()

	c, err := Dial(ctx, ep.Address())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	peer := <-accepted
	if strings.HasPrefix(peer, "error") {
		t.Fatal(peer)
	}
	if runtime.GOOS == "linux" && !strings.Contains(peer, "pid=") {
		t.Errorf("Peer = %q, want pid on linux", peer)
	}
}

func TestUnixEndpoint_RemovesStaleSocket(t *testing.T) {
	path := filepath.Join(socketDir(t), "s.sock")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("create stale file: %v", err)
	}

	// A lock file left by a dead process is not held and must not block.
	if err := os.WriteFile(path+".lock", nil, 0o600); err != nil {
		t.Fatalf("create stale lock: %v", err)
	}

	ep := NewEndpoint(path)
	defer ep.Close()
	l, err := ep.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen over stale socket: %v", err)
	}
	l.Close()
}

func TestUnixEndpoint_NameInUseLeavesOwnerAlone(t *testing.T) {
	path := filepath.Join(socketDir(t), "s.sock")
	owner := NewEndpoint(path)
	defer owner.Close()

	first, err := owner.Listen(context.Background())
	if err != nil {
		t.Fatalf("owner Listen: %v", err)
	}
	defer first.Close()

	second := NewEndpoint(path)
	for i := 0; i < 3; i++ {
		if _, err := second.Listen(context.Background()); !errors.Is(err, domain.ErrEndpointInUse) {
			t.Fatalf("second Listen error = %v, want ErrEndpointInUse", err)
		}
	}

	// The owner's socket must not have seen a connection or lost its file.
	if err := first.(*net.UnixListener).SetDeadline(time.Now().Add(50 * time.Millisecond)); err != nil {
		t.Fatalf("SetDeadline: %v", err)
	}
	if c, err := first.Accept(); err == nil {
		c.Close()
		t.Error("owner accepted a connection from the second endpoint")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("owner socket file: %v", err)
	}
}

func TestUnixEndpoint_CloseReleasesName(t *testing.T) {
	path := filepath.Join(socketDir(t), "s.sock")
	owner := NewEndpoint(path)

	l, err := owner.Listen(context.Background())
	if err != nil {
		t.Fatalf("owner Listen: %v", err)
	}
	l.Close()
	if err := owner.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	next := NewEndpoint(path)
	defer next.Close()
	l, err = next.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen after owner Close: %v", err)
	}
	l.Close()
}
