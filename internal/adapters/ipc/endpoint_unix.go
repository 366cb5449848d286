//go:build !windows

package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tigra-astronomy/skycondition/internal/domain"
)

// Address resolves an endpoint name to a socket path.
// Names containing a path separator are used verbatim; bare names live in
// $XDG_RUNTIME_DIR, falling back to the system temp directory.
func Address(name string) string {
	if strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, name+".sock")
}

// UnixEndpoint listens on a Unix domain socket path.
type UnixEndpoint struct {
	path string

	mu   sync.Mutex
	lock *os.File // held from the first successful Listen until Close
}

// NewEndpoint creates the platform endpoint for name.
func NewEndpoint(name string) *UnixEndpoint {
	return &UnixEndpoint{path: Address(name)}
}

// Address returns the socket path.
func (u *UnixEndpoint) Address() string {
	return u.path
}

// Listen creates a fresh socket. The first call takes an exclusive lock on
// <path>.lock that is kept until Close; if another process holds it,
// ErrEndpointInUse is returned and the owner's socket is left untouched.
// With the lock held any existing socket file is stale and is removed.
func (u *UnixEndpoint) Listen(ctx context.Context) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(u.path), 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEndpointCreate, err)
	}
	if err := u.acquire(); err != nil {
		return nil, err
	}

	if err := os.Remove(u.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: remove stale socket: %v", domain.ErrEndpointCreate, err)
	}

	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "unix", u.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEndpointCreate, err)
	}
	_ = os.Chmod(u.path, 0o600)
	return l, nil
}

func (u *UnixEndpoint) acquire() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.lock != nil {
		return nil
	}
	f, err := lockFile(u.path + ".lock")
	switch {
	case errors.Is(err, errLocked):
		return fmt.Errorf("%w: %s", domain.ErrEndpointInUse, u.path)
	case err != nil:
		return fmt.Errorf("%w: lock: %v", domain.ErrEndpointCreate, err)
	}
	u.lock = f
	return nil
}

// Close releases the name lock so another server may take the endpoint.
// The lock file itself is left in place.
func (u *UnixEndpoint) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.lock == nil {
		return nil
	}
	err := unlockFile(u.lock)
	u.lock = nil
	return err
}

// Peer describes the connected process using OS credentials where supported.
func (u *UnixEndpoint) Peer(conn net.Conn) string {
	return peerCredentials(conn)
}

// Dial connects to the endpoint at address.
func Dial(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", address)
}
