package app

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tigra-astronomy/skycondition/internal/domain"
	"github.com/tigra-astronomy/skycondition/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// observation is what a reader would see right after a line was handled.
type observation struct {
	accepted  bool
	condition domain.Condition
	available bool
	err       error
}

// recordingEmitter captures processor and listener events.
type recordingEmitter struct {
	state *SharedState

	mu           sync.Mutex
	observations []observation
	connected    []string
	disconnected []error
}

func (r *recordingEmitter) OnConditionAccepted(previous, current domain.Condition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observations = append(r.observations, observation{true, r.state.Condition(), r.state.Available(), nil})
}

func (r *recordingEmitter) OnLineRejected(line string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observations = append(r.observations, observation{false, r.state.Condition(), r.state.Available(), err})
}

func (r *recordingEmitter) OnClientConnected(peer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected = append(r.connected, peer)
}

func (r *recordingEmitter) OnClientDisconnected(peer string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnected = append(r.disconnected, err)
}

func (r *recordingEmitter) Observations() []observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]observation{}, r.observations...)
}

func (r *recordingEmitter) Counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connected), len(r.disconnected)
}

// memPublisher records published snapshots.
type memPublisher struct {
	mu    sync.Mutex
	snaps []domain.Snapshot
}

func (m *memPublisher) Publish(ctx context.Context, snap domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps = append(m.snaps, snap)
	return nil
}

func (m *memPublisher) Last() (domain.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snaps) == 0 {
		return domain.Snapshot{}, false
	}
	return m.snaps[len(m.snaps)-1], true
}

// pipeAddr is the net.Addr of an in-memory listener.
type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "memory" }

// chanListener hands out connections pushed by the test.
type chanListener struct {
	conns  <-chan net.Conn
	closed chan struct{}
	once   sync.Once
}

func (l *chanListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.closed:
		return nil, net.ErrClosed
	}
}

func (l *chanListener) Close() error {
	err := net.ErrClosed
	l.once.Do(func() {
		close(l.closed)
		err = nil
	})
	return err
}

func (l *chanListener) Addr() net.Addr { return pipeAddr{} }

// fakeEndpoint implements ports.Endpoint over net.Pipe connections.
type fakeEndpoint struct {
	conns     chan net.Conn
	failures  atomic.Int32 // Listen calls that fail before succeeding
	panics    atomic.Int32 // Listen calls that panic before succeeding
	listens   atomic.Int32
	accepting chan struct{}
}

func newFakeEndpoint() *fakeEndpoint {
	return &fakeEndpoint{
		conns:     make(chan net.Conn),
		accepting: make(chan struct{}, 64),
	}
}

func (f *fakeEndpoint) Listen(ctx context.Context) (net.Listener, error) {
	f.listens.Add(1)
	if f.panics.Add(-1) >= 0 {
		panic("endpoint exploded")
	}
	if f.failures.Add(-1) >= 0 {
		return nil, errors.New("name collision")
	}
	select {
	case f.accepting <- struct{}{}:
	default:
	}
	return &chanListener{conns: f.conns, closed: make(chan struct{})}, nil
}

func (f *fakeEndpoint) Address() string { return "memory" }

func (f *fakeEndpoint) Peer(conn net.Conn) string { return "test-peer" }

// connect hands a new server-side conn to the listener and returns the client side.
func (f *fakeEndpoint) connect(t *testing.T) net.Conn {
	t.Helper()
	client, server := net.Pipe()
	select {
	case f.conns <- server:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not accept a connection")
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
