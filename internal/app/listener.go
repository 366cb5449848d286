package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tigra-astronomy/skycondition/internal/domain"
	"github.com/tigra-astronomy/skycondition/internal/ports"
)

// ListenerConfig contains configuration for the accept loop.
type ListenerConfig struct {
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// ConnectionEmitter is called as clients come and go.
type ConnectionEmitter interface {
	OnClientConnected(peer string)
	OnClientDisconnected(peer string, err error)
}

// Listener owns the endpoint and its accept/teardown cycle.
// Each iteration creates a fresh endpoint instance, accepts exactly one client,
// closes the instance, and hands the connection to the processor.
type Listener struct {
	config    ListenerConfig
	endpoint  ports.Endpoint
	processor *Processor
	state     *SharedState
	publisher ports.StatePublisher
	logger    ports.Logger
	emitter   ConnectionEmitter

	mu       sync.Mutex
	pending  net.Listener // instance currently blocked in Accept
	recycled bool
}

// NewListener creates a listener. publisher and emitter may be nil.
func NewListener(
	config ListenerConfig,
	endpoint ports.Endpoint,
	processor *Processor,
	state *SharedState,
	publisher ports.StatePublisher,
	logger ports.Logger,
	emitter ConnectionEmitter,
) *Listener {
	return &Listener{
		config:    config,
		endpoint:  endpoint,
		processor: processor,
		state:     state,
		publisher: publisher,
		logger:    logger,
		emitter:   emitter,
	}
}

// Run executes the accept loop until ctx is canceled.
// Endpoint failures and recovered panics back off and retry; they never end the loop.
// Returns ctx.Err() on shutdown.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info("listener running", ports.String("address", l.endpoint.Address()))
	l.setServing(ctx, true)
	defer l.setServing(context.WithoutCancel(ctx), false)

	backoff := newBackoff(l.config.BackoffInitial, l.config.BackoffMax)

	for {
		if err := ctx.Err(); err != nil {
			l.logger.Warn("listener exiting")
			return err
		}

		err := l.serveOnce(ctx)
		switch {
		case err == nil:
			backoff.Reset()
		case ctx.Err() != nil:
			// shutting down; reported at the top of the loop
		case errors.Is(err, domain.ErrEndpointCreate),
			errors.Is(err, domain.ErrEndpointInUse),
			errors.Is(err, domain.ErrUnhandledFault):
			l.logger.Error("listener iteration failed",
				ports.Err(err),
				ports.Duration("retry_in", backoff.Current()),
			)
			backoff.Wait(ctx)
		default:
			l.logger.Error("connection failed", ports.Err(err))
			backoff.Reset()
		}
	}
}

// Recycle closes the endpoint instance waiting in Accept so the loop creates a
// new one. Returns false if no accept is pending.
func (l *Listener) Recycle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == nil {
		return false
	}
	l.recycled = true
	_ = l.pending.Close()
	return true
}

// serveOnce runs one Idle -> Connected -> Disconnected cycle.
func (l *Listener) serveOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", domain.ErrUnhandledFault, r)
		}
	}()

	conn, err := l.accept(ctx)
	if err != nil || conn == nil {
		return err
	}
	defer conn.Close()

	// Closing the connection is the only way to unblock a pending read.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	peer := ""
	if pi, ok := l.endpoint.(ports.PeerIdentifier); ok {
		peer = pi.Peer(conn)
	}
	l.state.Connected()
	l.logger.Warn("client connected", ports.String("peer", peer))
	if l.emitter != nil {
		l.emitter.OnClientConnected(peer)
	}

	err = l.processor.Serve(ctx, conn)

	if l.emitter != nil {
		l.emitter.OnClientDisconnected(peer, err)
	}
	return err
}

// accept creates an endpoint instance and waits for one client.
// Returns (nil, nil) when the wait ended because of shutdown or Recycle.
func (l *Listener) accept(ctx context.Context) (net.Conn, error) {
	ln, err := l.endpoint.Listen(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		if !errors.Is(err, domain.ErrEndpointCreate) && !errors.Is(err, domain.ErrEndpointInUse) {
			err = fmt.Errorf("%w: %v", domain.ErrEndpointCreate, err)
		}
		return nil, err
	}
	l.logger.Info("created endpoint", ports.String("address", l.endpoint.Address()))

	l.mu.Lock()
	l.pending = ln
	l.recycled = false
	l.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })

	l.logger.Info("waiting for client connection")
	conn, err := ln.Accept()

	stop()
	l.mu.Lock()
	l.pending = nil
	recycled := l.recycled
	l.mu.Unlock()

	if cerr := ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
		l.logger.Debug("closing endpoint", ports.Err(cerr))
	}
	l.logger.Info("destroyed endpoint")

	if err != nil {
		if conn != nil {
			_ = conn.Close()
		}
		switch {
		case ctx.Err() != nil:
			return nil, nil
		case recycled:
			l.logger.Info("endpoint recycled")
			return nil, nil
		}
		return nil, fmt.Errorf("%w: accept: %v", domain.ErrEndpointCreate, err)
	}
	return conn, nil
}

func (l *Listener) setServing(ctx context.Context, v bool) {
	if l.state.SetServing(v) {
		publish(ctx, l.publisher, l.state, l.logger)
	}
}
