package skyserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/tigra-astronomy/skycondition/internal/adapters/ipc"
	logAdapter "github.com/tigra-astronomy/skycondition/internal/adapters/log"
	"github.com/tigra-astronomy/skycondition/internal/app"
	"github.com/tigra-astronomy/skycondition/internal/domain"
	"github.com/tigra-astronomy/skycondition/internal/ports"
)

// Server exposes the sky condition over a local endpoint.
// Use New() to create an instance, then Start() to begin accepting a sensor.
type Server struct {
	config    Config
	lifecycle *app.Lifecycle
	listener  *app.Listener
	state     *app.SharedState
	endpoint  ports.Endpoint
	logger    ports.Logger
	plugins   []Plugin

	mu      sync.Mutex
	cancel  context.CancelFunc
	running []Plugin // initialized and not yet shut down
}

// New creates a Server with the given configuration.
// The instance is created in StateStopped; call Start() to begin serving.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Server, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logAdapter.NewNoopLogger()
	}

	endpoint := o.endpoint
	if endpoint == nil {
		endpoint = ipc.NewEndpoint(cfg.EndpointName)
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	state := app.NewSharedState()

	var publisher ports.StatePublisher
	switch len(o.publishers) {
	case 0:
	case 1:
		publisher = o.publishers[0]
	default:
		publisher = multiPublisher(o.publishers)
	}

	processor := app.NewProcessor(state, publisher, logger, emitter, cfg.MaxLineBytes)
	listener := app.NewListener(
		app.ListenerConfig{BackoffInitial: cfg.BackoffInitial, BackoffMax: cfg.BackoffMax},
		endpoint, processor, state, publisher, logger, emitter,
	)

	return &Server{
		config:    cfg,
		lifecycle: app.NewLifecycle(logger, emitter),
		listener:  listener,
		state:     state,
		endpoint:  endpoint,
		logger:    logger,
		plugins:   o.plugins,
	}, nil
}

// Start launches the listener in the background and returns immediately.
// Returns an error if already running or if a plugin fails to initialize.
// The provided context bounds the lifetime of the listener.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.lifecycle.SetCancel(cancel)

	pluginCfg := PluginConfig{
		EndpointName: s.config.EndpointName,
		Address:      s.endpoint.Address(),
		Logger:       s.logger,
		Recycle:      s.listener.Recycle,
	}
	for i, p := range s.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			s.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			cancel()
			s.shutdownPlugins(s.plugins[:i])
			s.running = nil
			_ = s.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		s.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
		s.running = s.plugins[:i+1]
	}

	s.lifecycle.AddWorker()
	go s.run(runCtx)

	return nil
}

func (s *Server) run(ctx context.Context) {
	defer s.lifecycle.WorkerDone()
	defer s.releaseEndpoint()
	defer func() {
		if r := recover(); r != nil {
			s.state.SetServing(false)
			s.logger.Error("listener worker died", ports.Any("panic", r))
			_ = s.lifecycle.TransitionTo(app.StateCrashed, fmt.Sprintf("%v: %v", domain.ErrUnhandledFault, r))
		}
	}()

	if err := s.lifecycle.TransitionTo(app.StateServing, "listener starting"); err != nil {
		s.logger.Error("failed to transition to serving", ports.Err(err))
		return
	}

	err := s.listener.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.state.SetServing(false)
		s.logger.Error("listener error", ports.Err(err))
		_ = s.lifecycle.TransitionTo(app.StateCrashed, err.Error())
	}
}

// releaseEndpoint gives up the endpoint name once the listener has exited.
func (s *Server) releaseEndpoint() {
	c, ok := s.endpoint.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		s.logger.Warn("failed to release endpoint", ports.Err(err))
	}
}

// Stop cancels the listener, closing a pending accept or an active connection,
// and waits up to 30 seconds for it to exit.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced.
func (s *Server) Stop() error {
	s.mu.Lock()

	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.cancel != nil {
		s.cancel()
	}

	running := s.running
	s.running = nil
	s.mu.Unlock()

	err := s.lifecycle.WaitWithTimeout(app.ShutdownTimeout)

	s.shutdownPlugins(running)

	if err != nil {
		_ = s.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = s.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}

	return err
}

// shutdownPlugins shuts plugins down in reverse order, logging failures.
func (s *Server) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			s.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		} else {
			s.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}
}

// Available reports whether a valid sky condition has been received and the
// listener is running. Safe to call concurrently from any goroutine.
func (s *Server) Available() bool {
	return s.state.Available()
}

// SkyCondition returns the last accepted condition, or 1 before any update.
// Safe to call concurrently from any goroutine.
func (s *Server) SkyCondition() int {
	return int(s.state.Condition())
}

// Snapshot returns a copy of the published state and counters.
func (s *Server) Snapshot() Snapshot {
	return s.state.Snapshot()
}

// Status returns the current lifecycle state.
func (s *Server) Status() State {
	return convertState(s.lifecycle.State())
}

// Address returns the socket path or pipe name clients connect to.
func (s *Server) Address() string {
	return s.endpoint.Address()
}

// Recycle closes the endpoint instance waiting for a client so a fresh one is
// created. Reports whether an accept was pending.
func (s *Server) Recycle() bool {
	return s.listener.Recycle()
}

// multiPublisher fans a snapshot out to every publisher, keeping the first error.
type multiPublisher []ports.StatePublisher

func (m multiPublisher) Publish(ctx context.Context, snap domain.Snapshot) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, snap); err != nil && first == nil {
			first = err
		}
	}
	return first
}
