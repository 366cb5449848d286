package app

import (
	"context"
	"sync"
	"time"

	"github.com/tigra-astronomy/skycondition/internal/domain"
	"github.com/tigra-astronomy/skycondition/internal/ports"
)

// ShutdownTimeout bounds how long Stop waits for the listener worker to
// close the endpoint and drop its client.
const ShutdownTimeout = 30 * time.Second

// State is where a server is between Start and Stop. Only Serving means
// the listener worker is running and the endpoint name is being offered.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateServing
	StateStopping
	StateCrashed
)

// String is the name reported in state-change events and logs.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateServing:
		return "Serving"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// Lifecycle guards a server's state and tracks its listener worker so Stop
// can cancel it and wait for the endpoint to be released.
//
// Valid transitions:
//   - Stopped -> Starting
//   - Starting -> Serving, Stopping, Crashed
//   - Serving -> Stopping, Crashed
//   - Stopping -> Stopped, Crashed
//   - Crashed -> Starting, Stopping
type Lifecycle struct {
	mu           sync.RWMutex
	state        State
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	logger       ports.Logger
	eventEmitter EventEmitter
}

// EventEmitter receives every accepted transition. It is invoked without
// the lifecycle lock held, so it may read State.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// NewLifecycle returns a lifecycle in StateStopped.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{
		state:        StateStopped,
		logger:       logger,
		eventEmitter: emitter,
	}
}

func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo moves to newState and reports it. A rejected transition
// returns ErrNotRunning from Stopped or Crashed and ErrAlreadyRunning
// otherwise.
func (l *Lifecycle) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state

	if !validTransition(oldState, newState) {
		l.mu.Unlock()
		if oldState == StateStopped || oldState == StateCrashed {
			return domain.ErrNotRunning
		}
		return domain.ErrAlreadyRunning
	}

	l.state = newState
	l.mu.Unlock()

	if l.eventEmitter != nil {
		l.eventEmitter.OnStateChange(oldState, newState, reason)
	}

	l.logger.Info("state transition",
		ports.String("from", oldState.String()),
		ports.String("to", newState.String()),
		ports.String("reason", reason),
	)

	return nil
}

func validTransition(from, to State) bool {
	switch from {
	case StateStopped:
		return to == StateStarting
	case StateStarting:
		return to == StateServing || to == StateStopping || to == StateCrashed
	case StateServing:
		return to == StateStopping || to == StateCrashed
	case StateStopping:
		return to == StateStopped || to == StateCrashed
	case StateCrashed:
		return to == StateStarting || to == StateStopping
	}
	return false
}

// CanStart reports whether Start may open the endpoint again. A crashed
// server can be restarted without an intervening Stop.
func (l *Lifecycle) CanStart() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateStopped || l.state == StateCrashed
}

// CanStop reports whether Stop has anything to release. Crashed counts,
// since plugins initialized before the failure may still be running.
func (l *Lifecycle) CanStop() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateServing || l.state == StateStarting || l.state == StateCrashed
}

// SetCancel records the function that cancels the listener worker's context.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel stops the listener worker, which closes the endpoint and any
// connected client.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (l *Lifecycle) AddWorker() {
	l.wg.Add(1)
}

func (l *Lifecycle) WorkerDone() {
	l.wg.Done()
}

// WaitWithTimeout blocks until the listener worker has returned, or
// returns ErrShutdownTimeout once timeout elapses.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("listener did not exit before timeout",
			ports.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}
