package skyserver

import (
	"github.com/tigra-astronomy/skycondition/internal/app"
	"github.com/tigra-astronomy/skycondition/internal/domain"
)

// StateChangeEvent describes a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// ConditionEvent describes an accepted update.
type ConditionEvent struct {
	Previous int
	Current  int
}

// RejectEvent describes a line that failed validation.
// Error wraps ErrParse or ErrRange.
type RejectEvent struct {
	Line  string
	Error error
}

// ClientEvent describes a sensor connecting or disconnecting.
// Peer is empty when the platform cannot identify the process.
// Error is set on disconnect when the stream failed rather than closed.
type ClientEvent struct {
	Peer  string
	Error error
}

// EventHandler receives server events. Events are called synchronously from
// the worker goroutine; implementations should return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnConditionAccepted(event ConditionEvent)
	OnLineRejected(event RejectEvent)
	OnClientConnected(event ClientEvent)
	OnClientDisconnected(event ClientEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle a subset.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)     {}
func (BaseEventHandler) OnConditionAccepted(ConditionEvent) {}
func (BaseEventHandler) OnLineRejected(RejectEvent)         {}
func (BaseEventHandler) OnClientConnected(ClientEvent)      {}
func (BaseEventHandler) OnClientDisconnected(ClientEvent)   {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnConditionAccepted(previous, current domain.Condition) {
	if e.handler == nil {
		return
	}
	e.handler.OnConditionAccepted(ConditionEvent{Previous: int(previous), Current: int(current)})
}

func (e *eventEmitterWrapper) OnLineRejected(line string, err error) {
	if e.handler == nil {
		return
	}
	e.handler.OnLineRejected(RejectEvent{Line: line, Error: err})
}

func (e *eventEmitterWrapper) OnClientConnected(peer string) {
	if e.handler == nil {
		return
	}
	e.handler.OnClientConnected(ClientEvent{Peer: peer})
}

func (e *eventEmitterWrapper) OnClientDisconnected(peer string, err error) {
	if e.handler == nil {
		return
	}
	e.handler.OnClientDisconnected(ClientEvent{Peer: peer, Error: err})
}
