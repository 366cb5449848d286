package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tigra-astronomy/skycondition/internal/domain"
	"github.com/tigra-astronomy/skycondition/internal/ports"
)

// SharedState is the single container shared between the worker and accessors.
// Every field is an atomic so readers never observe a torn value; the
// processor's read guard keeps writes to one goroutine at a time.
type SharedState struct {
	condition   atomic.Int32
	available   atomic.Bool
	serving     atomic.Bool
	accepted    atomic.Uint64
	rejected    atomic.Uint64
	connections atomic.Uint64
	updatedAt   atomic.Int64
}

// NewSharedState returns state holding DefaultCondition, not yet available.
func NewSharedState() *SharedState {
	s := &SharedState{}
	s.condition.Store(int32(domain.DefaultCondition))
	return s
}

// Condition returns the last accepted value.
func (s *SharedState) Condition() domain.Condition {
	return domain.Condition(s.condition.Load())
}

// Available reports whether a value has been accepted and the listener is serving.
func (s *SharedState) Available() bool {
	return s.available.Load() && s.serving.Load()
}

// Serving reports whether the accept loop is running.
func (s *SharedState) Serving() bool {
	return s.serving.Load()
}

// Accept stores a validated condition and returns the previous one.
// The condition is stored before availability so a reader that sees
// Available()==true also sees the new value.
func (s *SharedState) Accept(c domain.Condition, at time.Time) domain.Condition {
	prev := domain.Condition(s.condition.Swap(int32(c)))
	s.updatedAt.Store(at.UnixNano())
	s.available.Store(true)
	s.accepted.Add(1)
	return prev
}

// Reject counts a line that failed validation.
func (s *SharedState) Reject() {
	s.rejected.Add(1)
}

// Connected counts an accepted client.
func (s *SharedState) Connected() {
	s.connections.Add(1)
}

// SetServing updates the server indicator and reports whether it changed.
func (s *SharedState) SetServing(v bool) bool {
	return s.serving.Swap(v) != v
}

// Snapshot copies the current state. Fields are read individually.
func (s *SharedState) Snapshot() domain.Snapshot {
	snap := domain.Snapshot{
		Condition:   s.Condition(),
		Available:   s.Available(),
		Serving:     s.Serving(),
		Accepted:    s.accepted.Load(),
		Rejected:    s.rejected.Load(),
		Connections: s.connections.Load(),
	}
	if ns := s.updatedAt.Load(); ns != 0 {
		snap.UpdatedAt = time.Unix(0, ns).UTC()
	}
	return snap
}

// publish pushes the current snapshot to pub, logging failures.
func publish(ctx context.Context, pub ports.StatePublisher, st *SharedState, logger ports.Logger) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, st.Snapshot()); err != nil {
		logger.Error("failed to publish state", ports.Err(err))
	}
}
