package domain

import "errors"

// Domain errors represent error conditions in the sky condition domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("skycondition: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("skycondition: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("skycondition: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("skycondition: invalid configuration")
)

// Protocol and transport errors. None of these escape the accept loop; they are
// logged and recovered where they occur.
var (
	// ErrParse is returned when a received line is not a base-10 integer.
	ErrParse = errors.New("skycondition: not an integer")

	// ErrRange is returned when a received integer is outside [MinCondition, MaxCondition].
	ErrRange = errors.New("skycondition: condition out of range")

	// ErrStream is returned when the connected stream fails with something other than EOF.
	ErrStream = errors.New("skycondition: stream error")

	// ErrEndpointCreate is returned when the IPC endpoint cannot be created or accept fails.
	ErrEndpointCreate = errors.New("skycondition: endpoint unavailable")

	// ErrEndpointInUse is returned when another live server already owns the endpoint name.
	ErrEndpointInUse = errors.New("skycondition: endpoint in use")

	// ErrUnhandledFault wraps a panic recovered from the worker loop.
	ErrUnhandledFault = errors.New("skycondition: unhandled fault")

	// ErrReadInProgress is returned when a read loop is already active on a processor.
	ErrReadInProgress = errors.New("skycondition: read already in progress")
)
