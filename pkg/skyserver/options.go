package skyserver

import (
	"github.com/tigra-astronomy/skycondition/internal/adapters/fs"
	"github.com/tigra-astronomy/skycondition/internal/domain"
	"github.com/tigra-astronomy/skycondition/internal/ports"
)

// Logger is the interface for structured logging.
type Logger = ports.Logger

// LogField represents a structured log field.
type LogField = ports.Field

// Endpoint creates the local listening endpoint. Override it with WithEndpoint.
type Endpoint = ports.Endpoint

// StatePublisher receives a snapshot whenever published state changes.
type StatePublisher = ports.StatePublisher

// Snapshot is a point-in-time copy of the published state.
type Snapshot = domain.Snapshot

// Errors returned by the server, checkable with errors.Is.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrParse           = domain.ErrParse
	ErrRange           = domain.ErrRange
)

// Option configures optional behavior of a Server.
type Option func(*options)

// options holds the optional configuration for a Server instance.
type options struct {
	logger       ports.Logger
	eventHandler EventHandler
	plugins      []Plugin
	endpoint     ports.Endpoint
	publishers   []ports.StatePublisher
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for server events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the server starts.
// Plugins are initialized in registration order and shutdown in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithEndpoint replaces the platform endpoint derived from Config.EndpointName.
func WithEndpoint(endpoint Endpoint) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithStatePublisher adds a publisher notified on every accepted update and
// whenever the listener starts or stops serving.
func WithStatePublisher(p StatePublisher) Option {
	return func(o *options) {
		o.publishers = append(o.publishers, p)
	}
}

// WithStatusFile publishes a JSON snapshot to path on every accepted update and
// serving change, for consumers in another process. The file is never read back.
func WithStatusFile(path string) Option {
	return func(o *options) {
		if path == "" {
			return
		}
		o.publishers = append(o.publishers, fs.NewStatusFile(path))
	}
}
