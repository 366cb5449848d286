package skyserver

import "context"

// Plugin extends a Server with optional behavior tied to its lifecycle.
type Plugin interface {
	// Name returns a short identifier used in logs.
	Name() string

	// Initialize is called from Start, in registration order, before the
	// listener begins accepting. ctx is canceled when the server stops.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called from Stop, in reverse registration order.
	Shutdown(ctx context.Context) error
}

// PluginConfig gives plugins access to the running server.
type PluginConfig struct {
	// EndpointName is the configured endpoint name.
	EndpointName string

	// Address is the resolved socket path or pipe name.
	Address string

	Logger Logger

	// Recycle closes the endpoint instance currently waiting for a client so
	// the listener creates a fresh one. It reports whether an accept was pending.
	Recycle func() bool
}
