package endpointwatch

import "github.com/tigra-astronomy/skycondition/pkg/skyserver"

// WithEndpointWatch returns a skyserver Option that recreates the endpoint
// when its socket file is deleted.
//
// Usage:
//
//	srv, err := skyserver.New(cfg,
//	    endpointwatch.WithEndpointWatch(endpointwatch.DefaultConfig()),
//	)
func WithEndpointWatch(cfg Config) skyserver.Option {
	return skyserver.WithPlugin(New(cfg))
}
