// Package skycondition runs a local endpoint that receives the sky condition
// ordinal (0 to 3) from an external sensor process.
//
// Example usage:
//
//	cfg := skycondition.DefaultConfig()
//	cfg.EndpointName = "tigraSkyQuality"
//	if err := skycondition.Run(ctx, cfg, skyserver.WithLogger(logger)); err != nil {
//	    log.Fatal(err)
//	}
//
// Embedders that need the current value should use pkg/skyserver directly.
package skycondition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tigra-astronomy/skycondition/pkg/skyserver"
)

// Config holds the server configuration.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = skyserver.Config

// DefaultEndpointName is the endpoint sensors connect to by default.
const DefaultEndpointName = skyserver.DefaultEndpointName

// crashPollInterval is how often Run checks whether the listener died.
const crashPollInterval = 100 * time.Millisecond

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return skyserver.DefaultConfig()
}

// Run starts a server and blocks until ctx is canceled or the listener crashes.
// The server is always stopped before Run returns.
func Run(ctx context.Context, cfg Config, opts ...skyserver.Option) error {
	srv, err := skyserver.New(cfg, opts...)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	ticker := time.NewTicker(crashPollInterval)
	defer ticker.Stop()

	var runErr error
wait:
	for {
		select {
		case <-ctx.Done():
			break wait
		case <-ticker.C:
			if srv.Status() == skyserver.StateCrashed {
				runErr = errors.New("server crashed")
				break wait
			}
		}
	}

	if err := srv.Stop(); err != nil && runErr == nil {
		runErr = fmt.Errorf("stop server: %w", err)
	}
	return runErr
}
