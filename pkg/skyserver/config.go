package skyserver

import (
	"fmt"
	"time"

	"github.com/tigra-astronomy/skycondition/internal/adapters/ipc"
	"github.com/tigra-astronomy/skycondition/internal/app"
	"github.com/tigra-astronomy/skycondition/internal/domain"
)

// DefaultEndpointName is the well-known endpoint shared with sensor clients.
const DefaultEndpointName = ipc.DefaultName

// Config holds the configuration for a Server.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config struct {
	// EndpointName is the local channel name. On Unix it may also be a socket path.
	// Default: "tigraSkyQuality"
	EndpointName string

	// BackoffInitial is the first retry delay after an endpoint failure.
	// Default: 500ms
	BackoffInitial time.Duration

	// BackoffMax caps the retry delay.
	// Default: 10s
	BackoffMax time.Duration

	// MaxLineBytes bounds one protocol line; longer lines are rejected.
	// Default: 4096
	MaxLineBytes int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		EndpointName:   DefaultEndpointName,
		BackoffInitial: app.DefaultBackoffInitial,
		BackoffMax:     app.DefaultBackoffMax,
		MaxLineBytes:   app.DefaultMaxLineBytes,
	}
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.EndpointName == "" {
		c.EndpointName = d.EndpointName
	}
	if c.BackoffInitial == 0 {
		c.BackoffInitial = d.BackoffInitial
	}
	if c.BackoffMax == 0 {
		c.BackoffMax = d.BackoffMax
	}
	if c.MaxLineBytes == 0 {
		c.MaxLineBytes = d.MaxLineBytes
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.EndpointName == "" {
		return fmt.Errorf("%w: endpoint name is required", domain.ErrInvalidConfig)
	}
	if c.BackoffInitial < 0 || c.BackoffMax < 0 {
		return fmt.Errorf("%w: backoff must not be negative", domain.ErrInvalidConfig)
	}
	if c.BackoffMax < c.BackoffInitial {
		return fmt.Errorf("%w: backoff max %v is below initial %v", domain.ErrInvalidConfig, c.BackoffMax, c.BackoffInitial)
	}
	if c.MaxLineBytes < 0 {
		return fmt.Errorf("%w: max line bytes must not be negative", domain.ErrInvalidConfig)
	}
	return nil
}
