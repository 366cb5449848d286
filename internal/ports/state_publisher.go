package ports

import (
	"context"

	"github.com/tigra-astronomy/skycondition/internal/domain"
)

// StatePublisher makes the published state visible outside the process.
// It is write-only: the server never reads published state back.
type StatePublisher interface {
	// Publish records the snapshot. Implementations must replace the previous
	// snapshot atomically so readers never observe a partial write.
	Publish(ctx context.Context, snap domain.Snapshot) error
}
