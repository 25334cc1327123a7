package driving

import (
	"context"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
)

// TicketSync runs the incremental ticket sync
type TicketSync interface {
	// Run executes one sync against the ticket collection.
	// Failures are reported in the outcome, never returned.
	Run(ctx context.Context) *domain.SyncOutcome

	// Collection returns the name of the collection the sync writes to
	Collection() string
}

// Scheduler manages periodic ticket syncs
type Scheduler interface {
	// Start begins the sync scheduler
	Start(ctx context.Context) error

	// Stop stops the sync scheduler
	Stop()
}
