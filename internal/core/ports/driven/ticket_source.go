package driven

import (
	"context"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
)

// TicketSource fetches resolved tickets from the external ticketing system.
type TicketSource interface {
	// FetchSince returns tickets created strictly after the checkpoint.
	// An empty batch is a valid result. Transport failures and non-2xx
	// responses wrap domain.ErrSourceUnavailable.
	FetchSince(ctx context.Context, since domain.Checkpoint) (*domain.TicketBatch, error)
}
