package driving

import (
	"context"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
)

// CheckpointService reads and overrides collection checkpoints
type CheckpointService interface {
	// Get returns the checkpoint, or the default when none is stored
	Get(ctx context.Context, collection string) (*domain.CheckpointInfo, error)

	// Set validates raw as YYYY-MM-DD HH:MM:SS and stores it.
	// Invalid input returns domain.ErrValidation before any store call.
	Set(ctx context.Context, collection, raw string) (*domain.CheckpointInfo, error)
}
