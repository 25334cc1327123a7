package driven

import (
	"context"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
)

// CheckpointStore persists the sync watermark in a collection's metadata.
type CheckpointStore interface {
	// Load returns the stored checkpoint. ok is false when none is stored.
	Load(ctx context.Context, collection string) (cp domain.Checkpoint, ok bool, err error)

	// Save rewrites only the checkpoint key, keeping sibling metadata.
	// Returns an error wrapping domain.ErrMetadataWrite on failure.
	Save(ctx context.Context, collection string, cp domain.Checkpoint) error
}
