package driven

import (
	"context"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
)

// CollectionStore persists named collections of retrievable units (PostgreSQL + pgvector).
type CollectionStore interface {
	// GetOrCreate returns the named collection, creating it with defaults if absent.
	// An existing collection is returned unchanged; defaults are never applied as an update.
	GetOrCreate(ctx context.Context, name string, defaults domain.CollectionConfig) (*domain.Collection, error)

	// Get retrieves an existing collection. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, name string) (*domain.Collection, error)

	// List returns all collections ordered by name
	List(ctx context.Context) ([]*domain.Collection, error)

	// Delete removes a collection and all of its units. Returns domain.ErrNotFound if absent.
	Delete(ctx context.Context, name string) error

	// Upsert embeds and stores units in one all-or-nothing call.
	// Units whose id already exists are overwritten.
	// Any failure wraps domain.ErrStoreWrite and leaves the collection untouched.
	Upsert(ctx context.Context, collection string, units []*domain.RetrievableUnit) error

	// Count returns the number of units stored in a collection
	Count(ctx context.Context, collection string) (int, error)
}
