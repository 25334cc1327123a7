package driving

import (
	"context"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
)

// CollectionAdmin lists and removes collections
type CollectionAdmin interface {
	// List returns all collections
	List(ctx context.Context) ([]*domain.Collection, error)

	// Delete removes one collection. Returns domain.ErrNotFound if absent.
	Delete(ctx context.Context, name string) error

	// DeleteAll removes every collection and returns the deleted names
	DeleteAll(ctx context.Context) ([]string, error)
}
