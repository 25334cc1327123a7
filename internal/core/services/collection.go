package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
	"github.com/custodia-labs/kb-sync/internal/core/ports/driven"
	"github.com/custodia-labs/kb-sync/internal/core/ports/driving"
)

// Ensure collectionAdmin implements CollectionAdmin
var _ driving.CollectionAdmin = (*collectionAdmin)(nil)

type collectionAdmin struct {
	collections driven.CollectionStore
	logger      *slog.Logger
}

// NewCollectionAdmin creates a new CollectionAdmin
func NewCollectionAdmin(collections driven.CollectionStore, logger *slog.Logger) driving.CollectionAdmin {
	if logger == nil {
		logger = slog.Default()
	}
	return &collectionAdmin{collections: collections, logger: logger}
}

func (a *collectionAdmin) List(ctx context.Context) ([]*domain.Collection, error) {
	return a.collections.List(ctx)
}

func (a *collectionAdmin) Delete(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name is required", domain.ErrInvalidInput)
	}
	if err := a.collections.Delete(ctx, name); err != nil {
		return err
	}
	a.logger.Info("collection deleted", "collection", name)
	return nil
}

func (a *collectionAdmin) DeleteAll(ctx context.Context) ([]string, error) {
	collections, err := a.collections.List(ctx)
	if err != nil {
		return nil, err
	}

	deleted := make([]string, 0, len(collections))
	for _, c := range collections {
		if err := a.collections.Delete(ctx, c.Name); err != nil {
			return deleted, fmt.Errorf("delete collection %s: %w", c.Name, err)
		}
		a.logger.Info("collection deleted", "collection", c.Name)
		deleted = append(deleted, c.Name)
	}
	return deleted, nil
}
