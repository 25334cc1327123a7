package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
	"github.com/custodia-labs/kb-sync/internal/core/ports/driven"
	"github.com/custodia-labs/kb-sync/internal/core/ports/driving"
)

// Ensure checkpointService implements CheckpointService
var _ driving.CheckpointService = (*checkpointService)(nil)

type checkpointService struct {
	collections driven.CollectionStore
	checkpoints driven.CheckpointStore
	logger      *slog.Logger
}

// NewCheckpointService creates a new CheckpointService.
// Collections that do not exist yet are created with the ticket defaults.
func NewCheckpointService(collections driven.CollectionStore, checkpoints driven.CheckpointStore, logger *slog.Logger) driving.CheckpointService {
	if logger == nil {
		logger = slog.Default()
	}
	return &checkpointService{
		collections: collections,
		checkpoints: checkpoints,
		logger:      logger,
	}
}

func (s *checkpointService) Get(ctx context.Context, collection string) (*domain.CheckpointInfo, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection is required", domain.ErrInvalidInput)
	}
	if _, err := s.collections.GetOrCreate(ctx, collection, domain.TicketCollectionConfig()); err != nil {
		return nil, fmt.Errorf("get collection %s: %w", collection, err)
	}

	cp, ok, err := s.checkpoints.Load(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if !ok {
		cp = domain.DefaultCheckpoint
	}

	return &domain.CheckpointInfo{Collection: collection, LastUpdateTime: cp.String()}, nil
}

// Set overrides the checkpoint. Unlike a sync it may move the checkpoint backwards,
// which is how an operator forces a re-fetch.
func (s *checkpointService) Set(ctx context.Context, collection, raw string) (*domain.CheckpointInfo, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection is required", domain.ErrInvalidInput)
	}
	cp, err := domain.ParseCheckpoint(raw)
	if err != nil {
		return nil, err
	}

	if _, err := s.collections.GetOrCreate(ctx, collection, domain.TicketCollectionConfig()); err != nil {
		return nil, fmt.Errorf("get collection %s: %w", collection, err)
	}
	if err := s.checkpoints.Save(ctx, collection, cp); err != nil {
		return nil, fmt.Errorf("save checkpoint: %w", err)
	}

	s.logger.Info("checkpoint updated", "collection", collection, "last_update_time", cp)

	return &domain.CheckpointInfo{Collection: collection, LastUpdateTime: cp.String()}, nil
}
