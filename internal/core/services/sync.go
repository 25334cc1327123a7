package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
	"github.com/custodia-labs/kb-sync/internal/core/ports/driven"
	"github.com/custodia-labs/kb-sync/internal/core/ports/driving"
)

// Ensure TicketSyncService implements TicketSync
var _ driving.TicketSync = (*TicketSyncService)(nil)

// DefaultSyncLockTTL bounds how long a crashed run can block the next one.
const DefaultSyncLockTTL = 10 * time.Minute

// TicketSyncService runs the incremental ticket sync pipeline:
//  1. Acquire the per-collection sync lock
//  2. Get or create the ticket collection
//  3. Load the checkpoint (default when absent)
//  4. Fetch tickets created after the checkpoint
//  5. Transform tickets into units
//  6. Upsert units
//  7. Advance the checkpoint (only forward, only after the upsert)
//
// The lock TTL is renewed before each write so a slow fetch or upsert
// cannot let a second run in halfway.
type TicketSyncService struct {
	source            driven.TicketSource
	collections       driven.CollectionStore
	checkpoints       driven.CheckpointStore
	lock              driven.DistributedLock
	collection        string
	lockTTL           time.Duration
	sourceErrorsFatal bool
	logger            *slog.Logger
	now               func() time.Time
}

// TicketSyncConfig holds dependencies for TicketSyncService.
type TicketSyncConfig struct {
	Source      driven.TicketSource
	Collections driven.CollectionStore
	Checkpoints driven.CheckpointStore
	Lock        driven.DistributedLock // Optional: without it concurrent runs are not excluded
	Collection  string                 // Default: ticketData
	LockTTL     time.Duration          // Default: 10m

	// SourceErrorsFatal turns an unavailable ticket source into a failed run.
	// When false the run reports success with no tickets and source_unavailable set.
	SourceErrorsFatal bool

	Logger *slog.Logger
}

// NewTicketSyncService creates a new ticket sync service.
func NewTicketSyncService(cfg TicketSyncConfig) *TicketSyncService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	collection := cfg.Collection
	if collection == "" {
		collection = domain.TicketCollectionName
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = DefaultSyncLockTTL
	}

	return &TicketSyncService{
		source:            cfg.Source,
		collections:       cfg.Collections,
		checkpoints:       cfg.Checkpoints,
		lock:              cfg.Lock,
		collection:        collection,
		lockTTL:           lockTTL,
		sourceErrorsFatal: cfg.SourceErrorsFatal,
		logger:            logger,
		now:               time.Now,
	}
}

// Collection returns the ticket collection name.
func (s *TicketSyncService) Collection() string {
	return s.collection
}

// LockName returns the distributed lock name guarding a collection's sync.
func LockName(collection string) string {
	return "sync:" + collection
}

// Run executes one sync. It never returns an error; failures are in the outcome.
func (s *TicketSyncService) Run(ctx context.Context) *domain.SyncOutcome {
	outcome := &domain.SyncOutcome{
		RunID:      uuid.NewString(),
		Collection: s.collection,
	}
	logger := s.logger.With("run_id", outcome.RunID, "collection", s.collection)
	logger.Info("starting ticket sync")

	// Step 1: Acquire lock
	if s.lock != nil {
		lockName := LockName(s.collection)
		acquired, err := s.lock.Acquire(ctx, lockName, s.lockTTL)
		if err != nil {
			return s.fail(logger, outcome, fmt.Errorf("acquire sync lock: %w", err))
		}
		if !acquired {
			return s.fail(logger, outcome, fmt.Errorf("%w: collection %s", domain.ErrSyncInProgress, s.collection))
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx), lockName); err != nil {
				logger.Warn("failed to release sync lock", "error", err)
			}
		}()
	}

	// Step 2: Collection
	if _, err := s.collections.GetOrCreate(ctx, s.collection, domain.TicketCollectionConfig()); err != nil {
		return s.fail(logger, outcome, fmt.Errorf("get collection: %w", err))
	}

	// Step 3: Checkpoint
	checkpoint, ok, err := s.checkpoints.Load(ctx, s.collection)
	if err != nil {
		return s.fail(logger, outcome, fmt.Errorf("load checkpoint: %w", err))
	}
	if !ok {
		checkpoint = domain.DefaultCheckpoint
		logger.Info("no checkpoint stored, using default", "checkpoint", checkpoint)
	}

	// Step 4: Fetch
	batch, err := s.source.FetchSince(ctx, checkpoint)
	if err != nil {
		if !errors.Is(err, domain.ErrSourceUnavailable) {
			return s.fail(logger, outcome, fmt.Errorf("fetch tickets: %w", err))
		}
		outcome.SourceUnavailable = true
		if s.sourceErrorsFatal {
			return s.fail(logger, outcome, err)
		}
		logger.Warn("ticket source unavailable, reporting no new tickets", "error", err)
		return s.succeed(logger, outcome, domain.SyncMessageNoTicket)
	}
	if batch.Empty() {
		logger.Info("no new tickets", "checkpoint", checkpoint)
		return s.succeed(logger, outcome, domain.SyncMessageNoTicket)
	}

	// Step 5 + 6: Transform and store
	units := PrepareTicketUnits(batch.Tickets)
	if err := s.extendLock(ctx); err != nil {
		return s.fail(logger, outcome, err)
	}
	if err := s.collections.Upsert(ctx, s.collection, units); err != nil {
		return s.fail(logger, outcome, fmt.Errorf("store tickets: %w", err))
	}
	outcome.TicketsProcessed = len(units)
	outcome.LatestUpdateTime = batch.LatestUpdateTime

	// Step 7: Advance
	if err := s.extendLock(ctx); err != nil {
		return s.fail(logger, outcome, err)
	}
	advanced, err := s.advance(ctx, logger, checkpoint, batch.LatestUpdateTime)
	if err != nil {
		return s.fail(logger, outcome, fmt.Errorf("save checkpoint: %w", err))
	}
	outcome.CheckpointAdvanced = advanced

	return s.succeed(logger, outcome, domain.SyncMessageSuccess)
}

// extendLock renews the sync lock. A lock that can no longer be extended
// may already belong to another run, so the caller stops before writing.
func (s *TicketSyncService) extendLock(ctx context.Context) error {
	if s.lock == nil {
		return nil
	}
	if err := s.lock.Extend(ctx, LockName(s.collection), s.lockTTL); err != nil {
		return fmt.Errorf("extend sync lock: %w", err)
	}
	return nil
}

// advance saves latest as the new checkpoint when it is strictly newer than current.
func (s *TicketSyncService) advance(ctx context.Context, logger *slog.Logger, current domain.Checkpoint, latest string) (bool, error) {
	if latest == "" {
		logger.Warn("latest ticket has no creation time, checkpoint left unchanged", "checkpoint", current)
		return false, nil
	}

	candidate, err := domain.ParseCheckpoint(latest)
	if err != nil {
		logger.Warn("latest ticket creation time is not a valid checkpoint, checkpoint left unchanged",
			"latest_update_time", latest,
			"error", err,
		)
		return false, nil
	}

	if _, err := current.Time(); err == nil {
		newer, _ := candidate.After(current)
		if !newer {
			logger.Warn("latest ticket is not newer than the checkpoint, checkpoint left unchanged",
				"checkpoint", current,
				"latest_update_time", latest,
			)
			return false, nil
		}
	}

	if err := s.checkpoints.Save(ctx, s.collection, candidate); err != nil {
		return false, err
	}
	logger.Info("checkpoint advanced", "from", current, "to", candidate)
	return true, nil
}

func (s *TicketSyncService) succeed(logger *slog.Logger, outcome *domain.SyncOutcome, message string) *domain.SyncOutcome {
	outcome.Success = true
	outcome.Message = message
	outcome.Timestamp = s.now()
	logger.Info("ticket sync completed",
		"tickets_processed", outcome.TicketsProcessed,
		"latest_update_time", outcome.LatestUpdateTime,
		"checkpoint_advanced", outcome.CheckpointAdvanced,
		"source_unavailable", outcome.SourceUnavailable,
	)
	return outcome
}

func (s *TicketSyncService) fail(logger *slog.Logger, outcome *domain.SyncOutcome, err error) *domain.SyncOutcome {
	outcome.Success = false
	outcome.Err = err
	outcome.Message = fmt.Sprintf(domain.SyncMessageErrorFmt, err.Error())
	outcome.Timestamp = s.now()
	logger.Error("ticket sync failed", "error", err)
	return outcome
}
