package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
	"github.com/custodia-labs/kb-sync/internal/core/ports/driven/mocks"
)

// Test helper to create TicketSyncService with mocks
func createTestTicketSync(t *testing.T, tickets ...*domain.Ticket) (
	*TicketSyncService,
	*mocks.MockCollectionStore,
	*mocks.MockTicketSource,
	*mocks.MockDistributedLock,
) {
	t.Helper()

	store := mocks.NewMockCollectionStore(mocks.NewMockEmbeddingService())
	source := mocks.NewMockTicketSource(tickets...)
	lock := mocks.NewMockDistributedLock()

	svc := NewTicketSyncService(TicketSyncConfig{
		Source:      source,
		Collections: store,
		Checkpoints: store,
		Lock:        lock,
	})

	return svc, store, source, lock
}

func ticket(number, createdOn string) *domain.Ticket {
	return &domain.Ticket{
		Number:    number,
		Title:     "Title " + number,
		Query:     "query " + number,
		Answer:    "answer " + number,
		CreatedOn: createdOn,
	}
}

func seedTicketCollection(store *mocks.MockCollectionStore, checkpoint string) {
	md := domain.TicketCollectionConfig().Metadata()
	if checkpoint != "" {
		md[domain.MetadataKeyLastUpdateTime] = checkpoint
	}
	store.Seed(domain.TicketCollectionName, md)
}

func TestTicketSync_NoNewTickets_LeavesCheckpoint(t *testing.T) {
	svc, store, source, _ := createTestTicketSync(t, ticket("INC1", "2025-06-01 00:00:00"))
	seedTicketCollection(store, "2025-07-01 00:00:00")

	outcome := svc.Run(context.Background())

	if !outcome.Success {
		t.Fatalf("expected success, got %q", outcome.Message)
	}
	if outcome.TicketsProcessed != 0 {
		t.Errorf("expected 0 tickets, got %d", outcome.TicketsProcessed)
	}
	if outcome.Message != domain.SyncMessageNoTicket {
		t.Errorf("unexpected message %q", outcome.Message)
	}
	if store.SaveCalls != 0 || store.UpsertCalls != 0 {
		t.Errorf("expected no writes, got %d saves and %d upserts", store.SaveCalls, store.UpsertCalls)
	}
	if got := store.Metadata(domain.TicketCollectionName)[domain.MetadataKeyLastUpdateTime]; got != "2025-07-01 00:00:00" {
		t.Errorf("expected checkpoint unchanged, got %v", got)
	}
	if len(source.Calls) != 1 || source.Calls[0] != "2025-07-01 00:00:00" {
		t.Errorf("expected fetch with stored checkpoint, got %v", source.Calls)
	}
}

func TestTicketSync_AbsentCheckpointUsesDefault(t *testing.T) {
	svc, store, source, _ := createTestTicketSync(t)

	outcome := svc.Run(context.Background())

	if !outcome.Success {
		t.Fatalf("expected success, got %q", outcome.Message)
	}
	if len(source.Calls) != 1 || source.Calls[0] != domain.DefaultCheckpoint {
		t.Errorf("expected fetch with default checkpoint, got %v", source.Calls)
	}

	md := store.Metadata(domain.TicketCollectionName)
	if md == nil {
		t.Fatal("expected ticket collection to be created")
	}
	if md[domain.MetadataKeySpace] != "cosine" || md[domain.MetadataKeyBatchSize] != 100 || md[domain.MetadataKeySyncThreshold] != 1000 {
		t.Errorf("unexpected collection metadata %v", md)
	}
}

func TestTicketSync_StoresTicketsAndAdvancesCheckpoint(t *testing.T) {
	svc, store, _, _ := createTestTicketSync(t,
		ticket("INC5", "2025-01-05 10:00:00"),
		ticket("INC100", "2025-01-01 10:00:00"),
		ticket("INC23", "2025-01-03 10:00:00"),
	)

	outcome := svc.Run(context.Background())

	if !outcome.Success {
		t.Fatalf("expected success, got %q", outcome.Message)
	}
	if outcome.Message != domain.SyncMessageSuccess {
		t.Errorf("unexpected message %q", outcome.Message)
	}
	if outcome.TicketsProcessed != 3 {
		t.Errorf("expected 3 tickets, got %d", outcome.TicketsProcessed)
	}
	// Latest is chosen by ordinal, not by creation time
	if outcome.LatestUpdateTime != "2025-01-01 10:00:00" {
		t.Errorf("expected latest update time of INC100, got %q", outcome.LatestUpdateTime)
	}
	if !outcome.CheckpointAdvanced {
		t.Error("expected checkpoint to advance")
	}
	if outcome.RunID == "" {
		t.Error("expected run id")
	}
	if outcome.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}

	md := store.Metadata(domain.TicketCollectionName)
	if md[domain.MetadataKeyLastUpdateTime] != "2025-01-01 10:00:00" {
		t.Errorf("unexpected checkpoint %v", md[domain.MetadataKeyLastUpdateTime])
	}
	if md[domain.MetadataKeySpace] != "cosine" || md[domain.MetadataKeyBatchSize] != 100 {
		t.Errorf("expected sibling metadata preserved, got %v", md)
	}

	unit := store.Unit(domain.TicketCollectionName, "INC100")
	if unit == nil {
		t.Fatal("expected unit INC100")
	}
	if unit.Document != "Ticket query/question: query INC100 \n - Ticket answer/solution: answer INC100" {
		t.Errorf("unexpected body %q", unit.Document)
	}
	if store.Vector(domain.TicketCollectionName, "INC100") == nil {
		t.Error("expected the store to embed the unit")
	}
}

func TestTicketSync_RerunDoesNotDuplicate(t *testing.T) {
	svc, store, _, _ := createTestTicketSync(t,
		ticket("INC1", "2025-01-01 10:00:00"),
		ticket("INC2", "2025-01-02 10:00:00"),
	)
	ctx := context.Background()

	if outcome := svc.Run(ctx); !outcome.Success {
		t.Fatalf("first run failed: %s", outcome.Message)
	}

	// Simulate a crash before the checkpoint advanced
	_ = store.Save(ctx, domain.TicketCollectionName, domain.DefaultCheckpoint)

	if outcome := svc.Run(ctx); !outcome.Success {
		t.Fatalf("second run failed: %s", outcome.Message)
	}

	count, err := store.Count(ctx, domain.TicketCollectionName)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 units after rerun, got %d", count)
	}
}

func TestTicketSync_CheckpointNeverRegresses(t *testing.T) {
	svc, store, source, _ := createTestTicketSync(t)
	seedTicketCollection(store, "2025-02-01 00:00:00")

	source.FetchFn = func(since domain.Checkpoint) (*domain.TicketBatch, error) {
		return domain.NewTicketBatch([]*domain.Ticket{ticket("INC9", "2025-01-15 00:00:00")}), nil
	}

	outcome := svc.Run(context.Background())

	if !outcome.Success {
		t.Fatalf("expected success, got %q", outcome.Message)
	}
	if outcome.CheckpointAdvanced {
		t.Error("expected checkpoint not to advance")
	}
	if store.SaveCalls != 0 {
		t.Errorf("expected no checkpoint save, got %d", store.SaveCalls)
	}
	if got := store.Metadata(domain.TicketCollectionName)[domain.MetadataKeyLastUpdateTime]; got != "2025-02-01 00:00:00" {
		t.Errorf("expected checkpoint unchanged, got %v", got)
	}
}

func TestTicketSync_CheckpointMonotonicAcrossRuns(t *testing.T) {
	svc, store, source, _ := createTestTicketSync(t)
	ctx := context.Background()

	latest := []string{
		"2025-01-10 00:00:00",
		"2025-01-05 00:00:00",
		"2025-01-20 00:00:00",
		"",
		"not a timestamp",
		"2025-01-20 00:00:00",
		"2025-01-21 00:00:00",
	}
	run := 0
	source.FetchFn = func(since domain.Checkpoint) (*domain.TicketBatch, error) {
		created := latest[run]
		run++
		return domain.NewTicketBatch([]*domain.Ticket{ticket(fmt.Sprintf("INC%d", run), created)}), nil
	}

	var previous time.Time
	for range latest {
		if outcome := svc.Run(ctx); !outcome.Success {
			t.Fatalf("run failed: %s", outcome.Message)
		}
		cp, ok, err := store.Load(ctx, domain.TicketCollectionName)
		if err != nil || !ok {
			continue
		}
		current, err := cp.Time()
		if err != nil {
			t.Fatalf("stored checkpoint %q is not valid: %v", cp, err)
		}
		if current.Before(previous) {
			t.Errorf("checkpoint regressed from %v to %v", previous, current)
		}
		previous = current
	}

	cp, _, _ := store.Load(ctx, domain.TicketCollectionName)
	if cp != "2025-01-21 00:00:00" {
		t.Errorf("expected final checkpoint 2025-01-21 00:00:00, got %q", cp)
	}
}

func TestTicketSync_MissingLatestTimestampKeepsCheckpoint(t *testing.T) {
	svc, store, source, _ := createTestTicketSync(t)
	seedTicketCollection(store, "2025-01-01 00:00:00")

	source.FetchFn = func(since domain.Checkpoint) (*domain.TicketBatch, error) {
		return domain.NewTicketBatch([]*domain.Ticket{ticket("INC1", "")}), nil
	}

	outcome := svc.Run(context.Background())

	if !outcome.Success {
		t.Fatalf("expected success, got %q", outcome.Message)
	}
	if outcome.TicketsProcessed != 1 {
		t.Errorf("expected ticket to be stored, got %d", outcome.TicketsProcessed)
	}
	if outcome.CheckpointAdvanced || store.SaveCalls != 0 {
		t.Error("expected checkpoint to stay")
	}
}

func TestTicketSync_StoreFailure(t *testing.T) {
	svc, store, _, _ := createTestTicketSync(t, ticket("INC1", "2025-01-01 10:00:00"))
	store.UpsertFn = func(collection string, units []*domain.RetrievableUnit) error {
		return fmt.Errorf("%w: boom", domain.ErrStoreWrite)
	}

	outcome := svc.Run(context.Background())

	if outcome.Success {
		t.Fatal("expected failure")
	}
	if !strings.HasPrefix(outcome.Message, "Error during ticket sync: ") {
		t.Errorf("unexpected message %q", outcome.Message)
	}
	if !errors.Is(outcome.Err, domain.ErrStoreWrite) {
		t.Errorf("expected ErrStoreWrite, got %v", outcome.Err)
	}
	if store.SaveCalls != 0 {
		t.Error("checkpoint must not advance when the store fails")
	}
}

func TestTicketSync_CheckpointWriteFailure(t *testing.T) {
	svc, store, _, _ := createTestTicketSync(t, ticket("INC1", "2025-01-01 10:00:00"))
	store.SaveFn = func(collection string, cp domain.Checkpoint) error {
		return fmt.Errorf("%w: collection vanished", domain.ErrMetadataWrite)
	}

	outcome := svc.Run(context.Background())

	if outcome.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(outcome.Err, domain.ErrMetadataWrite) {
		t.Errorf("expected ErrMetadataWrite, got %v", outcome.Err)
	}
	if store.SaveCalls != 1 {
		t.Errorf("expected one save attempt, got %d", store.SaveCalls)
	}
}

func TestTicketSync_SourceUnavailableIsSoftByDefault(t *testing.T) {
	svc, store, source, _ := createTestTicketSync(t)
	seedTicketCollection(store, "2025-01-01 00:00:00")
	source.FetchFn = func(since domain.Checkpoint) (*domain.TicketBatch, error) {
		return nil, fmt.Errorf("%w: status 503", domain.ErrSourceUnavailable)
	}

	outcome := svc.Run(context.Background())

	if !outcome.Success {
		t.Fatalf("expected soft success, got %q", outcome.Message)
	}
	if !outcome.SourceUnavailable {
		t.Error("expected source_unavailable to be set")
	}
	if outcome.TicketsProcessed != 0 {
		t.Errorf("expected 0 tickets, got %d", outcome.TicketsProcessed)
	}
	if store.SaveCalls != 0 {
		t.Error("checkpoint must not change")
	}
}

func TestTicketSync_SourceUnavailableFatal(t *testing.T) {
	store := mocks.NewMockCollectionStore(nil)
	source := mocks.NewMockTicketSource()
	source.FetchFn = func(since domain.Checkpoint) (*domain.TicketBatch, error) {
		return nil, fmt.Errorf("%w: connection refused", domain.ErrSourceUnavailable)
	}

	svc := NewTicketSyncService(TicketSyncConfig{
		Source:            source,
		Collections:       store,
		Checkpoints:       store,
		SourceErrorsFatal: true,
	})

	outcome := svc.Run(context.Background())

	if outcome.Success {
		t.Fatal("expected failure")
	}
	if !outcome.SourceUnavailable {
		t.Error("expected source_unavailable to be set")
	}
	if !errors.Is(outcome.Err, domain.ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable, got %v", outcome.Err)
	}
}

func TestTicketSync_LockHeld(t *testing.T) {
	svc, _, source, lock := createTestTicketSync(t, ticket("INC1", "2025-01-01 10:00:00"))
	lock.SetLockHeld(LockName(domain.TicketCollectionName), time.Minute)

	outcome := svc.Run(context.Background())

	if outcome.Success {
		t.Fatal("expected failure while another run holds the lock")
	}
	if !errors.Is(outcome.Err, domain.ErrSyncInProgress) {
		t.Errorf("expected ErrSyncInProgress, got %v", outcome.Err)
	}
	if len(source.Calls) != 0 {
		t.Error("source must not be called without the lock")
	}
}

func TestTicketSync_LockError(t *testing.T) {
	svc, _, _, lock := createTestTicketSync(t)
	lock.AcquireFn = func(name string, ttl time.Duration) (bool, error) {
		return false, errors.New("redis down")
	}

	outcome := svc.Run(context.Background())

	if outcome.Success {
		t.Fatal("expected failure")
	}
	if errors.Is(outcome.Err, domain.ErrSyncInProgress) {
		t.Error("backend errors must not look like a held lock")
	}
}

func TestTicketSync_ReleasesLock(t *testing.T) {
	svc, _, _, lock := createTestTicketSync(t, ticket("INC1", "2025-01-01 10:00:00"))

	var acquiredTTL time.Duration
	outcome := svc.Run(context.Background())
	if !outcome.Success {
		t.Fatalf("expected success, got %q", outcome.Message)
	}
	if lock.IsHeld(LockName(domain.TicketCollectionName)) {
		t.Error("expected lock to be released after the run")
	}

	lock.AcquireFn = func(name string, ttl time.Duration) (bool, error) {
		acquiredTTL = ttl
		return true, nil
	}
	svc.Run(context.Background())
	if acquiredTTL != DefaultSyncLockTTL {
		t.Errorf("expected default lock TTL, got %v", acquiredTTL)
	}
}

func TestTicketSync_ExtendsLockBeforeWrites(t *testing.T) {
	svc, _, _, lock := createTestTicketSync(t, ticket("INC1", "2025-01-01 10:00:00"))

	var extended []time.Duration
	lock.ExtendFn = func(name string, ttl time.Duration) error {
		if name != LockName(domain.TicketCollectionName) {
			t.Errorf("unexpected lock name %q", name)
		}
		extended = append(extended, ttl)
		return nil
	}

	outcome := svc.Run(context.Background())

	if !outcome.Success {
		t.Fatalf("expected success, got %q", outcome.Message)
	}
	if len(extended) != 2 {
		t.Fatalf("expected the lock to be extended before the upsert and the checkpoint save, got %d extensions", len(extended))
	}
	for _, ttl := range extended {
		if ttl != DefaultSyncLockTTL {
			t.Errorf("expected extension by %v, got %v", DefaultSyncLockTTL, ttl)
		}
	}
}

func TestTicketSync_LostLockStopsBeforeWriting(t *testing.T) {
	svc, store, _, lock := createTestTicketSync(t, ticket("INC1", "2025-01-01 10:00:00"))
	seedTicketCollection(store, "2024-12-31 00:00:00")
	lock.ExtendFn = func(name string, ttl time.Duration) error {
		return fmt.Errorf("lock %s not held", name)
	}

	outcome := svc.Run(context.Background())

	if outcome.Success {
		t.Fatal("expected failure once the lock cannot be extended")
	}
	if !strings.Contains(outcome.Message, "extend sync lock") {
		t.Errorf("unexpected message %q", outcome.Message)
	}
	if store.Unit(domain.TicketCollectionName, "INC1") != nil {
		t.Error("tickets must not be stored without the lock")
	}
	cp, _, _ := store.Load(context.Background(), domain.TicketCollectionName)
	if cp != "2024-12-31 00:00:00" {
		t.Errorf("checkpoint must not move, got %q", cp)
	}
}

func TestTicketSync_LockTakenOverDuringFetch(t *testing.T) {
	svc, store, source, lock := createTestTicketSync(t)
	source.FetchFn = func(since domain.Checkpoint) (*domain.TicketBatch, error) {
		// The run's lock expired while fetching and another run took it.
		lock.SetLockHeld(LockName(domain.TicketCollectionName), time.Minute)
		return domain.NewTicketBatch([]*domain.Ticket{ticket("INC7", "2025-01-03 09:00:00")}), nil
	}

	outcome := svc.Run(context.Background())

	if outcome.Success {
		t.Fatal("expected failure after losing the lock")
	}
	if store.Unit(domain.TicketCollectionName, "INC7") != nil {
		t.Error("tickets must not be stored by a run that lost its lock")
	}
	if store.SaveCalls != 0 {
		t.Errorf("expected no checkpoint save, got %d", store.SaveCalls)
	}
}

func TestTicketSync_NoNewTicketsSkipsLockExtension(t *testing.T) {
	svc, _, _, lock := createTestTicketSync(t)
	lock.ExtendFn = func(name string, ttl time.Duration) error {
		t.Error("nothing is written, so the lock must not be extended")
		return nil
	}

	if outcome := svc.Run(context.Background()); !outcome.Success {
		t.Fatalf("expected success, got %q", outcome.Message)
	}
}

func TestTicketSync_CustomCollection(t *testing.T) {
	store := mocks.NewMockCollectionStore(nil)
	source := mocks.NewMockTicketSource(ticket("INC1", "2025-01-01 10:00:00"))
	svc := NewTicketSyncService(TicketSyncConfig{
		Source:      source,
		Collections: store,
		Checkpoints: store,
		Collection:  "tickets-eu",
	})

	outcome := svc.Run(context.Background())

	if !outcome.Success {
		t.Fatalf("expected success, got %q", outcome.Message)
	}
	if svc.Collection() != "tickets-eu" || outcome.Collection != "tickets-eu" {
		t.Errorf("unexpected collection %q", outcome.Collection)
	}
	if store.Unit("tickets-eu", "INC1") == nil {
		t.Error("expected unit in custom collection")
	}
}
