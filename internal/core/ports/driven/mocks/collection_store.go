package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
	"github.com/custodia-labs/kb-sync/internal/core/ports/driven"
)

// Ensure MockCollectionStore implements both store ports
var (
	_ driven.CollectionStore = (*MockCollectionStore)(nil)
	_ driven.CheckpointStore = (*MockCollectionStore)(nil)
)

// MockCollectionStore is an in-memory collection store for testing.
// Collections keep their metadata as a map, the same shape the database stores,
// so checkpoint writes can be checked for sibling key preservation.
type MockCollectionStore struct {
	mu          sync.RWMutex
	embedder    driven.EmbeddingService
	collections map[string]*mockCollection

	// Custom behavior hooks (optional)
	UpsertFn func(collection string, units []*domain.RetrievableUnit) error
	SaveFn   func(collection string, cp domain.Checkpoint) error

	// Call counters for assertions
	UpsertCalls int
	SaveCalls   int
}

type mockCollection struct {
	metadata  map[string]any
	units     map[string]*domain.RetrievableUnit
	vectors   map[string][]float32
	createdAt time.Time
}

// NewMockCollectionStore creates a new MockCollectionStore.
// A nil embedder stores units without vectors.
func NewMockCollectionStore(embedder driven.EmbeddingService) *MockCollectionStore {
	return &MockCollectionStore{
		embedder:    embedder,
		collections: make(map[string]*mockCollection),
	}
}

func (m *MockCollectionStore) GetOrCreate(ctx context.Context, name string, defaults domain.CollectionConfig) (*domain.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		c = newMockCollection(defaults.Metadata())
		m.collections[name] = c
	}
	return domain.CollectionFromMetadata(name, copyMetadata(c.metadata), c.createdAt), nil
}

func (m *MockCollectionStore) Get(ctx context.Context, name string) (*domain.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return domain.CollectionFromMetadata(name, copyMetadata(c.metadata), c.createdAt), nil
}

func (m *MockCollectionStore) List(ctx context.Context) ([]*domain.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]*domain.Collection, 0, len(names))
	for _, name := range names {
		c := m.collections[name]
		result = append(result, domain.CollectionFromMetadata(name, copyMetadata(c.metadata), c.createdAt))
	}
	return result, nil
}

func (m *MockCollectionStore) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; !ok {
		return domain.ErrNotFound
	}
	delete(m.collections, name)
	return nil
}

func (m *MockCollectionStore) Upsert(ctx context.Context, collection string, units []*domain.RetrievableUnit) error {
	m.mu.Lock()
	m.UpsertCalls++
	m.mu.Unlock()

	if m.UpsertFn != nil {
		return m.UpsertFn(collection, units)
	}

	seen := make(map[string]struct{}, len(units))
	texts := make([]string, len(units))
	for i, u := range units {
		if _, dup := seen[u.ID]; dup {
			return fmt.Errorf("%w: duplicate id %q", domain.ErrStoreWrite, u.ID)
		}
		seen[u.ID] = struct{}{}
		texts[i] = u.Document
	}

	var vectors [][]float32
	if m.embedder != nil && len(texts) > 0 {
		var err error
		vectors, err = m.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("%w: embed: %v", domain.ErrStoreWrite, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		return fmt.Errorf("%w: collection %q: %v", domain.ErrStoreWrite, collection, domain.ErrNotFound)
	}
	for i, u := range units {
		stored := *u
		c.units[u.ID] = &stored
		if vectors != nil {
			c.vectors[u.ID] = vectors[i]
		}
	}
	return nil
}

func (m *MockCollectionStore) Count(ctx context.Context, collection string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[collection]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return len(c.units), nil
}

func (m *MockCollectionStore) Load(ctx context.Context, collection string) (domain.Checkpoint, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[collection]
	if !ok {
		return "", false, nil
	}
	s, _ := c.metadata[domain.MetadataKeyLastUpdateTime].(string)
	if s == "" {
		return "", false, nil
	}
	return domain.Checkpoint(s), true, nil
}

func (m *MockCollectionStore) Save(ctx context.Context, collection string, cp domain.Checkpoint) error {
	m.mu.Lock()
	m.SaveCalls++
	m.mu.Unlock()

	if m.SaveFn != nil {
		return m.SaveFn(collection, cp)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		return fmt.Errorf("%w: collection %q not found", domain.ErrMetadataWrite, collection)
	}
	c.metadata[domain.MetadataKeyLastUpdateTime] = cp.String()
	return nil
}

// Helper methods for testing

// Seed creates a collection with raw metadata, bypassing defaults.
func (m *MockCollectionStore) Seed(name string, metadata map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[name] = newMockCollection(copyMetadata(metadata))
}

// Metadata returns a copy of a collection's raw metadata, nil if absent.
func (m *MockCollectionStore) Metadata(name string) map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[name]
	if !ok {
		return nil
	}
	return copyMetadata(c.metadata)
}

// Unit returns a stored unit, nil if absent.
func (m *MockCollectionStore) Unit(collection, id string) *domain.RetrievableUnit {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[collection]
	if !ok {
		return nil
	}
	return c.units[id]
}

// Vector returns the stored embedding of a unit, nil if absent.
func (m *MockCollectionStore) Vector(collection, id string) []float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[collection]
	if !ok {
		return nil
	}
	return c.vectors[id]
}

func newMockCollection(metadata map[string]any) *mockCollection {
	return &mockCollection{
		metadata:  metadata,
		units:     make(map[string]*domain.RetrievableUnit),
		vectors:   make(map[string][]float32),
		createdAt: time.Now(),
	}
}

func copyMetadata(md map[string]any) map[string]any {
	out := make(map[string]any, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
