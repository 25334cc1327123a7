package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
	"github.com/custodia-labs/kb-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CollectionStore = (*CollectionStore)(nil)

// DefaultEmbedBatchSize is used when a collection carries no batch_size hint.
const DefaultEmbedBatchSize = 100

// CollectionStore implements driven.CollectionStore using PostgreSQL with pgvector.
// Vectors are computed by the injected embedding service; callers only pass text.
type CollectionStore struct {
	db        *DB
	embedder  driven.EmbeddingService
	batchSize int
	logger    *slog.Logger
}

// CollectionStoreConfig holds dependencies for CollectionStore.
type CollectionStoreConfig struct {
	Embedder  driven.EmbeddingService
	BatchSize int // Embedding batch size when the collection has no hint (default: 100)
	Logger    *slog.Logger
}

// NewCollectionStore creates a new CollectionStore
func NewCollectionStore(db *DB, cfg CollectionStoreConfig) *CollectionStore {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	return &CollectionStore{
		db:        db,
		embedder:  cfg.Embedder,
		batchSize: batchSize,
		logger:    logger,
	}
}

// GetOrCreate returns the collection, inserting it with defaults only when absent.
func (s *CollectionStore) GetOrCreate(ctx context.Context, name string, defaults domain.CollectionConfig) (*domain.Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: collection name is required", domain.ErrInvalidInput)
	}

	md, err := json.Marshal(defaults.Metadata())
	if err != nil {
		return nil, fmt.Errorf("marshal collection metadata: %w", err)
	}

	query := `
		INSERT INTO collections (name, metadata, created_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (name) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query, name, string(md))
	if err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Info("collection created", "collection", name, "space", defaults.Space)
	}

	return s.Get(ctx, name)
}

// Get retrieves a collection by name
func (s *CollectionStore) Get(ctx context.Context, name string) (*domain.Collection, error) {
	query := `SELECT name, metadata, created_at FROM collections WHERE name = $1`

	c, err := scanCollection(s.db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get collection %s: %w", name, err)
	}
	return c, nil
}

// List retrieves all collections ordered by name
func (s *CollectionStore) List(ctx context.Context) ([]*domain.Collection, error) {
	query := `SELECT name, metadata, created_at FROM collections ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var collections []*domain.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// Delete removes a collection; its units are removed by cascade.
func (s *CollectionStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete collection %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Upsert embeds the units in batches and writes them in one transaction.
func (s *CollectionStore) Upsert(ctx context.Context, collection string, units []*domain.RetrievableUnit) error {
	if len(units) == 0 {
		return nil
	}
	if err := validateUnits(units); err != nil {
		return err
	}

	c, err := s.Get(ctx, collection)
	if err != nil {
		return fmt.Errorf("%w: collection %s: %v", domain.ErrStoreWrite, collection, err)
	}

	vectors, err := s.embed(ctx, units, c.Config.BatchSize)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreWrite, err)
	}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO units (collection, id, document, metadata, embedding, created_at, updated_at)
			VALUES ($1, $2, $3, $4::jsonb, $5, NOW(), NOW())
			ON CONFLICT (collection, id) DO UPDATE SET
				document = EXCLUDED.document,
				metadata = EXCLUDED.metadata,
				embedding = EXCLUDED.embedding,
				updated_at = NOW()
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, u := range units {
			metadata := u.Metadata
			if metadata == nil {
				metadata = map[string]any{}
			}
			md, err := json.Marshal(metadata)
			if err != nil {
				return fmt.Errorf("unit %s: marshal metadata: %w", u.ID, err)
			}

			var embedding any
			if vectors != nil {
				embedding = pgvector.NewVector(vectors[i])
			}

			if _, err := stmt.ExecContext(ctx, collection, u.ID, u.Document, string(md), embedding); err != nil {
				return fmt.Errorf("unit %s: %w", u.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreWrite, err)
	}

	s.logger.Debug("units stored", "collection", collection, "count", len(units))
	return nil
}

// Count returns the number of units in a collection
func (s *CollectionStore) Count(ctx context.Context, collection string) (int, error) {
	if _, err := s.Get(ctx, collection); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM units WHERE collection = $1`, collection).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count units: %w", err)
	}
	return count, nil
}

// embed computes one vector per unit, batchSize texts per call.
// Returns nil vectors when no embedder is configured.
func (s *CollectionStore) embed(ctx context.Context, units []*domain.RetrievableUnit, batchSize int) ([][]float32, error) {
	if s.embedder == nil {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = s.batchSize
	}

	vectors := make([][]float32, 0, len(units))
	for start := 0; start < len(units); start += batchSize {
		end := start + batchSize
		if end > len(units) {
			end = len(units)
		}

		texts := make([]string, 0, end-start)
		for _, u := range units[start:end] {
			texts = append(texts, u.Document)
		}

		batch, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed units %d-%d: %w", start, end-1, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("embed units %d-%d: got %d vectors for %d texts", start, end-1, len(batch), len(texts))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// validateUnits rejects empty and duplicate ids before anything is written.
func validateUnits(units []*domain.RetrievableUnit) error {
	seen := make(map[string]struct{}, len(units))
	for _, u := range units {
		if u == nil || u.ID == "" {
			return fmt.Errorf("%w: unit id is required", domain.ErrStoreWrite)
		}
		if _, dup := seen[u.ID]; dup {
			return fmt.Errorf("%w: duplicate unit id %q", domain.ErrStoreWrite, u.ID)
		}
		seen[u.ID] = struct{}{}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCollection(row rowScanner) (*domain.Collection, error) {
	var (
		name      string
		raw       []byte
		createdAt time.Time
	)
	if err := row.Scan(&name, &raw, &createdAt); err != nil {
		return nil, err
	}

	md := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &md); err != nil {
			return nil, fmt.Errorf("collection %s: decode metadata: %w", name, err)
		}
	}
	return domain.CollectionFromMetadata(name, md, createdAt), nil
}
