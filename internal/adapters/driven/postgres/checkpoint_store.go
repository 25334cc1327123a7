package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
	"github.com/custodia-labs/kb-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CheckpointStore = (*CheckpointStore)(nil)

// CheckpointStore keeps the sync watermark in the collection's metadata column.
type CheckpointStore struct {
	db *DB
}

// NewCheckpointStore creates a new CheckpointStore
func NewCheckpointStore(db *DB) *CheckpointStore {
	return &CheckpointStore{db: db}
}

// Load returns the stored checkpoint. A missing collection reads as no checkpoint.
func (s *CheckpointStore) Load(ctx context.Context, collection string) (domain.Checkpoint, bool, error) {
	query := `SELECT metadata->>'last_update_time' FROM collections WHERE name = $1`

	var value sql.NullString
	err := s.db.QueryRowContext(ctx, query, collection).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load checkpoint for %s: %w", collection, err)
	}
	if !value.Valid || value.String == "" {
		return "", false, nil
	}
	return domain.Checkpoint(value.String), true, nil
}

// Save merges the checkpoint key into the metadata, leaving other keys alone.
func (s *CheckpointStore) Save(ctx context.Context, collection string, cp domain.Checkpoint) error {
	query := `
		UPDATE collections
		SET metadata = metadata || jsonb_build_object('last_update_time', $2::text)
		WHERE name = $1
	`

	res, err := s.db.ExecContext(ctx, query, collection, cp.String())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrMetadataWrite, collection, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrMetadataWrite, collection, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: collection %s not found", domain.ErrMetadataWrite, collection)
	}
	return nil
}
