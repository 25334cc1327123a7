package driving

import (
	"context"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
)

// DocumentSync ingests uploaded documents into a collection
type DocumentSync interface {
	// SyncDocument extracts, chunks and stores one document.
	// An empty collection name selects the default document collection.
	SyncDocument(ctx context.Context, content []byte, sourceName, collection string) (*domain.DocumentSyncResult, error)

	// SyncDocuments processes several documents, reporting per-file status.
	// One failing file never aborts the others.
	SyncDocuments(ctx context.Context, docs []domain.UploadedDocument, collection string) []domain.DocumentFileResult
}
