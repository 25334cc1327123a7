package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
	"github.com/custodia-labs/kb-sync/internal/core/ports/driven"
	"github.com/custodia-labs/kb-sync/internal/core/ports/driving"
)

// Ensure DocumentSyncService implements DocumentSync
var _ driving.DocumentSync = (*DocumentSyncService)(nil)

// DocumentSyncService ingests uploaded documents: extract -> chunk -> store.
type DocumentSyncService struct {
	extractor         driven.DocumentExtractor
	pipeline          driven.PostProcessorPipeline
	collections       driven.CollectionStore
	defaultCollection string
	logger            *slog.Logger
}

// DocumentSyncConfig holds dependencies for DocumentSyncService.
type DocumentSyncConfig struct {
	Extractor         driven.DocumentExtractor
	Pipeline          driven.PostProcessorPipeline
	Collections       driven.CollectionStore
	DefaultCollection string // Default: documentation
	Logger            *slog.Logger
}

// NewDocumentSyncService creates a new document sync service.
func NewDocumentSyncService(cfg DocumentSyncConfig) *DocumentSyncService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	collection := cfg.DefaultCollection
	if collection == "" {
		collection = domain.DocumentCollectionName
	}

	return &DocumentSyncService{
		extractor:         cfg.Extractor,
		pipeline:          cfg.Pipeline,
		collections:       cfg.Collections,
		defaultCollection: collection,
		logger:            logger,
	}
}

// SyncDocument extracts, chunks and stores one document.
// Chunk ids are {source}_{index}; re-uploading a file overwrites its chunks.
func (s *DocumentSyncService) SyncDocument(ctx context.Context, content []byte, sourceName, collection string) (*domain.DocumentSyncResult, error) {
	source := filepath.Base(sourceName)
	if sourceName == "" || source == "." || source == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: source name is required", domain.ErrInvalidInput)
	}
	if collection == "" {
		collection = s.defaultCollection
	}

	logger := s.logger.With("source", source, "collection", collection)
	logger.Info("processing document", "bytes", len(content))

	text, err := s.extractor.Extract(ctx, content)
	if err != nil {
		logger.Error("failed to extract document text", "error", err)
		return nil, fmt.Errorf("extract %s: %w", source, err)
	}

	chunks := s.pipeline.Process(text)
	logger.Debug("document split", "characters", len(text), "chunks", len(chunks))

	if _, err := s.collections.GetOrCreate(ctx, collection, domain.DocumentCollectionConfig()); err != nil {
		return nil, fmt.Errorf("get collection %s: %w", collection, err)
	}

	units := DocumentUnits(source, chunks)
	if len(units) > 0 {
		if err := s.collections.Upsert(ctx, collection, units); err != nil {
			logger.Error("failed to store document chunks", "error", err)
			return nil, fmt.Errorf("store %s: %w", source, err)
		}
	}

	logger.Info("document stored", "chunks_stored", len(units))

	return &domain.DocumentSyncResult{
		Source:       source,
		ChunksStored: len(units),
		Collection:   collection,
	}, nil
}

// SyncDocuments processes each document independently.
// Unsupported files are skipped, failures are reported per file.
func (s *DocumentSyncService) SyncDocuments(ctx context.Context, docs []domain.UploadedDocument, collection string) []domain.DocumentFileResult {
	results := make([]domain.DocumentFileResult, 0, len(docs))
	for _, doc := range docs {
		if !s.extractor.SupportsFile(doc.Name) {
			results = append(results, domain.DocumentFileResult{
				Filename: doc.Name,
				Status:   domain.FileStatusSkipped,
				Error:    "Not a PDF",
			})
			continue
		}

		res, err := s.SyncDocument(ctx, doc.Content, doc.Name, collection)
		if err != nil {
			results = append(results, domain.DocumentFileResult{
				Filename: doc.Name,
				Status:   domain.FileStatusFailed,
				Error:    err.Error(),
			})
			continue
		}

		results = append(results, domain.DocumentFileResult{
			Filename:     doc.Name,
			Status:       domain.FileStatusSuccess,
			ChunksStored: res.ChunksStored,
		})
	}
	return results
}
