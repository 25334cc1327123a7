package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/custodia-labs/kb-sync/internal/adapters/driven/ai"
	"github.com/custodia-labs/kb-sync/internal/adapters/driven/pdf"
	"github.com/custodia-labs/kb-sync/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/kb-sync/internal/adapters/driven/redis"
	"github.com/custodia-labs/kb-sync/internal/adapters/driven/servicenow"
	"github.com/custodia-labs/kb-sync/internal/config"
	"github.com/custodia-labs/kb-sync/internal/core/domain"
	"github.com/custodia-labs/kb-sync/internal/core/ports/driven"
	"github.com/custodia-labs/kb-sync/internal/core/ports/driving"
	"github.com/custodia-labs/kb-sync/internal/core/services"
	"github.com/custodia-labs/kb-sync/internal/logging"
	"github.com/custodia-labs/kb-sync/internal/postprocessors"
)

// app holds the wired infrastructure shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db          *postgres.DB
	embedder    driven.EmbeddingService
	collections *postgres.CollectionStore
	checkpoints *postgres.CheckpointStore

	closers []io.Closer
}

type openOptions struct {
	// embeddings wires the embedding client; read-only commands skip it.
	embeddings bool
}

// openApp loads configuration, sets up logging and connects to storage.
func openApp(ctx context.Context, cmd *cli.Command, opts openOptions) (*app, error) {
	cfg, err := config.Load(cmd.String("env"), cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, logCloser, err := logging.Setup(logging.Config{
		Dir:    cfg.Log.Dir,
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	logger.Debug("connecting to postgres")
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, db)

	if err := db.InitSchema(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if opts.embeddings {
		embedder, err := ai.NewEmbeddingService(ai.Settings{
			Provider:   ai.Provider(cfg.Embedding.Provider),
			APIKey:     cfg.Embedding.APIKey,
			Model:      cfg.Embedding.Model,
			BaseURL:    cfg.Embedding.BaseURL,
			Dimensions: cfg.Embedding.Dimensions,
			Timeout:    cfg.Embedding.Timeout,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("embedding service: %w", err)
		}
		a.embedder = embedder
		a.closers = append(a.closers, embedder)
	}

	a.collections = postgres.NewCollectionStore(db, postgres.CollectionStoreConfig{
		Embedder:  a.embedder,
		BatchSize: cfg.Embedding.BatchSize,
		Logger:    logger.With("component", "store"),
	})
	a.checkpoints = postgres.NewCheckpointStore(db)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}

// lock returns the sync lock: Redis when configured, PostgreSQL advisory
// locks otherwise.
func (a *app) lock(ctx context.Context) (driven.DistributedLock, error) {
	if a.cfg.Redis.URL == "" {
		a.logger.Info("using postgres advisory lock")
		return postgres.NewAdvisoryLock(a.db), nil
	}
	client, err := redisadapter.Connect(ctx, a.cfg.Redis.URL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client)
	l := redisadapter.NewLock(client)
	a.logger.Info("using redis lock", "owner", l.OwnerID())
	return l, nil
}

func (a *app) ticketSync(ctx context.Context) (*services.TicketSyncService, error) {
	sn := a.cfg.ServiceNow
	if sn.URL == "" {
		return nil, errors.New("SERVICENOW_URL is required for ticket sync")
	}
	source, err := servicenow.NewClient(servicenow.Config{
		BaseURL:  sn.URL,
		Username: sn.User,
		Password: sn.Password,
		State:    sn.State,
		Limit:    sn.Limit,
		Timeout:  sn.Timeout,
		Logger:   a.logger.With("component", "servicenow"),
	})
	if err != nil {
		return nil, err
	}

	lock, err := a.lock(ctx)
	if err != nil {
		return nil, err
	}

	return services.NewTicketSyncService(services.TicketSyncConfig{
		Source:            source,
		Collections:       a.collections,
		Checkpoints:       a.checkpoints,
		Lock:              lock,
		Collection:        a.cfg.Sync.TicketCollection,
		LockTTL:           a.cfg.Sync.LockTTL,
		SourceErrorsFatal: a.cfg.Sync.SourceErrorsFatal,
		Logger:            a.logger.With("component", "sync"),
	}), nil
}

func (a *app) documentSync() driving.DocumentSync {
	docs := a.cfg.Documents
	splitter := postprocessors.DefaultSplitterConfig()
	splitter.ChunkSize = docs.ChunkSize
	splitter.Overlap = docs.ChunkOverlap

	return services.NewDocumentSyncService(services.DocumentSyncConfig{
		Extractor: pdf.NewExtractor(pdf.Config{
			TopMargin:    docs.TopMargin,
			BottomMargin: docs.BottomMargin,
			Logger:       a.logger.With("component", "pdf"),
		}),
		Pipeline:          postprocessors.DocumentPipeline(splitter),
		Collections:       a.collections,
		DefaultCollection: docs.DefaultCollection,
		Logger:            a.logger.With("component", "documents"),
	})
}

func (a *app) checkpointService() driving.CheckpointService {
	return services.NewCheckpointService(a.collections, a.checkpoints, a.logger.With("component", "checkpoint"))
}

func (a *app) collectionAdmin() driving.CollectionAdmin {
	return services.NewCollectionAdmin(a.collections, a.logger.With("component", "collections"))
}

// ticketCollection returns the configured ticket collection name.
func (a *app) ticketCollection() string {
	if a.cfg.Sync.TicketCollection == "" {
		return domain.TicketCollectionName
	}
	return a.cfg.Sync.TicketCollection
}
