package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/kb-sync/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the driving ports the API exposes.
type Services struct {
	TicketSync  driving.TicketSync
	Documents   driving.DocumentSync
	Checkpoints driving.CheckpointService
	Collections driving.CollectionAdmin
	// Auth is optional; nil leaves every endpoint open.
	Auth driving.AuthService
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	cfg        Config
	logger     *slog.Logger

	ticketSync  driving.TicketSync
	documents   driving.DocumentSync
	checkpoints driving.CheckpointService
	collections driving.CollectionAdmin
	authService driving.AuthService

	// Infrastructure
	db Pinger // PostgreSQL health check
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// LogDir is searched by /logs-between.
	LogDir string

	// MaxUploadBytes bounds multipart request bodies.
	MaxUploadBytes int64

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		Version:         "1.0.0",
		LogDir:          "logs",
		MaxUploadBytes:  64 << 20,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    5 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
	}
}

// NewServer creates a new HTTP server. db may be nil.
func NewServer(cfg Config, svc Services, db Pinger) *Server {
	def := DefaultConfig()
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = def.MaxUploadBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	if cfg.Version == "" {
		cfg.Version = def.Version
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:      http.NewServeMux(),
		cfg:         cfg,
		logger:      logger.With("component", "http"),
		ticketSync:  svc.TicketSync,
		documents:   svc.Documents,
		checkpoints: svc.Checkpoints,
		collections: svc.Collections,
		authService: svc.Auth,
		db:          db,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// Handler returns the router wrapped in recovery and request logging.
func (s *Server) Handler() http.Handler {
	recovery := NewRecoveryMiddleware(s.logger)
	logging := NewLoggingMiddleware(s.logger)
	return recovery.Handler(logging.Handler(s.router))
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)
	admin := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(authMiddleware.RequireAdmin(h))
	}

	// Service info and health (no auth)
	s.router.HandleFunc("GET /{$}", s.handleRoot)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Ticket sync
	s.router.Handle("POST /sync-tickets", admin(s.handleSyncTickets))
	s.router.HandleFunc("GET /last-update-ticket-time", s.handleGetCheckpoint)
	s.router.Handle("POST /update-last-ticket-time", admin(s.handleSetCheckpoint))

	// Document sync
	s.router.Handle("POST /sync-pdf", admin(s.handleSyncPDF))
	s.router.Handle("POST /sync-multiple-pdfs", admin(s.handleSyncMultiplePDFs))

	// Operations
	s.router.HandleFunc("GET /logs-between", s.handleLogsBetween)
	s.router.HandleFunc("GET /list-collections", s.handleListCollections)
	s.router.Handle("POST /clean-db", admin(s.handleCleanDB))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
