package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/kb-sync/internal/core/ports/driving"
)

// Ensure Scheduler implements driving.Scheduler
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler runs the ticket sync periodically.
// Overlap across instances is excluded by the sync's own collection lock,
// so a tick that finds the lock held just reports the run as in progress.
type Scheduler struct {
	sync   driving.TicketSync
	logger *slog.Logger

	// Internal state
	mu          sync.Mutex
	running     bool
	stopCh      chan struct{}
	doneCh      chan struct{}
	interval    time.Duration
	runOnStart  bool
	runTimeout  time.Duration
	onRunResult func(success bool)
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	Sync       driving.TicketSync
	Logger     *slog.Logger
	Interval   time.Duration // How often to sync (default: 15m)
	RunOnStart bool          // Sync immediately when started
	RunTimeout time.Duration // Deadline for one run (default: none)

	// OnRunResult is called after every run (optional, used by tests)
	OnRunResult func(success bool)
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	return &Scheduler{
		sync:        cfg.Sync,
		logger:      logger,
		interval:    interval,
		runOnStart:  cfg.RunOnStart,
		runTimeout:  cfg.RunTimeout,
		onRunResult: cfg.OnRunResult,
	}
}

// Start begins the scheduler loop.
// It runs until Stop is called or context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("scheduler starting", "interval", s.interval, "collection", s.sync.Collection())

	go s.run(ctx)

	return nil
}

// Stop gracefully stops the scheduler, waiting for an in-flight run.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if s.runOnStart {
		s.syncOnce(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.syncOnce(ctx)
		}
	}
}

func (s *Scheduler) syncOnce(ctx context.Context) {
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	outcome := s.sync.Run(ctx)
	if outcome.Success {
		s.logger.Info("scheduled ticket sync finished",
			"run_id", outcome.RunID,
			"tickets_processed", outcome.TicketsProcessed,
		)
	} else {
		s.logger.Warn("scheduled ticket sync failed",
			"run_id", outcome.RunID,
			"message", outcome.Message,
		)
	}

	if s.onRunResult != nil {
		s.onRunResult(outcome.Success)
	}
}
