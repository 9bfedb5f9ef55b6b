package notification

import (
	"context"
	"log/slog"
	"time"
)

// Enqueuer defines the contract for enqueuing dispatch tasks.
type Enqueuer interface {
	EnqueueDispatch(notificationID string) error
}

// SchedulerConfig holds configuration for the poll loop.
type SchedulerConfig struct {
	// Interval is how often the scheduler sweeps the store.
	Interval time.Duration

	// MaxAttempts is the retry ceiling for failed notifications.
	MaxAttempts int

	// BatchSize is the maximum number of notifications per sweep query.
	BatchSize int
}

// Scheduler periodically sweeps the store for due scheduled notifications
// and retryable failures, and enqueues each as a dispatch task. The worker
// pool drains the queue with bounded concurrency, so one slow provider
// cannot stall unrelated notifications within a tick.
type Scheduler struct {
	store    Store
	enqueuer Enqueuer
	config   SchedulerConfig
}

// NewScheduler creates a new scheduler with defaults applied.
func NewScheduler(store Store, enqueuer Enqueuer, cfg SchedulerConfig) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}

	return &Scheduler{
		store:    store,
		enqueuer: enqueuer,
		config:   cfg,
	}
}

// Run starts the poll loop. It blocks until the context is cancelled.
// Should be called in a goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("scheduler started",
		"interval", s.config.Interval,
		"max_attempts", s.config.MaxAttempts,
		"batch_size", s.config.BatchSize,
	)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one tick: enqueue due scheduled notifications, then
// failures under the retry ceiling. Each item is enqueued independently;
// one failure never suppresses the rest.
func (s *Scheduler) Sweep(ctx context.Context) {
	now := time.Now().UTC()

	due, err := s.store.ListScheduledDue(ctx, now, s.config.BatchSize)
	if err != nil {
		slog.Error("scheduler: failed to list due notifications", "error", err)
	} else {
		s.enqueueAll(due, "scheduled")
	}

	failed, err := s.store.ListFailedUnderAttempts(ctx, s.config.MaxAttempts, s.config.BatchSize)
	if err != nil {
		slog.Error("scheduler: failed to list retryable notifications", "error", err)
		return
	}
	s.enqueueAll(failed, "retry")
}

func (s *Scheduler) enqueueAll(items []*Notification, kind string) {
	if len(items) == 0 {
		return
	}

	enqueued := 0
	for _, n := range items {
		if err := s.enqueuer.EnqueueDispatch(n.ID); err != nil {
			slog.Error("scheduler: failed to enqueue dispatch",
				"id", n.ID,
				"kind", kind,
				"error", err,
			)
			continue
		}
		enqueued++
	}

	slog.Info("scheduler: sweep enqueued", "kind", kind, "enqueued", enqueued, "found", len(items))
}
