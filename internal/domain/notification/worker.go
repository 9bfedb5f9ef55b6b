package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Worker processes dispatch tasks enqueued by the scheduler. It re-checks
// that a scheduled item is actually due, claims it through a guarded status
// transition so no second dispatcher can hold the same id, and hands it to
// the dispatch service. Delivery outcomes are recorded in the store, never
// propagated to the queue: retry bookkeeping belongs to the state machine,
// not the broker.
type Worker struct {
	store       Store
	service     *Service
	maxAttempts int
}

// NewWorker creates a new dispatch worker.
func NewWorker(store Store, service *Service, maxAttempts int) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Worker{
		store:       store,
		service:     service,
		maxAttempts: maxAttempts,
	}
}

// ProcessTask handles one dispatch task from the queue.
func (w *Worker) ProcessTask(ctx context.Context, notificationID string) error {
	n, err := w.store.GetByID(ctx, notificationID)
	if err != nil {
		return fmt.Errorf("fetching notification %s: %w", notificationID, err)
	}
	if n == nil {
		slog.Error("notification not found", "id", notificationID)
		return nil
	}

	switch n.Status {
	case StatusScheduled:
		// Defensive re-check: the sweep query can race the clock.
		if n.ScheduledFor != nil && n.ScheduledFor.After(time.Now().UTC()) {
			slog.Info("scheduled notification not yet due, skipping",
				"id", n.ID,
				"scheduled_for", n.ScheduledFor,
			)
			return nil
		}
		if !w.claim(ctx, n, StatusScheduled, StatusPending) {
			return nil
		}

	case StatusFailed:
		if n.Attempts >= w.maxAttempts {
			slog.Info("notification exhausted retry budget, skipping",
				"id", n.ID,
				"attempts", n.Attempts,
			)
			return nil
		}
		if !w.claim(ctx, n, StatusFailed, StatusRetrying) {
			return nil
		}

	default:
		// Already picked up elsewhere, or terminal.
		slog.Info("skipping notification in non-dispatchable state",
			"id", n.ID,
			"status", n.Status,
		)
		return nil
	}

	if _, err := w.service.Dispatch(ctx, n); err != nil {
		slog.Warn("dispatch task completed with failure",
			"id", n.ID,
			"channel", n.Channel,
			"attempts", n.Attempts,
			"error", err,
		)
	}
	return nil
}

func (w *Worker) claim(ctx context.Context, n *Notification, from, to Status) bool {
	claimed, err := w.store.Claim(ctx, n.ID, from, to)
	if err != nil {
		slog.Error("claim failed", "id", n.ID, "from", from, "to", to, "error", err)
		return false
	}
	if !claimed {
		slog.Info("notification already claimed", "id", n.ID, "expected", from)
		return false
	}
	n.Status = to
	return true
}
