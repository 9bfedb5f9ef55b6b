package notification

import (
	"context"
	"time"
)

// Store defines the contract for persisting notifications.
// Implementations live in infra/store/ (e.g., Supabase).
type Store interface {
	// Save creates or updates a notification record.
	Save(ctx context.Context, n *Notification) error

	// GetByID retrieves a notification by its ID.
	// Returns nil, nil if no record is found.
	GetByID(ctx context.Context, id string) (*Notification, error)

	// List retrieves notifications with pagination and filtering.
	List(ctx context.Context, filter ListFilter) ([]*Notification, int, error)

	// ListScheduledDue retrieves SCHEDULED notifications whose scheduled-for
	// time is at or before now, oldest first.
	ListScheduledDue(ctx context.Context, now time.Time, limit int) ([]*Notification, error)

	// ListFailedUnderAttempts retrieves FAILED notifications with an attempt
	// count below maxAttempts.
	ListFailedUnderAttempts(ctx context.Context, maxAttempts, limit int) ([]*Notification, error)

	// Claim transitions a notification from one status to another only if it
	// still holds the expected status. Returns false when the guard did not
	// match, which means another dispatcher holds the item.
	Claim(ctx context.Context, id string, from, to Status) (bool, error)
}
