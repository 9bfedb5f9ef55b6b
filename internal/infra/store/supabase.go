package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"github.com/FrancoVillarLaz/notifications-service/internal/domain/notification"
)

const notificationsTable = "notifications"

var _ notification.Store = (*SupabaseStore)(nil)

// SupabaseStore implements notification.Store using the Supabase Go SDK.
type SupabaseStore struct {
	client *supa.Client
}

// NewSupabaseStore creates a new Supabase-backed notification store.
func NewSupabaseStore(supabaseURL, serviceKey string) (*SupabaseStore, error) {
	client, err := supa.NewClient(supabaseURL, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}
	return &SupabaseStore{client: client}, nil
}

// NewSupabaseStoreWithClient wraps an existing client, so both stores can
// share one connection.
func NewSupabaseStoreWithClient(client *supa.Client) *SupabaseStore {
	return &SupabaseStore{client: client}
}

// notificationRow is the internal representation for PostgREST insert/update.
type notificationRow struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Message      string         `json:"message,omitempty"`
	Recipients   []string       `json:"recipients"`
	Channel      string         `json:"channel"`
	Status       string         `json:"status"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	ScheduledFor *string        `json:"scheduled_for,omitempty"`
	CreatedAt    string         `json:"created_at,omitempty"`
	UpdatedAt    string         `json:"updated_at,omitempty"`
	SentAt       *string        `json:"sent_at,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	Attempts     int            `json:"attempts"`
}

// Save creates or updates a notification record (upsert on id).
func (s *SupabaseStore) Save(ctx context.Context, n *notification.Notification) error {
	row := toRow(n)

	_, _, err := s.client.From(notificationsTable).
		Insert(row, true, "id", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("saving notification %s: %w", n.ID, err)
	}

	return nil
}

// GetByID retrieves a notification by its ID. Returns nil, nil when absent.
func (s *SupabaseStore) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	data, _, err := s.client.From(notificationsTable).
		Select("*", "exact", false).
		Eq("id", id).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("fetching notification %s: %w", id, err)
	}

	var rows []notificationRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing notification: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	return fromRow(&rows[0]), nil
}

// List retrieves notifications with pagination and filtering.
func (s *SupabaseStore) List(ctx context.Context, filter notification.ListFilter) ([]*notification.Notification, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	offset := (filter.Page - 1) * filter.PageSize

	query := s.client.From(notificationsTable).Select("*", "exact", false)

	if filter.Status != "" {
		query = query.Eq("status", filter.Status)
	}
	if filter.Channel != "" {
		query = query.Eq("channel", filter.Channel)
	}
	if filter.Recipient != "" {
		query = query.Contains("recipients", []string{filter.Recipient})
	}

	query = query.Order("created_at", &postgrest.OrderOpts{Ascending: false})
	query = query.Range(offset, offset+filter.PageSize-1, "")

	data, count, err := query.Execute()
	if err != nil {
		return nil, 0, fmt.Errorf("listing notifications: %w", err)
	}

	var rows []notificationRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, 0, fmt.Errorf("parsing notification list: %w", err)
	}

	notifications := make([]*notification.Notification, len(rows))
	for i := range rows {
		notifications[i] = fromRow(&rows[i])
	}

	return notifications, int(count), nil
}

// ListScheduledDue retrieves SCHEDULED notifications due at or before now.
func (s *SupabaseStore) ListScheduledDue(ctx context.Context, now time.Time, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	query := s.client.From(notificationsTable).
		Select("*", "exact", false).
		Eq("status", string(notification.StatusScheduled)).
		Lte("scheduled_for", now.UTC().Format(time.RFC3339Nano)).
		Order("scheduled_for", &postgrest.OrderOpts{Ascending: true}).
		Range(0, limit-1, "")

	data, _, err := query.Execute()
	if err != nil {
		return nil, fmt.Errorf("listing due notifications: %w", err)
	}

	return parseRows(data)
}

// ListFailedUnderAttempts retrieves FAILED notifications below the retry ceiling.
func (s *SupabaseStore) ListFailedUnderAttempts(ctx context.Context, maxAttempts, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	query := s.client.From(notificationsTable).
		Select("*", "exact", false).
		Eq("status", string(notification.StatusFailed)).
		Lt("attempts", strconv.Itoa(maxAttempts)).
		Order("updated_at", &postgrest.OrderOpts{Ascending: true}).
		Range(0, limit-1, "")

	data, _, err := query.Execute()
	if err != nil {
		return nil, fmt.Errorf("listing retryable notifications: %w", err)
	}

	return parseRows(data)
}

// Claim performs a guarded status transition: the update is filtered on the
// expected current status, so only one dispatcher can win the row.
func (s *SupabaseStore) Claim(ctx context.Context, id string, from, to notification.Status) (bool, error) {
	update := map[string]any{
		"status":     string(to),
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}

	data, _, err := s.client.From(notificationsTable).
		Update(update, "representation", "").
		Eq("id", id).
		Eq("status", string(from)).
		Execute()
	if err != nil {
		return false, fmt.Errorf("claiming notification %s: %w", id, err)
	}

	var rows []notificationRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return false, fmt.Errorf("parsing claim response: %w", err)
	}

	return len(rows) > 0, nil
}

func parseRows(data []byte) ([]*notification.Notification, error) {
	var rows []notificationRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing notifications: %w", err)
	}

	notifications := make([]*notification.Notification, len(rows))
	for i := range rows {
		notifications[i] = fromRow(&rows[i])
	}
	return notifications, nil
}

func toRow(n *notification.Notification) notificationRow {
	row := notificationRow{
		ID:         n.ID,
		Title:      n.Title,
		Message:    n.Message,
		Recipients: n.Recipients,
		Channel:    string(n.Channel),
		Status:     string(n.Status),
		Metadata:   n.Metadata,
		Attempts:   n.Attempts,
	}

	if !n.CreatedAt.IsZero() {
		row.CreatedAt = n.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if !n.UpdatedAt.IsZero() {
		row.UpdatedAt = n.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	if n.ScheduledFor != nil {
		v := n.ScheduledFor.UTC().Format(time.RFC3339Nano)
		row.ScheduledFor = &v
	}
	if n.SentAt != nil {
		v := n.SentAt.UTC().Format(time.RFC3339Nano)
		row.SentAt = &v
	}
	if n.ErrorMessage != "" {
		row.ErrorMessage = &n.ErrorMessage
	}

	return row
}

func fromRow(row *notificationRow) *notification.Notification {
	n := &notification.Notification{
		ID:         row.ID,
		Title:      row.Title,
		Message:    row.Message,
		Recipients: row.Recipients,
		Channel:    notification.Channel(row.Channel),
		Status:     notification.Status(row.Status),
		Metadata:   row.Metadata,
		Attempts:   row.Attempts,
	}

	if row.ErrorMessage != nil {
		n.ErrorMessage = *row.ErrorMessage
	}
	n.CreatedAt = parseTime(row.CreatedAt)
	n.UpdatedAt = parseTime(row.UpdatedAt)
	if row.ScheduledFor != nil {
		if t := parseTime(*row.ScheduledFor); !t.IsZero() {
			n.ScheduledFor = &t
		}
	}
	if row.SentAt != nil {
		if t := parseTime(*row.SentAt); !t.IsZero() {
			n.SentAt = &t
		}
	}

	return n
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
