package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/FrancoVillarLaz/notifications-service/internal/common"
	"github.com/FrancoVillarLaz/notifications-service/internal/domain/template"
)

// TemplateRenderer defines the contract for the template rendering pipeline.
type TemplateRenderer interface {
	Render(ctx context.Context, code string, vars map[string]any) (*template.RenderedMessage, error)
}

// Service is the dispatch orchestrator: it persists the notification,
// resolves the channel strategy, validates, sends, and transitions state.
// Every failure mode flows through here so the outcome is always durably
// recorded.
type Service struct {
	store       Store
	registry    *Registry
	renderer    TemplateRenderer
	sendTimeout time.Duration
}

// NewService creates a new dispatch service. sendTimeout bounds each
// provider call; it is the only guard against a stuck provider.
func NewService(store Store, registry *Registry, renderer TemplateRenderer, sendTimeout time.Duration) *Service {
	if sendTimeout <= 0 {
		sendTimeout = 15 * time.Second
	}
	return &Service{
		store:       store,
		registry:    registry,
		renderer:    renderer,
		sendTimeout: sendTimeout,
	}
}

// Dispatch runs the full persist → resolve → validate → send → finalize
// sequence for one notification. Terminal notifications are returned
// untouched: re-dispatching a SENT or CANCELLED item must not re-deliver.
func (s *Service) Dispatch(ctx context.Context, n *Notification) (*Notification, error) {
	if n.Status.Terminal() {
		slog.Warn("skipping dispatch of terminal notification",
			"id", n.ID,
			"status", n.Status,
		)
		return n, nil
	}

	start := time.Now()

	// Durability point: if this save fails, nothing else happens.
	n.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, n); err != nil {
		return nil, common.NewPersistenceError("dispatch save", err)
	}

	strategy, err := s.registry.Resolve(n.Channel)
	if err != nil {
		return nil, s.fail(ctx, n, err, false)
	}

	if err := strategy.Validate(n); err != nil {
		return nil, s.fail(ctx, n, err, false)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	if err := strategy.Send(sendCtx, n); err != nil {
		slog.Error("notification delivery failed",
			"id", n.ID,
			"channel", n.Channel,
			"recipients", len(n.Recipients),
			"attempt", n.Attempts+1,
			"error", err,
			"duration", time.Since(start),
		)
		var sendErr *common.SendError
		if !errors.As(err, &sendErr) {
			err = common.NewSendError(string(n.Channel), err.Error())
		}
		return nil, s.fail(ctx, n, err, true)
	}

	n.MarkSent()
	if err := s.store.Save(ctx, n); err != nil {
		return nil, common.NewPersistenceError("finalize save", err)
	}

	slog.Info("notification sent",
		"id", n.ID,
		"channel", n.Channel,
		"recipients", len(n.Recipients),
		"duration", time.Since(start),
	)

	return n, nil
}

// fail marks the notification FAILED, persists it, and returns the original
// error. Only provider send failures count as a delivery attempt.
func (s *Service) fail(ctx context.Context, n *Notification, cause error, countAttempt bool) error {
	if countAttempt {
		n.MarkSendFailure(cause.Error())
	} else {
		n.MarkFailed(cause.Error())
	}

	if err := s.store.Save(ctx, n); err != nil {
		slog.Error("failed to persist failure state",
			"id", n.ID,
			"cause", cause,
			"error", err,
		)
	}

	return cause
}

// DispatchTemplate renders a stored template and dispatches the result over
// the given channel. The rendered plain-text body and the template code
// travel in metadata so channel strategies can use them without the engine
// knowing channel specifics.
func (s *Service) DispatchTemplate(ctx context.Context, code string, recipients []string, vars map[string]any, ch Channel) (*Notification, error) {
	rendered, err := s.renderer.Render(ctx, code, vars)
	if err != nil {
		return nil, err
	}

	n, err := New(Params{
		Title:      rendered.Subject,
		Message:    rendered.HTMLBody,
		Recipients: recipients,
		Channel:    ch,
		Metadata: map[string]any{
			MetadataKeyTemplateCode: code,
			MetadataKeyTextBody:     rendered.TextBody,
		},
	})
	if err != nil {
		return nil, err
	}

	return s.Dispatch(ctx, n)
}

// Schedule persists a notification for deferred delivery without dispatching.
// The poller picks it up once its scheduled-for time arrives.
func (s *Service) Schedule(ctx context.Context, n *Notification) (*Notification, error) {
	if n.ScheduledFor == nil {
		return nil, common.NewValidationError("scheduled_for is required to schedule a notification")
	}
	n.Status = StatusScheduled
	n.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, n); err != nil {
		return nil, common.NewPersistenceError("schedule save", err)
	}

	slog.Info("notification scheduled",
		"id", n.ID,
		"channel", n.Channel,
		"scheduled_for", n.ScheduledFor,
	)

	return n, nil
}

// RetryFailed re-dispatches FAILED notifications whose attempt count is
// below maxAttempts. One item's failure never aborts the batch; each
// outcome is logged independently. Returns the number of retries attempted.
func (s *Service) RetryFailed(ctx context.Context, maxAttempts int) (int, error) {
	failed, err := s.store.ListFailedUnderAttempts(ctx, maxAttempts, 0)
	if err != nil {
		return 0, common.NewPersistenceError("retry query", err)
	}

	if len(failed) == 0 {
		return 0, nil
	}

	slog.Info("retrying failed notifications", "count", len(failed), "max_attempts", maxAttempts)

	retried := 0
	for _, n := range failed {
		claimed, err := s.store.Claim(ctx, n.ID, StatusFailed, StatusRetrying)
		if err != nil {
			slog.Error("retry claim failed", "id", n.ID, "error", err)
			continue
		}
		if !claimed {
			continue
		}
		n.Status = StatusRetrying

		retried++
		if _, err := s.Dispatch(ctx, n); err != nil {
			slog.Warn("retry attempt failed", "id", n.ID, "attempts", n.Attempts, "error", err)
		}
	}

	return retried, nil
}

// Get retrieves a notification by ID.
func (s *Service) Get(ctx context.Context, id string) (*Notification, error) {
	n, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, common.NewPersistenceError("get", err)
	}
	if n == nil {
		return nil, common.NewNotFoundError("notification", id)
	}
	return n, nil
}

// List retrieves notification history with pagination and filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (*ListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	notifications, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, common.NewPersistenceError("list", err)
	}

	return &ListResponse{
		Notifications: notifications,
		Total:         total,
		Page:          filter.Page,
		PageSize:      filter.PageSize,
	}, nil
}

// Cancel transitions a non-terminal notification to CANCELLED.
func (s *Service) Cancel(ctx context.Context, id string) (*Notification, error) {
	n, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := n.Cancel(); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, n); err != nil {
		return nil, common.NewPersistenceError("cancel save", err)
	}
	return n, nil
}

// SupportedChannels reports the channels with a registered strategy.
func (s *Service) SupportedChannels() []Channel {
	return s.registry.SupportedChannels()
}
