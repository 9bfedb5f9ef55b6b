package queue

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/FrancoVillarLaz/notifications-service/internal/domain/notification"
)

// NewClient creates a new asynq client connected to Redis.
func NewClient(redisAddr, password string, db int) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: password,
		DB:       db,
	})
}

// NewServer creates a new asynq server connected to Redis. Queue-level
// retries are disabled; the dispatch state machine owns retry policy.
func NewServer(redisAddr, password string, db int, concurrency int) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisAddr,
			Password: password,
			DB:       db,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"notifications": 10, // priority weight
				"default":       1,
			},
		},
	)
}

// Enqueuer wraps an asynq client for the scheduler.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer creates a new enqueuer around an asynq client.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

var _ notification.Enqueuer = (*Enqueuer)(nil)

// EnqueueDispatch enqueues a dispatch task for the notification. The task
// ID pins one in-flight task per notification, so re-enqueueing an item a
// later sweep sees again is a no-op instead of a duplicate.
func (e *Enqueuer) EnqueueDispatch(notificationID string) error {
	task, err := notification.NewDispatchTask(notificationID)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}

	_, err = e.client.Enqueue(task,
		asynq.TaskID("dispatch:"+notificationID),
		asynq.MaxRetry(0),
		asynq.Queue("notifications"),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			slog.Debug("dispatch task already queued", "id", notificationID)
			return nil
		}
		return fmt.Errorf("enqueuing task: %w", err)
	}

	return nil
}
