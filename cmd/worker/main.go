package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/FrancoVillarLaz/notifications-service/internal/config"
	"github.com/FrancoVillarLaz/notifications-service/internal/domain/notification"
	"github.com/FrancoVillarLaz/notifications-service/internal/domain/template"
	"github.com/FrancoVillarLaz/notifications-service/internal/infra/cache"
	"github.com/FrancoVillarLaz/notifications-service/internal/infra/channel"
	"github.com/FrancoVillarLaz/notifications-service/internal/infra/queue"
	"github.com/FrancoVillarLaz/notifications-service/internal/infra/store"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("worker configuration loaded")

	// ==========================================
	// Dependency Injection (Manual Wiring)
	// ==========================================

	// Supabase Stores
	notifStore, err := store.NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.ServiceKey)
	if err != nil {
		slog.Error("failed to initialize supabase store", "error", err)
		os.Exit(1)
	}
	tmplStore, err := store.NewSupabaseTemplateStore(cfg.Supabase.URL, cfg.Supabase.ServiceKey)
	if err != nil {
		slog.Error("failed to initialize supabase template store", "error", err)
		os.Exit(1)
	}
	slog.Info("supabase stores initialized")

	// Redis Template Cache
	tmplCache := cache.NewRedisTemplateCache(
		cfg.Redis.Address,
		cfg.Redis.Password,
		cfg.Redis.DB,
		time.Duration(cfg.TemplateCache.TTLSec)*time.Second,
	)
	defer tmplCache.Close()

	// Template Service
	tmplService := template.NewService(tmplStore,
		template.WithCache(tmplCache, cfg.TemplateCache.Locale),
	)

	// Channel Strategies
	registry, err := buildRegistry(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to build channel registry", "error", err)
		os.Exit(1)
	}
	slog.Info("channel registry initialized", "channels", registry.SupportedChannels())

	// Notification Service + Worker
	notificationService := notification.NewService(
		notifStore,
		registry,
		tmplService,
		time.Duration(cfg.Scheduler.SendTimeoutSec)*time.Second,
	)
	notifWorker := notification.NewWorker(notifStore, notificationService, cfg.Scheduler.MaxAttempts)

	// Asynq Client (for the scheduler's enqueues)
	asynqClient := queue.NewClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	defer asynqClient.Close()

	enqueuer := queue.NewEnqueuer(asynqClient)

	// ==========================================
	// Asynq Server (task processing)
	// ==========================================

	asynqServer := queue.NewServer(
		cfg.Redis.Address,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Queue.Concurrency,
	)

	// Register task handlers
	mux := asynq.NewServeMux()
	mux.HandleFunc(notification.TaskTypeDispatch, func(ctx context.Context, task *asynq.Task) error {
		payload, err := notification.ParseDispatchPayload(task.Payload())
		if err != nil {
			return err
		}
		return notifWorker.ProcessTask(ctx, payload.NotificationID)
	})

	// Start the asynq worker in a goroutine
	go func() {
		slog.Info("worker starting",
			"concurrency", cfg.Queue.Concurrency,
			"redis", cfg.Redis.Address,
		)
		if err := asynqServer.Run(mux); err != nil {
			slog.Error("worker failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// ==========================================
	// Scheduler (due and retryable sweep)
	// ==========================================

	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()

	scheduler := notification.NewScheduler(notifStore, enqueuer, notification.SchedulerConfig{
		Interval:    time.Duration(cfg.Scheduler.IntervalSec) * time.Second,
		MaxAttempts: cfg.Scheduler.MaxAttempts,
		BatchSize:   cfg.Scheduler.BatchSize,
	})

	go scheduler.Run(schedCtx)

	// ==========================================
	// Graceful Shutdown
	// ==========================================

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	schedCancel() // Stop the scheduler first
	asynqServer.Shutdown()
	slog.Info("worker exited gracefully")
}

// buildRegistry wires every configured channel strategy. SMS is optional:
// when AWS credentials are unavailable the worker still serves the other
// channels.
func buildRegistry(ctx context.Context, cfg *config.Config) (*notification.Registry, error) {
	strategies := []notification.Strategy{
		channel.NewEmailStrategy(cfg.Email.APIKey, cfg.Email.FromAddress, cfg.Email.FromName),
		channel.NewWhatsAppStrategy(cfg.WhatsApp.GatewayURL, cfg.WhatsApp.Token, cfg.WhatsApp.FromNumber),
		channel.NewPushStrategy(cfg.Push.GatewayURL, cfg.Push.APIKey),
	}

	smsStrategy, err := channel.NewSMSStrategy(ctx, cfg.SMS.Region, cfg.SMS.SenderID)
	if err != nil {
		slog.Warn("SMS strategy unavailable, channel disabled", "error", err)
	} else {
		strategies = append(strategies, smsStrategy)
	}

	return notification.NewRegistry(strategies...)
}
