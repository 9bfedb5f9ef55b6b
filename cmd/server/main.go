package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FrancoVillarLaz/notifications-service/internal/config"
	"github.com/FrancoVillarLaz/notifications-service/internal/domain/notification"
	"github.com/FrancoVillarLaz/notifications-service/internal/domain/template"
	"github.com/FrancoVillarLaz/notifications-service/internal/infra/cache"
	"github.com/FrancoVillarLaz/notifications-service/internal/infra/channel"
	"github.com/FrancoVillarLaz/notifications-service/internal/infra/ratelimit"
	"github.com/FrancoVillarLaz/notifications-service/internal/infra/store"
	"github.com/FrancoVillarLaz/notifications-service/internal/router"
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

	slog.Info("configuration loaded", "port", cfg.Server.Port, "mode", cfg.Server.Mode)

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
	slog.Info("template cache initialized", "ttl_sec", cfg.TemplateCache.TTLSec)

	// Template Service (rendering pipeline)
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

	// Recipient Rate Limiter
	recipientLimiter := ratelimit.NewRedisRecipientLimiter(
		cfg.Redis.Address,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.RecipientRateLimit.MaxPerHour,
	)
	defer recipientLimiter.Close()
	slog.Info("recipient rate limiter initialized", "max_per_hour", cfg.RecipientRateLimit.MaxPerHour)

	// Notification Service
	notificationService := notification.NewService(
		notifStore,
		registry,
		tmplService,
		time.Duration(cfg.Scheduler.SendTimeoutSec)*time.Second,
	)

	// Handler
	notificationHandler := notification.NewHandler(notificationService, tmplService, recipientLimiter)

	// Router
	r := router.New(cfg, notificationHandler)

	// ==========================================
	// HTTP Server with Graceful Shutdown
	// ==========================================

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Give outstanding requests 10 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// buildRegistry wires every configured channel strategy. SMS is optional:
// when AWS credentials are unavailable the service still serves the other
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
