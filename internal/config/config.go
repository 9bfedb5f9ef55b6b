package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server             ServerConfig             `mapstructure:"server"`
	Auth               AuthConfig               `mapstructure:"auth"`
	CORS               CORSConfig               `mapstructure:"cors"`
	RateLimit          RateLimitConfig          `mapstructure:"rate_limit"`
	RecipientRateLimit RecipientRateLimitConfig `mapstructure:"recipient_rate_limit"`
	Redis              RedisConfig              `mapstructure:"redis"`
	Supabase           SupabaseConfig           `mapstructure:"supabase"`
	Queue              QueueConfig              `mapstructure:"queue"`
	Scheduler          SchedulerConfig          `mapstructure:"scheduler"`
	Email              EmailConfig              `mapstructure:"email"`
	SMS                SMSConfig                `mapstructure:"sms"`
	WhatsApp           WhatsAppConfig           `mapstructure:"whatsapp"`
	Push               PushConfig               `mapstructure:"push"`
	TemplateCache      TemplateCacheConfig      `mapstructure:"template_cache"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// AuthConfig holds API key authentication settings.
type AuthConfig struct {
	APIKeys []string `mapstructure:"api_keys"`
}

// CORSConfig holds CORS policy settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// RecipientRateLimitConfig holds per-recipient rate limiting settings.
type RecipientRateLimitConfig struct {
	MaxPerHour int `mapstructure:"max_per_hour"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SupabaseConfig holds Supabase project settings.
type SupabaseConfig struct {
	URL        string `mapstructure:"url"`
	ServiceKey string `mapstructure:"service_key"`
}

// QueueConfig holds async queue settings.
type QueueConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// SchedulerConfig holds the poll loop settings: how often due scheduled
// notifications and retryable failures are swept, the retry ceiling, and
// the per-sweep batch size.
type SchedulerConfig struct {
	IntervalSec    int `mapstructure:"interval_sec"`
	MaxAttempts    int `mapstructure:"max_attempts"`
	BatchSize      int `mapstructure:"batch_size"`
	SendTimeoutSec int `mapstructure:"send_timeout_sec"`
}

// EmailConfig holds email provider settings.
type EmailConfig struct {
	APIKey      string `mapstructure:"api_key"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
}

// SMSConfig holds AWS SNS settings for the SMS channel.
type SMSConfig struct {
	Region   string `mapstructure:"region"`
	SenderID string `mapstructure:"sender_id"`
}

// WhatsAppConfig holds WhatsApp gateway settings.
type WhatsAppConfig struct {
	GatewayURL string `mapstructure:"gateway_url"`
	Token      string `mapstructure:"token"`
	FromNumber string `mapstructure:"from_number"`
}

// PushConfig holds push gateway settings.
type PushConfig struct {
	GatewayURL string `mapstructure:"gateway_url"`
	APIKey     string `mapstructure:"api_key"`
}

// TemplateCacheConfig holds template lookup cache settings.
type TemplateCacheConfig struct {
	TTLSec int    `mapstructure:"ttl_sec"`
	Locale string `mapstructure:"locale"`
}

// Load reads configuration from config.yaml and environment variables.
// Environment variables use the NOTIFICATIONS_ prefix and underscore separators.
// Example: NOTIFICATIONS_SERVER_PORT overrides server.port in config.yaml.
func Load() (*Config, error) {
	v := viper.New()

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Load .env file if it exists
	_ = godotenv.Load()

	// Environment variable settings
	v.SetEnvPrefix("NOTIFICATIONS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("recipient_rate_limit.max_per_hour", 10)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("scheduler.interval_sec", 60)
	v.SetDefault("scheduler.max_attempts", 3)
	v.SetDefault("scheduler.batch_size", 50)
	v.SetDefault("scheduler.send_timeout_sec", 15)
	v.SetDefault("email.from_address", "sistema@app.inncome.net")
	v.SetDefault("email.from_name", "Inncome")
	v.SetDefault("sms.region", "us-east-1")
	v.SetDefault("template_cache.ttl_sec", 300)
	v.SetDefault("template_cache.locale", "es_AR")

	// Read config file (optional — env vars can provide everything)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Handle comma-separated API keys from env var
	if apiKeysStr := v.GetString("auth.api_keys"); apiKeysStr != "" && len(cfg.Auth.APIKeys) == 0 {
		keys := strings.Split(apiKeysStr, ",")
		for i := range keys {
			keys[i] = strings.TrimSpace(keys[i])
		}
		cfg.Auth.APIKeys = keys
	}

	return &cfg, nil
}
