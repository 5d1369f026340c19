package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	SMSDriverLog  = "log"
	SMSDriverAMQP = "amqp"

	devJWTSecret = "development-secret"
)

type AppConfig struct {
	// Server
	AppEnv         string   `env:"APP_ENV" envDefault:"production"`
	HTTPAddr       string   `env:"HTTP_ADDR" envDefault:":8000"`
	BaseURL        string   `env:"BASE_URL" envDefault:"http://localhost:8000"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// Storage
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory"`
	DatabaseURL   string `env:"DATABASE_URL"`
	SeedSamples   bool   `env:"SEED_SAMPLE_BUSINESSES" envDefault:"true"`

	// Redis (empty address disables redis-backed features)
	RedisAddr string `env:"REDIS_ADDR"`
	RedisPass string `env:"REDIS_PASS"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// JWT
	JWT JWTConfig `envPrefix:"JWT_"`

	// SMS
	SMSDriver   string `env:"SMS_DRIVER" envDefault:"log"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	SMSQueue    string `env:"SMS_QUEUE" envDefault:"sms.outbound"`

	// Queue
	DefaultServiceMinutes int           `env:"DEFAULT_SERVICE_MINUTES" envDefault:"25"`
	NearFrontMinutes      int           `env:"NEAR_FRONT_MINUTES" envDefault:"15"`
	EventBufferSize       int           `env:"EVENT_BUFFER_SIZE" envDefault:"100"`
	PendingTTL            time.Duration `env:"PENDING_TTL" envDefault:"0s"`
	PendingSweepInterval  time.Duration `env:"PENDING_SWEEP_INTERVAL" envDefault:"1m"`

	RateLimitJoinPerMinute int `env:"RATE_LIMIT_JOIN_PER_MINUTE" envDefault:"10"`
}

type JWTConfig struct {
	Secret string        `env:"SECRET"`
	Issuer string        `env:"ISSUER" envDefault:"queueline"`
	TTL    time.Duration `env:"TTL" envDefault:"720h"`
}

// Load loads environment variables into AppConfig.
func Load() (AppConfig, error) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.JWT.Secret == "" && cfg.IsDevelopment() {
		cfg.JWT.Secret = devJWTSecret
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (c AppConfig) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Validate checks cross-field requirements.
func (c AppConfig) Validate() error {
	switch c.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	switch c.SMSDriver {
	case SMSDriverLog:
	case SMSDriverAMQP:
		if c.RabbitMQURL == "" {
			return fmt.Errorf("RABBITMQ_URL is required when SMS_DRIVER=amqp")
		}
	default:
		return fmt.Errorf("unknown SMS_DRIVER %q", c.SMSDriver)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.DefaultServiceMinutes <= 0 {
		return fmt.Errorf("DEFAULT_SERVICE_MINUTES must be positive")
	}
	if c.NearFrontMinutes < 0 {
		return fmt.Errorf("NEAR_FRONT_MINUTES must not be negative")
	}
	if c.PendingTTL < 0 {
		return fmt.Errorf("PENDING_TTL must not be negative")
	}
	return nil
}
