package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, SMSDriverLog, cfg.SMSDriver)
	assert.Equal(t, "sms.outbound", cfg.SMSQueue)
	assert.Equal(t, 25, cfg.DefaultServiceMinutes)
	assert.Equal(t, 15, cfg.NearFrontMinutes)
	assert.Equal(t, 100, cfg.EventBufferSize)
	assert.Equal(t, time.Duration(0), cfg.PendingTTL)
	assert.Equal(t, time.Minute, cfg.PendingSweepInterval)
	assert.Equal(t, 10, cfg.RateLimitJoinPerMinute)
	assert.Equal(t, "queueline", cfg.JWT.Issuer)
	assert.Equal(t, 720*time.Hour, cfg.JWT.TTL)
	assert.True(t, cfg.SeedSamples)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/queue")
	t.Setenv("PENDING_TTL", "2h")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, 2*time.Hour, cfg.PendingTTL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}

func TestLoad_DevelopmentSecret(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, devJWTSecret, cfg.JWT.Secret)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"postgres without url", map[string]string{"JWT_SECRET": "x", "STORAGE_DRIVER": "postgres"}},
		{"unknown storage", map[string]string{"JWT_SECRET": "x", "STORAGE_DRIVER": "mongo"}},
		{"amqp without url", map[string]string{"JWT_SECRET": "x", "SMS_DRIVER": "amqp"}},
		{"bad duration", map[string]string{"JWT_SECRET": "x", "PENDING_TTL": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
