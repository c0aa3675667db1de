package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "BOARD_USE_MQ", "MAX_UPLOAD_MB", "IDEMPOTENCY_TTL", "WS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.UseMQ)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 10*time.Minute, cfg.IdempotencyTTL)
	assert.Empty(t, cfg.WSAllowedOrigins)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BOARD_USE_MQ", "false")
	t.Setenv("MAX_UPLOAD_MB", "2")
	t.Setenv("IDEMPOTENCY_TTL", "90s")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://board.example.com, https://admin.example.com")

	cfg := LoadConfig()

	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.UseMQ)
	assert.Equal(t, int64(2<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 90*time.Second, cfg.IdempotencyTTL)
	assert.Equal(t, []string{"https://board.example.com", "https://admin.example.com"}, cfg.WSAllowedOrigins)
}
