package config

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("FEED_SERVICE_PORT", "")
	t.Setenv("MONGODB_URI", "")
	t.Setenv("FEED_HISTORY_TTL", "")
	t.Setenv("RATE_LIMIT", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Empty(t, cfg.MongoURI)
	assert.Equal(t, 24*time.Hour, cfg.HistoryTTL)
	assert.Equal(t, 120, cfg.RateLimit)
	assert.Empty(t, cfg.Origins)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("FEED_HISTORY_TTL", "soon")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("FEED_HISTORY_TTL", "-1h")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("FEED_HISTORY_TTL", "1h")
	t.Setenv("RATE_LIMIT", "lots")
	_, err = Load()
	assert.Error(t, err)
}

func TestCheckOrigin(t *testing.T) {
	cfg := Config{Origins: []string{"https://app.example.com/", "http://localhost:5173"}}

	r := httptest.NewRequest("GET", "/v1/ws", nil)
	assert.True(t, cfg.CheckOrigin(r), "no origin header")

	r.Header.Set("Origin", "https://app.example.com")
	assert.True(t, cfg.CheckOrigin(r))

	r.Header.Set("Origin", "http://localhost:5173")
	assert.True(t, cfg.CheckOrigin(r))

	r.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, cfg.CheckOrigin(r))

	open := Config{}
	assert.True(t, open.CheckOrigin(r))
}
