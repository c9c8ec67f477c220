package config

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port       string
	MongoURI   string // empty disables feed history
	JWTSecret  string
	HistoryTTL time.Duration
	RateLimit  int // requests per minute per IP, 0 disables
	Origins    []string
}

func Load() (Config, error) {
	cfg := Config{
		Port:      get("FEED_SERVICE_PORT", "8081"),
		MongoURI:  os.Getenv("MONGODB_URI"),
		JWTSecret: os.Getenv("JWT_SECRET_KEY"),
		Origins:   splitList(os.Getenv("CORS_ORIGINS")),
	}

	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET_KEY is required")
	}

	ttl, err := time.ParseDuration(get("FEED_HISTORY_TTL", "24h"))
	if err != nil {
		return cfg, fmt.Errorf("invalid FEED_HISTORY_TTL value: %w", err)
	}
	if ttl <= 0 {
		return cfg, fmt.Errorf("FEED_HISTORY_TTL must be positive")
	}
	cfg.HistoryTTL = ttl

	rateLimit, err := strconv.Atoi(get("RATE_LIMIT", "120"))
	if err != nil {
		return cfg, fmt.Errorf("invalid RATE_LIMIT value: %w", err)
	}
	cfg.RateLimit = rateLimit

	return cfg, nil
}

// CheckOrigin accepts requests without an Origin header and those whose
// origin is listed. An empty list accepts every origin.
func (c Config) CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(c.Origins) == 0 {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, o := range c.Origins {
		if strings.EqualFold(strings.TrimRight(o, "/"), u.Scheme+"://"+u.Host) {
			return true
		}
	}
	return false
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
