package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/tap-services/internal/tapsvc/models"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "tap:profile:"

// ProfileCache keeps public profiles in Redis keyed by username.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func NewProfileCache(client *redis.Client, ttl time.Duration) *ProfileCache {
	return &ProfileCache{client: client, ttl: ttl}
}

func Key(username string) string {
	return keyPrefix + username
}

// Get returns nil, nil on a miss.
func (c *ProfileCache) Get(ctx context.Context, username string) (*models.Profile, error) {
	data, err := c.client.Get(ctx, Key(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile from cache: %w", err)
	}

	var p models.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		_ = c.client.Del(ctx, Key(username))
		return nil, fmt.Errorf("failed to unmarshal cached profile: %w", err)
	}
	return &p, nil
}

func (c *ProfileCache) Set(ctx context.Context, p *models.Profile) error {
	if p == nil || p.Username == "" {
		return nil
	}

	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, Key(p.Username), data, c.ttl).Err()
}

func (c *ProfileCache) Delete(ctx context.Context, usernames ...string) error {
	keys := make([]string, 0, len(usernames))
	for _, u := range usernames {
		if u != "" {
			keys = append(keys, Key(u))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
