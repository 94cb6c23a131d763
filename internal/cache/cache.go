// Package cache implements the cache-aside layer for expensive derived
// artifacts: calendar weather payloads and AI task lists. The store is the
// source of truth for expiry; a storage error on either side degrades to a
// miss so a broken cache never breaks a flow.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/agrisage/agrisage/backend/internal/store"
	"github.com/agrisage/agrisage/backend/pkg/models"
)

// Default TTLs per artifact family.
const (
	DefaultWeatherTTL = 6 * time.Hour
	DefaultTasksTTL   = 24 * time.Hour
)

// Cache wraps a CacheStore with per-family TTL policy.
type Cache struct {
	store      store.CacheStore
	weatherTTL time.Duration
	tasksTTL   time.Duration
	now        func() time.Time
}

// Option configures the cache.
type Option func(*Cache)

// WithWeatherTTL overrides the weather entry lifetime.
func WithWeatherTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.weatherTTL = ttl }
}

// WithTasksTTL overrides the AI task entry lifetime.
func WithTasksTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.tasksTTL = ttl }
}

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates the cache-aside layer over a CacheStore.
func New(s store.CacheStore, opts ...Option) *Cache {
	c := &Cache{
		store:      s,
		weatherTTL: DefaultWeatherTTL,
		tasksTTL:   DefaultTasksTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetWeather returns the cached calendar payload for a key, or ok=false on
// a miss, an expired entry, or a storage error.
func (c *Cache) GetWeather(ctx context.Context, key models.CacheKey) (json.RawMessage, bool) {
	return c.get(ctx, store.CacheWeather, key)
}

// PutWeather stores a calendar payload under the weather TTL, superseding
// prior entries for the key.
func (c *Cache) PutWeather(ctx context.Context, key models.CacheKey, payload json.RawMessage) {
	c.put(ctx, store.CacheWeather, key, payload, c.weatherTTL)
}

// GetTasks returns the cached AI task payload for a key, or ok=false.
func (c *Cache) GetTasks(ctx context.Context, key models.CacheKey) (json.RawMessage, bool) {
	return c.get(ctx, store.CacheTasks, key)
}

// PutTasks stores an AI task payload under the tasks TTL.
func (c *Cache) PutTasks(ctx context.Context, key models.CacheKey, payload json.RawMessage) {
	c.put(ctx, store.CacheTasks, key, payload, c.tasksTTL)
}

func (c *Cache) get(ctx context.Context, family store.CacheFamily, key models.CacheKey) (json.RawMessage, bool) {
	entry, err := c.store.GetCacheEntry(ctx, family, key)
	if err != nil {
		// A plain miss is the normal path; anything else means the cache
		// backend is unhealthy and should be visible.
		var nf *store.ErrNotFound
		if !errors.As(err, &nf) {
			log.Warn().Err(err).Str("family", string(family)).Msg("cache read failed")
		}
		return nil, false
	}
	return entry.Payload, true
}

func (c *Cache) put(ctx context.Context, family store.CacheFamily, key models.CacheKey, payload json.RawMessage, ttl time.Duration) {
	now := c.now()
	entry := &models.CacheEntry{
		ID:            uuid.NewString(),
		UserID:        key.UserID,
		Lat:           key.Lat,
		Lon:           key.Lon,
		Discriminator: key.Discriminator,
		Payload:       payload,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}
	if err := c.store.PutCacheEntry(ctx, family, entry); err != nil {
		log.Warn().Err(err).Str("family", string(family)).Msg("cache write failed")
	}
}
