// Package retention reclaims storage occupied by expired cache entries.
//
// Cache reads already ignore entries past their expiry, so the janitor is
// purely about disk and memory hygiene: weather calendars and AI task plans
// keep accumulating per user/coordinate/day key, and without a sweep the
// cache tables grow without bound.
//
// The janitor runs as a background goroutine and respects context
// cancellation for graceful shutdown.
package retention

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agrisage/agrisage/backend/internal/store"
)

// DefaultInterval is how often the janitor sweeps when no interval is given.
const DefaultInterval = time.Hour

// Janitor periodically purges expired cache entries from every cache family.
type Janitor struct {
	store    store.CacheStore
	interval time.Duration
	now      func() time.Time
}

// Option configures a Janitor.
type Option func(*Janitor)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(j *Janitor) { j.now = now }
}

// NewJanitor creates a cache janitor that sweeps on the given interval.
// Intervals under a minute are raised to the default to avoid hammering
// the database.
func NewJanitor(s store.CacheStore, interval time.Duration, opts ...Option) *Janitor {
	if interval < time.Minute {
		interval = DefaultInterval
	}
	j := &Janitor{
		store:    s,
		interval: interval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Start runs the janitor until ctx is canceled. It sweeps once immediately
// on startup, then on every tick.
func (j *Janitor) Start(ctx context.Context) {
	log.Info().
		Dur("interval", j.interval).
		Msg("Cache janitor started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Cache janitor stopped")
			return
		case <-ticker.C:
			j.RunCycle(ctx)
		}
	}
}

// RunCycle performs one sweep across all cache families and returns the
// total number of entries purged.
func (j *Janitor) RunCycle(ctx context.Context) int {
	start := j.now()
	total := 0

	for _, family := range []store.CacheFamily{store.CacheWeather, store.CacheTasks} {
		purged, err := j.store.PurgeExpiredCache(ctx, family, start)
		if err != nil {
			log.Warn().Err(err).Str("family", string(family)).Msg("Cache purge failed")
			continue
		}
		total += purged
	}

	if total > 0 {
		log.Info().
			Int("purged", total).
			Dur("elapsed", time.Since(start)).
			Msg("Cache sweep complete")
	}
	return total
}
