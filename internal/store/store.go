// Package store provides the storage interface and implementations for the
// AgriSage backend. The in-memory store backs local development and tests;
// PostgreSQL backs production.
package store

import (
	"context"
	"time"

	"github.com/agrisage/agrisage/backend/pkg/models"
)

// Store is the primary storage interface. All handler and flow code depends
// on this interface, making it easy to swap between in-memory (tests) and
// PostgreSQL (production) implementations.
type Store interface {
	UserStore
	ChatStore
	CacheStore

	// Ping checks if the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error

	// Migrate runs database migrations.
	Migrate(ctx context.Context) error
}

// ── User Store ──────────────────────────────────────────────

type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error
}

// ── Chat Store ──────────────────────────────────────────────

// ChatStore manages conversation sessions and their append-only message
// logs. Messages are returned oldest first.
type ChatStore interface {
	CreateSession(ctx context.Context, session *models.ChatSession) error
	GetSession(ctx context.Context, id string) (*models.ChatSession, error)
	ListSessionsByUser(ctx context.Context, userID string, limit int) ([]models.ChatSession, error)
	DeleteSession(ctx context.Context, id string) error

	AppendMessage(ctx context.Context, msg *models.ChatMessage) error
	ListMessages(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error)
}

// ── Cache Store ─────────────────────────────────────────────

// CacheFamily selects one of the derived-artifact cache tables.
type CacheFamily string

const (
	CacheWeather CacheFamily = "weather_cache"
	CacheTasks   CacheFamily = "ai_task_cache"
)

// CacheStore persists derived artifacts keyed by user, coordinates, and a
// per-family discriminator. At most one live entry exists per key: a put
// supersedes all prior entries for the same key, and a get only returns an
// entry whose expiry is still in the future.
type CacheStore interface {
	GetCacheEntry(ctx context.Context, family CacheFamily, key models.CacheKey) (*models.CacheEntry, error)
	PutCacheEntry(ctx context.Context, family CacheFamily, entry *models.CacheEntry) error

	// PurgeExpiredCache deletes entries whose expiry is at or before cutoff
	// and reports how many were removed. Reads already ignore expired
	// entries; this reclaims the storage they occupy.
	PurgeExpiredCache(ctx context.Context, family CacheFamily, cutoff time.Time) (int, error)
}

// ── Errors ──────────────────────────────────────────────────

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}
