// Package store — in-memory Store implementation.
// Used as a fallback when PostgreSQL is not available (local dev, tests).
package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/agrisage/agrisage/backend/pkg/models"
)

// MemoryStore implements Store with in-memory maps.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*models.User                       // key: id
	sessions map[string]*models.ChatSession                // key: id
	messages map[string][]*models.ChatMessage              // key: session_id, oldest first
	caches   map[CacheFamily]map[string]*models.CacheEntry // family → key → entry

	// now is swappable so expiry tests don't have to sleep.
	now func() time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*models.User),
		sessions: make(map[string]*models.ChatSession),
		messages: make(map[string][]*models.ChatMessage),
		caches: map[CacheFamily]map[string]*models.CacheEntry{
			CacheWeather: {},
			CacheTasks:   {},
		},
		now: time.Now,
	}
}

// SetClock overrides the store's time source. Tests only.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Migrate(ctx context.Context) error { return nil }

// ── Users ───────────────────────────────────────────────────

func (m *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "user", Key: id}
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, &ErrNotFound{Entity: "user", Key: email}
}

func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return &ErrNotFound{Entity: "user", Key: user.ID}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return &ErrNotFound{Entity: "user", Key: id}
	}
	delete(m.users, id)
	return nil
}

// ── Chat ────────────────────────────────────────────────────

func (m *MemoryStore) CreateSession(ctx context.Context, session *models.ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	m.sessions[session.ID] = &cp
	return nil
}

func (m *MemoryStore) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "chat session", Key: id}
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) ListSessionsByUser(ctx context.Context, userID string, limit int) ([]models.ChatSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.ChatSession{}
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return &ErrNotFound{Entity: "chat session", Key: id}
	}
	delete(m.sessions, id)
	delete(m.messages, id)
	return nil
}

func (m *MemoryStore) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[msg.SessionID]
	if !ok {
		return &ErrNotFound{Entity: "chat session", Key: msg.SessionID}
	}
	cp := *msg
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], &cp)
	s.UpdatedAt = msg.Timestamp
	return nil
}

func (m *MemoryStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.messages[sessionID]
	start := 0
	if limit > 0 && len(msgs) > limit {
		start = len(msgs) - limit
	}
	out := make([]models.ChatMessage, 0, len(msgs)-start)
	for _, msg := range msgs[start:] {
		out = append(out, *msg)
	}
	return out, nil
}

// ── Cache ───────────────────────────────────────────────────

func cacheMapKey(key models.CacheKey) string {
	return key.UserID + "|" +
		strconv.FormatFloat(key.Lat, 'f', -1, 64) + "|" +
		strconv.FormatFloat(key.Lon, 'f', -1, 64) + "|" +
		key.Discriminator
}

func (m *MemoryStore) GetCacheEntry(ctx context.Context, family CacheFamily, key models.CacheKey) (*models.CacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries, ok := m.caches[family]
	if !ok {
		return nil, &ErrNotFound{Entity: string(family), Key: cacheMapKey(key)}
	}
	e, ok := entries[cacheMapKey(key)]
	if !ok || !m.now().Before(e.ExpiresAt) {
		return nil, &ErrNotFound{Entity: string(family), Key: cacheMapKey(key)}
	}
	cp := *e
	return &cp, nil
}

func (m *MemoryStore) PutCacheEntry(ctx context.Context, family CacheFamily, entry *models.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, ok := m.caches[family]
	if !ok {
		entries = map[string]*models.CacheEntry{}
		m.caches[family] = entries
	}
	key := cacheMapKey(models.CacheKey{
		UserID:        entry.UserID,
		Lat:           entry.Lat,
		Lon:           entry.Lon,
		Discriminator: entry.Discriminator,
	})
	cp := *entry
	// Supersedes any prior entry for the same key.
	entries[key] = &cp
	return nil
}

func (m *MemoryStore) PurgeExpiredCache(ctx context.Context, family CacheFamily, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, ok := m.caches[family]
	if !ok {
		return 0, nil
	}
	purged := 0
	for key, e := range entries {
		if !e.ExpiresAt.After(cutoff) {
			delete(entries, key)
			purged++
		}
	}
	return purged, nil
}
