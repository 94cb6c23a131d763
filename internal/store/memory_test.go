package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agrisage/agrisage/backend/internal/store"
	"github.com/agrisage/agrisage/backend/pkg/models"
)

func newTestStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	return s
}

// ─── User CRUD ───────────────────────────────────────────────

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := &models.User{
		ID:         "u-1",
		Email:      "abeba@example.com",
		Name:       "Abeba",
		CropsGrown: []string{"teff", "maize"},
	}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	got, err := s.GetUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.Email != "abeba@example.com" {
		t.Errorf("GetUser().Email = %q, want abeba@example.com", got.Email)
	}

	byEmail, err := s.GetUserByEmail(ctx, "abeba@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if byEmail.ID != "u-1" {
		t.Errorf("GetUserByEmail().ID = %q, want u-1", byEmail.ID)
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetUser(context.Background(), "missing")
	var nf *store.ErrNotFound
	if !errors.As(err, &nf) {
		t.Errorf("GetUser() error = %v, want *ErrNotFound", err)
	}
}

func TestUpdateAndDeleteUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := &models.User{ID: "u-1", Email: "a@example.com"}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	user.Location = "Addis Ababa"
	if err := s.UpdateUser(ctx, user); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	got, _ := s.GetUser(ctx, "u-1")
	if got.Location != "Addis Ababa" {
		t.Errorf("Location = %q, want Addis Ababa", got.Location)
	}

	if err := s.DeleteUser(ctx, "u-1"); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if _, err := s.GetUser(ctx, "u-1"); err == nil {
		t.Error("GetUser() after delete should fail")
	}
}

// ─── Chat ────────────────────────────────────────────────────

func TestChatMessagesOrderedOldestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := &models.ChatSession{ID: "sess-1", UserID: "u-1", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	base := time.Now()
	for i, text := range []string{"hello", "hi there", "how do I treat rust?"} {
		msg := &models.ChatMessage{
			ID:        "m-" + text,
			SessionID: "sess-1",
			Sender:    models.SenderUser,
			Text:      text,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("AppendMessage(%q) error = %v", text, err)
		}
	}

	msgs, err := s.ListMessages(ctx, "sess-1", 0)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[0].Text != "hello" || msgs[2].Text != "how do I treat rust?" {
		t.Errorf("messages out of order: %q ... %q", msgs[0].Text, msgs[2].Text)
	}

	// Limit returns the newest window, still oldest first.
	msgs, _ = s.ListMessages(ctx, "sess-1", 2)
	if len(msgs) != 2 || msgs[0].Text != "hi there" {
		t.Errorf("limited window = %+v, want newest two oldest-first", msgs)
	}
}

func TestAppendMessageToMissingSession(t *testing.T) {
	s := newTestStore(t)
	msg := &models.ChatMessage{ID: "m-1", SessionID: "nope", Sender: models.SenderUser, Text: "x", Timestamp: time.Now()}
	if err := s.AppendMessage(context.Background(), msg); err == nil {
		t.Error("AppendMessage() to a missing session should fail")
	}
}

func TestListSessionsByUserNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"old", "new"} {
		sess := &models.ChatSession{
			ID: id, UserID: "u-1",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession(%q) error = %v", id, err)
		}
	}

	sessions, err := s.ListSessionsByUser(ctx, "u-1", 10)
	if err != nil {
		t.Fatalf("ListSessionsByUser() error = %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != "new" {
		t.Errorf("sessions = %+v, want newest first", sessions)
	}
}

// ─── Cache ───────────────────────────────────────────────────

func TestCacheRoundTripAndExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	s.SetClock(func() time.Time { return now })

	key := models.CacheKey{UserID: "u-1", Lat: 9.0, Lon: 38.0, Discriminator: "31"}
	entry := &models.CacheEntry{
		ID: "c-1", UserID: "u-1", Lat: 9.0, Lon: 38.0, Discriminator: "31",
		Payload:   []byte(`{"status":"success"}`),
		CreatedAt: now,
		ExpiresAt: now.Add(6 * time.Hour),
	}
	if err := s.PutCacheEntry(ctx, store.CacheWeather, entry); err != nil {
		t.Fatalf("PutCacheEntry() error = %v", err)
	}

	got, err := s.GetCacheEntry(ctx, store.CacheWeather, key)
	if err != nil {
		t.Fatalf("GetCacheEntry() error = %v", err)
	}
	if string(got.Payload) != `{"status":"success"}` {
		t.Errorf("payload = %s, want round-tripped blob", got.Payload)
	}

	// At the expiry instant the entry is already stale: valid iff now < expires_at.
	s.SetClock(func() time.Time { return now.Add(6 * time.Hour) })
	if _, err := s.GetCacheEntry(ctx, store.CacheWeather, key); err == nil {
		t.Error("GetCacheEntry() at expiry should miss")
	}
}

func TestCachePutSupersedesSameKeyOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	put := func(id, disc, payload string) {
		t.Helper()
		err := s.PutCacheEntry(ctx, store.CacheTasks, &models.CacheEntry{
			ID: id, UserID: "u-1", Lat: 9.0, Lon: 38.0, Discriminator: disc,
			Payload: []byte(payload), CreatedAt: now, ExpiresAt: now.Add(24 * time.Hour),
		})
		if err != nil {
			t.Fatalf("PutCacheEntry() error = %v", err)
		}
	}
	put("c-1", "2026-08-31", `["old"]`)
	put("c-2", "2026-09-01", `["other-day"]`)
	put("c-3", "2026-08-31", `["new"]`)

	got, err := s.GetCacheEntry(ctx, store.CacheTasks, models.CacheKey{
		UserID: "u-1", Lat: 9.0, Lon: 38.0, Discriminator: "2026-08-31",
	})
	if err != nil {
		t.Fatalf("GetCacheEntry() error = %v", err)
	}
	if string(got.Payload) != `["new"]` {
		t.Errorf("payload = %s, want the superseding write", got.Payload)
	}

	other, err := s.GetCacheEntry(ctx, store.CacheTasks, models.CacheKey{
		UserID: "u-1", Lat: 9.0, Lon: 38.0, Discriminator: "2026-09-01",
	})
	if err != nil {
		t.Fatalf("GetCacheEntry() for sibling key error = %v", err)
	}
	if string(other.Payload) != `["other-day"]` {
		t.Errorf("sibling key payload = %s, want untouched", other.Payload)
	}
}
