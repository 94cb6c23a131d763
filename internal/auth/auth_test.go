package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agrisage/agrisage/backend/internal/auth"
	"github.com/agrisage/agrisage/backend/internal/store"
	"github.com/agrisage/agrisage/backend/pkg/models"
)

func TestIssueAndValidateToken(t *testing.T) {
	svc := auth.NewService("test-secret")

	token, err := svc.IssueToken("u-1")
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	userID, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if userID != "u-1" {
		t.Errorf("subject = %q, want u-1", userID)
	}
}

func TestValidateTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	svc := auth.NewService("secret-a")
	other := auth.NewService("secret-b")

	token, err := svc.IssueToken("u-1")
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("token signed with another secret must not validate")
	}

	issued := time.Now()
	expired := auth.NewService("secret-a",
		auth.WithTokenTTL(time.Hour),
		auth.WithClock(func() time.Time { return issued }))
	token, err = expired.IssueToken("u-1")
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	late := auth.NewService("secret-a",
		auth.WithClock(func() time.Time { return issued.Add(2 * time.Hour) }))
	if _, err := late.ValidateToken(token); err == nil {
		t.Error("expired token must not validate")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	svc := auth.NewService("s")

	hash, err := svc.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "hunter2" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !svc.CheckPassword(hash, "hunter2") {
		t.Error("correct password rejected")
	}
	if svc.CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

func TestMiddleware(t *testing.T) {
	svc := auth.NewService("test-secret")
	mem := store.NewMemoryStore()
	t.Cleanup(func() { mem.Close() })

	ctx := context.Background()
	if err := mem.CreateUser(ctx, &models.User{ID: "u-1", Email: "a@example.com"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	var seenUserID string
	handler := auth.Middleware(svc, mem)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID, _ = auth.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	call := func(authz string) int {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := call(""); code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", code)
	}
	if code := call("Bearer not-a-token"); code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", code)
	}

	ghost, _ := svc.IssueToken("deleted-user")
	if code := call("Bearer " + ghost); code != http.StatusUnauthorized {
		t.Errorf("ghost user: status = %d, want 401", code)
	}

	token, _ := svc.IssueToken("u-1")
	if code := call("Bearer " + token); code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", code)
	}
	if seenUserID != "u-1" {
		t.Errorf("context user id = %q, want u-1", seenUserID)
	}
}
