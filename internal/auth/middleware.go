package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/agrisage/agrisage/backend/internal/store"
)

// Middleware validates the bearer token on every request and attaches the
// user id to the request context. Requests with a missing or invalid token,
// or a token for a user that no longer exists, are rejected with 401.
func Middleware(svc *Service, users store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				unauthorized(w, "missing bearer token")
				return
			}

			userID, err := svc.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			if _, err := users.GetUser(r.Context(), userID); err != nil {
				log.Warn().Str("user_id", userID).Msg("token subject no longer exists")
				unauthorized(w, "user not found")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
