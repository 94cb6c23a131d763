package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/agrisage/agrisage/backend/internal/store"
	"github.com/agrisage/agrisage/backend/pkg/models"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login handles POST /api/user/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.Store.GetUserByEmail(r.Context(), req.Email)
	if err != nil || user.PasswordHash == "" || !h.Auth.CheckPassword(user.PasswordHash, req.Password) {
		respondError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.Auth.IssueToken(user.ID)
	if err != nil {
		log.Error().Err(err).Msg("token issuance failed")
		respondError(w, http.StatusInternalServerError, "Could not create session")
		return
	}
	respondJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

type registrationRequest struct {
	Email             string   `json:"email"`
	Name              string   `json:"name"`
	Location          string   `json:"location"`
	PreferredLanguage string   `json:"preferred_language"`
	UserType          string   `json:"user_type"`
	YearsExperience   int      `json:"years_experience"`
	MainGoal          string   `json:"main_goal"`
	CropsGrown        []string `json:"crops_grown"`
	Password          string   `json:"password"`
}

type registrationResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
}

// CompleteRegistration handles POST /api/user/complete-registration: it
// creates the account from the onboarding flow and logs the user in.
func (h *Handlers) CompleteRegistration(w http.ResponseWriter, r *http.Request) {
	var req registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	if _, err := h.Store.GetUserByEmail(r.Context(), req.Email); err == nil {
		respondError(w, http.StatusBadRequest, "Email already registered")
		return
	}

	hash, err := h.Auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Could not create account")
		return
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:                uuid.NewString(),
		Name:              req.Name,
		Email:             req.Email,
		Location:          req.Location,
		PreferredLanguage: req.PreferredLanguage,
		CropsGrown:        req.CropsGrown,
		UserType:          req.UserType,
		YearsExperience:   req.YearsExperience,
		MainGoal:          req.MainGoal,
		PasswordHash:      hash,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := h.Store.CreateUser(r.Context(), user); err != nil {
		log.Error().Err(err).Msg("user creation failed")
		respondError(w, http.StatusInternalServerError, "Could not create account")
		return
	}

	token, err := h.Auth.IssueToken(user.ID)
	if err != nil {
		log.Error().Err(err).Msg("token issuance failed")
		respondError(w, http.StatusInternalServerError, "Could not create session")
		return
	}

	log.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("user registered")
	respondJSON(w, http.StatusOK, registrationResponse{
		User:        user,
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// Me handles GET /api/user/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// GetUser handles GET /api/user/{userID}.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.Store.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		var notFound *store.ErrNotFound
		if errors.As(err, &notFound) {
			respondError(w, http.StatusNotFound, "User not found")
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, user)
}

type userUpdateRequest struct {
	Name              *string   `json:"name"`
	Location          *string   `json:"location"`
	PreferredLanguage *string   `json:"preferred_language"`
	UserType          *string   `json:"user_type"`
	YearsExperience   *int      `json:"years_experience"`
	MainGoal          *string   `json:"main_goal"`
	CropsGrown        *[]string `json:"crops_grown"`
}

// UpdateUser handles PATCH /api/user/{userID}. Users may only update their
// own profile; absent fields are left unchanged.
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	current, err := h.currentUser(r)
	if err != nil || current.ID != userID {
		respondError(w, http.StatusForbidden, "Not authorized to update this user")
		return
	}

	var req userUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name != nil {
		current.Name = *req.Name
	}
	if req.Location != nil {
		current.Location = *req.Location
	}
	if req.PreferredLanguage != nil {
		current.PreferredLanguage = *req.PreferredLanguage
	}
	if req.UserType != nil {
		current.UserType = *req.UserType
	}
	if req.YearsExperience != nil {
		current.YearsExperience = *req.YearsExperience
	}
	if req.MainGoal != nil {
		current.MainGoal = *req.MainGoal
	}
	if req.CropsGrown != nil {
		current.CropsGrown = *req.CropsGrown
	}
	current.UpdatedAt = time.Now().UTC()

	if err := h.Store.UpdateUser(r.Context(), current); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, current)
}

// DeleteUser handles DELETE /api/user/{userID}. Users may only delete their
// own account.
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	current, err := h.currentUser(r)
	if err != nil || current.ID != userID {
		respondError(w, http.StatusForbidden, "Not authorized to delete this user")
		return
	}

	if err := h.Store.DeleteUser(r.Context(), userID); err != nil {
		var notFound *store.ErrNotFound
		if errors.As(err, &notFound) {
			respondError(w, http.StatusNotFound, "User not found")
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"detail": "User deleted successfully"})
}
