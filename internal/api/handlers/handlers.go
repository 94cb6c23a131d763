// Package handlers implements the HTTP handlers for the AgriSage backend:
// diagnosis upload, soil and weather lookups, recommendation flows, the chat
// surface, and user account management.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/agrisage/agrisage/backend/internal/auth"
	"github.com/agrisage/agrisage/backend/internal/cache"
	"github.com/agrisage/agrisage/backend/internal/chat"
	"github.com/agrisage/agrisage/backend/internal/flows"
	"github.com/agrisage/agrisage/backend/internal/providers"
	"github.com/agrisage/agrisage/backend/internal/store"
	"github.com/agrisage/agrisage/backend/pkg/models"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Store   store.Store
	Flows   *flows.Service
	Chat    *chat.Service
	Cache   *cache.Cache
	Auth    *auth.Service
	MapsKey string
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// respondError writes the FastAPI-compatible error envelope the mobile
// client expects.
func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

// respondRaw writes an already-serialized JSON payload (cache hits).
func respondRaw(w http.ResponseWriter, status int, payload json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

// respondFlowError maps flow and provider failures to HTTP statuses. The
// farmer sees a short message; the provider detail stays in the log.
func respondFlowError(w http.ResponseWriter, err error) {
	log.Warn().Err(err).Msg("flow request failed")

	var lowConf *chat.LowConfidenceError
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "Session not found")
	case errors.As(err, &lowConf):
		respondError(w, http.StatusBadRequest, lowConf.Error())
	case errors.Is(err, flows.ErrDateOutOfRange):
		respondError(w, http.StatusBadRequest, "No weather data available for the requested date")
	case errors.Is(err, flows.ErrAllCriticalSourcesFailed):
		respondError(w, http.StatusBadGateway, "Crop diagnosis providers are unavailable right now")
	case errors.Is(err, flows.ErrNoWeatherData):
		respondError(w, http.StatusBadGateway, "No weather data available for this location")
	case errors.Is(err, providers.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "This feature is not available right now")
	default:
		respondError(w, http.StatusInternalServerError, "Something went wrong, please try again")
	}
}

// currentUser loads the authenticated user set by the auth middleware.
func (h *Handlers) currentUser(r *http.Request) (*models.User, error) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		return nil, errors.New("no authenticated user in context")
	}
	return h.Store.GetUser(r.Context(), userID)
}

func queryFloat(r *http.Request, name string) (float64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// requireCoordinates parses the lat/lon query pair every geo endpoint needs.
func requireCoordinates(w http.ResponseWriter, r *http.Request) (lat, lon float64, ok bool) {
	lat, latOK := queryFloat(r, "lat")
	lon, lonOK := queryFloat(r, "lon")
	if !latOK || !lonOK {
		respondError(w, http.StatusBadRequest, "lat and lon query parameters are required")
		return 0, 0, false
	}
	return lat, lon, true
}
