package api

import (
	"encoding/json"
	"net/http"

	"github.com/agrisage/agrisage/backend/internal/api/handlers"
	"github.com/agrisage/agrisage/backend/internal/api/middleware"
	"github.com/agrisage/agrisage/backend/internal/auth"
	"github.com/agrisage/agrisage/backend/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the HTTP router with all API routes. The soil summary
// endpoint is public; everything else under /api requires a bearer token.
func NewRouter(cfg *config.Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health & info
	r.Get("/health", healthHandler)
	r.Get("/version", versionHandler(cfg))

	requireAuth := auth.Middleware(h.Auth, h.Store)

	r.Route("/api", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/complete-registration", h.CompleteRegistration)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", h.Me)
				r.Get("/{userID}", h.GetUser)
				r.Patch("/{userID}", h.UpdateUser)
				r.Delete("/{userID}", h.DeleteUser)
			})
		})

		r.Route("/soil", func(r chi.Router) {
			r.Get("/summary", h.SoilSummary)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/crop-health", func(r chi.Router) {
				r.Post("/diagnose", h.Diagnose)
			})

			r.Route("/weather", func(r chi.Router) {
				r.Get("/forecast", h.Forecast)
				r.Get("/calendar", h.Calendar)
				r.Get("/ai-tasks", h.AITasks)
			})

			r.Route("/recommend", func(r chi.Router) {
				r.Get("/crops", h.RecommendCrops)
				r.Get("/fertilizer", h.RecommendFertilizer)
			})

			r.Route("/chat", func(r chi.Router) {
				r.Post("/start-session", h.StartSession)
				r.Post("/send-message", h.SendMessage)
				r.Post("/send-voice-message", h.SendVoiceMessage)
				r.Post("/send-audio-message", h.SendAudioMessage)
				r.Post("/voice-conversation", h.VoiceConversation)
				r.Get("/history", h.ChatHistory)
			})

			r.Route("/maps", func(r chi.Router) {
				r.Get("/api-key", h.MapsAPIKey)
				r.Get("/embed", h.MapsEmbed)
				r.Get("/detailed-view", h.MapsDetailedView)
			})
		})
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"version": cfg.Version})
	}
}
