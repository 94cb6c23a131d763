// Package server provides the public entry point for initializing the
// AgriSage backend server.
//
// This package exists in pkg/ (not internal/) so that deployment wrappers
// can import it and compose the full server with their own middleware.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"errors"
	"fmt"

	"net/http"

	"github.com/agrisage/agrisage/backend/internal/api"
	"github.com/agrisage/agrisage/backend/internal/api/handlers"
	"github.com/agrisage/agrisage/backend/internal/auth"
	"github.com/agrisage/agrisage/backend/internal/cache"
	"github.com/agrisage/agrisage/backend/internal/chat"
	"github.com/agrisage/agrisage/backend/internal/config"
	"github.com/agrisage/agrisage/backend/internal/flows"
	"github.com/agrisage/agrisage/backend/internal/providers"
	"github.com/agrisage/agrisage/backend/internal/retention"
	"github.com/agrisage/agrisage/backend/internal/store"
	"github.com/agrisage/agrisage/backend/internal/telemetry"

	"github.com/rs/zerolog/log"
)

// Config is the public configuration for the backend server.
type Config struct {
	Port         int
	Version      string
	DatabaseURL  string
	OTELEnabled  bool
	OTELEndpoint string
	ServiceName  string
}

// Server holds the initialized AgriSage backend.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the data store (PostgreSQL when DATABASE_URL is set,
	// in-memory otherwise).
	Store store.Store

	// Config is the server configuration.
	Config *Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	cfg := config.Load()
	return &Config{
		Port:         cfg.Port,
		Version:      cfg.Version,
		DatabaseURL:  cfg.Database.URL,
		OTELEnabled:  cfg.Telemetry.Enabled,
		OTELEndpoint: cfg.Telemetry.OTLPEndpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
	}
}

// New initializes all backend components and returns a ready Server.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, LoadConfig())
}

// NewWithConfig initializes the backend with an explicit configuration.
func NewWithConfig(ctx context.Context, pubCfg *Config) (*Server, error) {
	// Build internal config from public config
	cfg := config.Load()
	if pubCfg.Port > 0 {
		cfg.Port = pubCfg.Port
	}
	if pubCfg.DatabaseURL != "" {
		cfg.Database.URL = pubCfg.DatabaseURL
	}

	// Initialize telemetry
	shutdown, err := telemetry.Init(cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	// Pick the store: PostgreSQL in production, in-memory otherwise
	var dataStore store.Store
	if cfg.Database.URL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.Database.URL,
			store.WithMaxConns(cfg.Database.MaxConnections))
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		dataStore = pg
		log.Info().Msg("✅ PostgreSQL store initialized")
	} else {
		dataStore = store.NewMemoryStore()
		log.Info().Msg("✅ In-memory store initialized")
	}

	// Initialize services
	flowSvc := flows.NewService(flowOptions(cfg.Providers)...)
	chatSvc := chat.NewService(dataStore, chatOptions(cfg.Providers, flowSvc)...)
	cacheSvc := cache.New(dataStore,
		cache.WithWeatherTTL(cfg.Cache.WeatherTTL),
		cache.WithTasksTTL(cfg.Cache.TasksTTL),
	)
	authSvc := auth.NewService(cfg.Auth.JWTSecret, auth.WithTokenTTL(cfg.Auth.TokenTTL))

	log.Info().Msg("✅ Advisory flows initialized")
	log.Info().Msg("✅ Chat service initialized")

	// Build handlers + API router
	h := &handlers.Handlers{
		Store:   dataStore,
		Flows:   flowSvc,
		Chat:    chatSvc,
		Cache:   cacheSvc,
		Auth:    authSvc,
		MapsKey: cfg.Providers.GoogleMapsKey,
	}
	router := api.NewRouter(cfg, h)

	// Background sweep of expired cache rows
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	go retention.NewJanitor(dataStore, retention.DefaultInterval).Start(janitorCtx)

	return &Server{
		Handler: router,
		Store:   dataStore,
		Config:  pubCfg,
		Port:    cfg.Port,
		ShutdownFunc: func(ctx context.Context) error {
			stopJanitor()
			return shutdown(ctx)
		},
	}, nil
}

// flowOptions builds the flow service options from whatever provider
// credentials are configured. A missing key only disables that capability;
// the server still starts and the affected flows degrade at request time.
func flowOptions(p config.ProviderConfig) []flows.Option {
	var opts []flows.Option

	if c, err := providers.NewCropVisionClient(p.CropVisionKey, p.CropVisionURL); err == nil {
		opts = append(opts, flows.WithCropVision(c))
	} else {
		warnUnavailable("cropvision", err)
	}
	if c, err := providers.NewLeafScanClient(p.LeafScanKey, p.LeafScanURL); err == nil {
		opts = append(opts, flows.WithLeafScan(c))
	} else {
		warnUnavailable("leafscan", err)
	}
	opts = append(opts, flows.WithHealthScreen(providers.NewHealthScreenClient(p.HealthScreenURL)))

	if ts, err := providers.NewPasswordGrantTokenSource(p.SoilLoginURL, p.SoilUsername, p.SoilPassword); err == nil {
		opts = append(opts, flows.WithSoil(providers.NewSoilClient(p.SoilTypeURL, p.SoilPropertyURL, ts)))
	} else {
		warnUnavailable("soil", err)
	}
	opts = append(opts, flows.WithWeather(providers.NewWeatherClient(p.WeatherURL)))

	if c, err := providers.NewLLMClient(p.LLMKey, p.LLMModel, p.LLMURL); err == nil {
		opts = append(opts, flows.WithLLM(c))
	} else {
		warnUnavailable("llm", err)
	}
	return opts
}

// chatOptions wires the chat service with the conversational providers.
func chatOptions(p config.ProviderConfig, flowSvc *flows.Service) []chat.Option {
	opts := []chat.Option{
		chat.WithFlows(flowSvc),
		chat.WithGeocoder(providers.NewGeocodeClient(p.GeocodeURL)),
	}

	if c, err := providers.NewLLMClient(p.LLMKey, p.LLMModel, p.LLMURL); err == nil {
		opts = append(opts, chat.WithLLM(c))
	}
	if c, err := providers.NewTranslateClient(p.TranslateKey, p.TranslateURL); err == nil {
		opts = append(opts, chat.WithTranslator(c))
	} else {
		warnUnavailable("translate", err)
	}
	if c, err := providers.NewDetectClient(p.DetectLanguageKey); err == nil {
		opts = append(opts, chat.WithFallbackTranslator(c))
	} else {
		warnUnavailable("detect-language", err)
	}
	if c, err := providers.NewSpeechClient(p.SpeechKey, p.SpeechURL); err == nil {
		opts = append(opts, chat.WithTranscriber(c))
	} else {
		warnUnavailable("speech", err)
	}
	if c, err := providers.NewTTSClient(p.TTSKey, p.TTSURL); err == nil {
		opts = append(opts, chat.WithSynthesizer(c))
	} else {
		warnUnavailable("tts", err)
	}
	return opts
}

func warnUnavailable(name string, err error) {
	if errors.Is(err, providers.ErrUnavailable) {
		log.Warn().Str("provider", name).Msg("provider not configured, capability disabled")
		return
	}
	log.Warn().Str("provider", name).Err(err).Msg("provider init failed, capability disabled")
}
