package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the AgriSage backend.
type Config struct {
	Port      int
	Version   string
	Database  DatabaseConfig
	Telemetry TelemetryConfig
	Auth      AuthConfig
	Providers ProviderConfig
	Cache     CacheConfig
}

type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty means the in-memory
	// store is used (local development, tests).
	URL            string
	MaxConnections int
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

type AuthConfig struct {
	// JWTSecret signs bearer tokens (HS256). Must be set in production.
	JWTSecret string
	TokenTTL  time.Duration
}

// ProviderConfig carries credentials and endpoint overrides for the external
// vendor APIs. An empty key leaves the corresponding capability unavailable;
// clients report that as a typed auth failure instead of calling out.
type ProviderConfig struct {
	CropVisionKey     string
	CropVisionURL     string
	LeafScanKey       string
	LeafScanURL       string
	HealthScreenURL   string
	SoilTypeURL       string
	SoilPropertyURL   string
	SoilLoginURL      string
	SoilUsername      string
	SoilPassword      string
	WeatherURL        string
	GeocodeURL        string
	LLMKey            string
	LLMModel          string
	LLMURL            string
	SpeechKey         string
	SpeechURL         string
	TTSKey            string
	TTSURL            string
	TranslateKey      string
	TranslateURL      string
	DetectLanguageKey string
	GoogleMapsKey     string
}

type CacheConfig struct {
	WeatherTTL time.Duration
	TasksTTL   time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("AGRISAGE_PORT", 8080),
		Version: envStr("AGRISAGE_VERSION", "0.4.0"),
		Database: DatabaseConfig{
			URL:            envStr("DATABASE_URL", ""),
			MaxConnections: envInt("DATABASE_MAX_CONNECTIONS", 25),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "agrisage-backend"),
		},
		Auth: AuthConfig{
			JWTSecret: envStr("JWT_SECRET_KEY", ""),
			TokenTTL:  envDuration("AGRISAGE_TOKEN_TTL", 7*24*time.Hour),
		},
		Providers: ProviderConfig{
			CropVisionKey:     envStr("CROPVISION_API_KEY", ""),
			CropVisionURL:     envStr("CROPVISION_URL", "https://crop.kindwise.com/api/v1/identification"),
			LeafScanKey:       envStr("LEAFSCAN_API_KEY", ""),
			LeafScanURL:       envStr("LEAFSCAN_URL", "https://api.deepleaf.io/analyze"),
			HealthScreenURL:   envStr("HEALTHSCREEN_URL", "https://api.openepi.io/crop-health/predictions/binary"),
			SoilTypeURL:       envStr("SOIL_TYPE_URL", "https://api.openepi.io/soil/type"),
			SoilPropertyURL:   envStr("SOIL_PROPERTY_URL", "https://api.isda-africa.com/isdasoil/v2/soilproperty"),
			SoilLoginURL:      envStr("SOIL_LOGIN_URL", "https://api.isda-africa.com/login"),
			SoilUsername:      envStr("SOIL_USERNAME", ""),
			SoilPassword:      envStr("SOIL_PASSWORD", ""),
			WeatherURL:        envStr("WEATHER_URL", "https://api.open-meteo.com/v1/forecast"),
			GeocodeURL:        envStr("GEOCODE_URL", "https://photon.komoot.io/reverse"),
			LLMKey:            envStr("GOOGLE_API_KEY", ""),
			LLMModel:          envStr("LLM_MODEL", "gemini-2.0-flash-001"),
			LLMURL:            envStr("LLM_URL", "https://generativelanguage.googleapis.com/v1beta"),
			SpeechKey:         envStr("SPEECH_API_KEY", ""),
			SpeechURL:         envStr("SPEECH_URL", "https://speech.googleapis.com/v1/speech:recognize"),
			TTSKey:            envStr("TTS_API_KEY", ""),
			TTSURL:            envStr("TTS_URL", "https://texttospeech.googleapis.com/v1/text:synthesize"),
			TranslateKey:      envStr("TRANSLATE_API_KEY", ""),
			TranslateURL:      envStr("TRANSLATE_URL", "https://translation.googleapis.com/language/translate/v2"),
			DetectLanguageKey: envStr("DETECT_LANGUAGE_API", ""),
			GoogleMapsKey:     envStr("GOOGLE_MAPS_API_KEY", ""),
		},
		Cache: CacheConfig{
			WeatherTTL: envDuration("AGRISAGE_WEATHER_CACHE_TTL", 6*time.Hour),
			TasksTTL:   envDuration("AGRISAGE_TASKS_CACHE_TTL", 24*time.Hour),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
