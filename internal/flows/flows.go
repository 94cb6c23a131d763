// Package flows implements the aggregation orchestrator: each flow fans out
// to provider adapters concurrently, applies the partial-failure policy for
// that flow, normalizes the raw payloads, and feeds the result through a
// prompt to the generative model.
package flows

import (
	"context"
	"errors"

	"github.com/agrisage/agrisage/backend/internal/providers"
	"github.com/agrisage/agrisage/backend/pkg/models"
)

var (
	// ErrAllCriticalSourcesFailed means both rich diagnosis providers
	// failed; there is nothing usable to diagnose from.
	ErrAllCriticalSourcesFailed = errors.New("all critical diagnosis sources failed")

	// ErrNoWeatherData means the weather provider returned an empty series.
	ErrNoWeatherData = errors.New("no weather data for the requested window")

	// ErrDateOutOfRange means the requested date is outside the forecast
	// horizon.
	ErrDateOutOfRange = errors.New("no forecast available for the requested date")
)

// cropIdentifier is the critical identification provider surface.
type cropIdentifier interface {
	Identify(ctx context.Context, image []byte, lat, lon float64) (*providers.CropVisionRaw, error)
}

// leafAnalyzer is the critical leaf analysis provider surface.
type leafAnalyzer interface {
	Analyze(ctx context.Context, image []byte, lat, lon float64, language string) (*providers.LeafScanRaw, error)
}

// healthScreener is the supplementary binary screening surface.
type healthScreener interface {
	Screen(ctx context.Context, image []byte) (providers.HealthScreenRaw, error)
}

// soilFetcher composes the two soil lookups.
type soilFetcher interface {
	FetchType(ctx context.Context, lat, lon float64, topK int) (*providers.SoilTypeRaw, error)
	FetchProperties(ctx context.Context, lat, lon float64, depth string) (*providers.SoilPropertyRaw, error)
}

// weatherFetcher returns daily series for a past/future window.
type weatherFetcher interface {
	FetchDaily(ctx context.Context, lat, lon float64, pastDays, forecastDays int) (*models.WeatherSeries, error)
}

// Service runs the orchestration flows. Provider fields left nil are treated
// as unavailable: critical providers count as failed sources, supplementary
// ones are skipped silently.
type Service struct {
	cropVision   cropIdentifier
	leafScan     leafAnalyzer
	healthScreen healthScreener
	soil         soilFetcher
	weather      weatherFetcher
	llm          providers.Completer
}

// Option configures the flow service.
type Option func(*Service)

func WithCropVision(c cropIdentifier) Option { return func(s *Service) { s.cropVision = c } }

func WithLeafScan(c leafAnalyzer) Option { return func(s *Service) { s.leafScan = c } }

func WithHealthScreen(c healthScreener) Option { return func(s *Service) { s.healthScreen = c } }

func WithSoil(c soilFetcher) Option { return func(s *Service) { s.soil = c } }

func WithWeather(c weatherFetcher) Option { return func(s *Service) { s.weather = c } }

func WithLLM(c providers.Completer) Option { return func(s *Service) { s.llm = c } }

// NewService creates the flow service.
func NewService(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
