package flows

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/agrisage/agrisage/backend/internal/providers"
	"github.com/agrisage/agrisage/backend/pkg/models"
)

// CropRecommendation is the crop recommendation flow result.
type CropRecommendation struct {
	Recommendation string                 `json:"recommendation"`
	SoilSummary    *models.SoilSummary    `json:"soil_summary"`
	WeatherSummary *models.WeatherSummary `json:"weather_summary"`
}

// FertilizerRecommendation is the fertilizer flow result.
type FertilizerRecommendation struct {
	Recommendation  string                 `json:"recommendation"`
	SoilSummary     *models.SoilSummary    `json:"soil_summary"`
	WeatherSummary  *models.WeatherSummary `json:"weather_summary"`
	DeficiencyNotes []string               `json:"deficiency_notes"`
	RotationNote    string                 `json:"rotation_note"`
	GrowthStageNote string                 `json:"growth_stage_note"`
}

// fetchSoilAndWeather runs the soil and weather summary fetches concurrently.
// Both must succeed.
func (s *Service) fetchSoilAndWeather(ctx context.Context, lat, lon float64, depth string, topK, pastDays int) (*models.SoilSummary, *models.WeatherSummary, error) {
	var (
		soil    *models.SoilSummary
		weather *models.WeatherSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		soil, err = s.SoilSummary(gctx, lat, lon, depth, topK)
		return err
	})
	g.Go(func() error {
		var err error
		weather, err = s.WeatherSummary(gctx, lat, lon, pastDays, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return soil, weather, nil
}

// RecommendCrops suggests the most suitable crops for a field from its soil
// and recent weather.
func (s *Service) RecommendCrops(ctx context.Context, lat, lon float64, depth string, topK, pastDays int) (*CropRecommendation, error) {
	if s.llm == nil {
		return nil, providers.ErrUnavailable
	}
	if pastDays <= 0 {
		pastDays = 30
	}
	soil, weather, err := s.fetchSoilAndWeather(ctx, lat, lon, depth, topK, pastDays)
	if err != nil {
		return nil, err
	}

	text, err := s.llm.Complete(ctx, cropRecommendationPrompt(soil, weather, pastDays), providers.LLMOptions{})
	if err != nil {
		return nil, fmt.Errorf("crop recommendation: %w", err)
	}
	return &CropRecommendation{
		Recommendation: text,
		SoilSummary:    soil,
		WeatherSummary: weather,
	}, nil
}

// FertilizerRequest carries the fertilizer flow inputs beyond coordinates.
type FertilizerRequest struct {
	TargetCrop   string
	PreviousCrop string
	GrowthStage  string
	Depth        string
	TopK         int
	PastDays     int
}

// RecommendFertilizer builds a fertilizer plan for a target crop, enriching
// the prompt with rule-based deficiency, rotation, and growth-stage notes.
func (s *Service) RecommendFertilizer(ctx context.Context, lat, lon float64, req FertilizerRequest) (*FertilizerRecommendation, error) {
	if s.llm == nil {
		return nil, providers.ErrUnavailable
	}
	if req.PastDays <= 0 {
		req.PastDays = 30
	}
	soil, weather, err := s.fetchSoilAndWeather(ctx, lat, lon, req.Depth, req.TopK, req.PastDays)
	if err != nil {
		return nil, err
	}

	notes := DeficiencyNotes(soil)
	rotation := RotationNote(req.PreviousCrop, req.TargetCrop)
	growth := GrowthStageNote(req.GrowthStage)

	prompt := fertilizerPrompt(req, soil, weather, notes, rotation, growth)
	text, err := s.llm.Complete(ctx, prompt, providers.LLMOptions{})
	if err != nil {
		return nil, fmt.Errorf("fertilizer recommendation: %w", err)
	}
	return &FertilizerRecommendation{
		Recommendation:  text,
		SoilSummary:     soil,
		WeatherSummary:  weather,
		DeficiencyNotes: notes,
		RotationNote:    rotation,
		GrowthStageNote: growth,
	}, nil
}

// DeficiencyNotes derives human-readable nutrient warnings when direct NPK
// measurements are missing, using indirect indicators: texture for nitrogen,
// pH below 5.5 for phosphorus, CEC below 10 for potassium. A generic note
// covers any remaining missing core nutrient.
func DeficiencyNotes(soil *models.SoilSummary) []string {
	notes := []string{}
	if soil == nil {
		return notes
	}
	if soil.NitrogenTotal == nil {
		if soil.TextureClass != nil && strings.EqualFold(*soil.TextureClass, "sandy") {
			notes = append(notes, "Sandy soil: likely poor nitrogen retention. Consider more nitrogen fertilizer.")
		}
	}
	if soil.Phosphorous == nil {
		if soil.PH != nil && *soil.PH < 5.5 {
			notes = append(notes, "Low pH (<5.5): likely poor phosphorus availability.")
		}
	}
	if soil.Potassium == nil {
		if soil.CationExchange != nil && *soil.CationExchange < 10 {
			notes = append(notes, "Low CEC (<10): soil may not hold potassium well.")
		}
	}
	if len(notes) == 0 && (soil.NitrogenTotal == nil || soil.Phosphorous == nil || soil.Potassium == nil) {
		notes = append(notes, "Some nutrient data missing; use soil pH, texture, and CEC as indirect indicators.")
	}
	return notes
}

var legumes = map[string]bool{
	"beans":     true,
	"legume":    true,
	"soybean":   true,
	"groundnut": true,
}

// RotationNote summarizes the crop rotation implication of the previous
// crop, or "" when no previous crop is known.
func RotationNote(previousCrop, targetCrop string) string {
	if previousCrop == "" {
		return ""
	}
	prev := strings.ToLower(previousCrop)
	target := strings.ToLower(targetCrop)
	switch {
	case (prev == "maize" || prev == "corn") && legumes[target]:
		return "Good rotation: legumes after maize help fix nitrogen."
	case prev == target:
		return "Avoid growing the same crop consecutively to reduce disease risk and nutrient depletion."
	default:
		return fmt.Sprintf("Previous crop: %s. Consider rotation best practices.", previousCrop)
	}
}

// GrowthStageNote names the nutrient emphasis for a growth stage, or ""
// when no stage is known.
func GrowthStageNote(stage string) string {
	switch strings.ToLower(stage) {
	case "":
		return ""
	case "germination":
		return "Focus on phosphorus-rich (DAP) fertilizer for root development."
	case "vegetative":
		return "Nitrogen is important for leafy growth."
	case "flowering":
		return "Potassium is important for flowering."
	case "fruiting":
		return "Potassium-boosted fertilizer helps fruit/seed development."
	default:
		return fmt.Sprintf("Growth stage: %s.", stage)
	}
}
