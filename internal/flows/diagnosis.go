package flows

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/agrisage/agrisage/backend/internal/extract"
	"github.com/agrisage/agrisage/backend/internal/normalize"
	"github.com/agrisage/agrisage/backend/internal/providers"
	"github.com/agrisage/agrisage/backend/pkg/models"
)

// Diagnose fans out the uploaded image to the crop-health providers, merges
// their normalized results, and asks the model for a structured insight.
//
// Partial-failure policy: the two rich providers (identification, leaf
// analysis) are critical — the flow fails terminally only when both fail.
// The binary health screen is supplementary; its failure is recorded in
// source_failures and the flow continues. All three calls always run to
// completion; there is no short-circuit on the first failure.
func (s *Service) Diagnose(ctx context.Context, image []byte, lat, lon float64, language string) (*models.DiagnosisOutcome, error) {
	var (
		wg sync.WaitGroup

		cropVisionRaw   *providers.CropVisionRaw
		cropVisionErr   error
		leafScanRaw     *providers.LeafScanRaw
		leafScanErr     error
		healthScreenRaw providers.HealthScreenRaw
		healthScreenErr error
	)

	if s.cropVision != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cropVisionRaw, cropVisionErr = s.cropVision.Identify(ctx, image, lat, lon)
		}()
	} else {
		cropVisionErr = providers.ErrUnavailable
	}

	if s.leafScan != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			leafScanRaw, leafScanErr = s.leafScan.Analyze(ctx, image, lat, lon, language)
		}()
	} else {
		leafScanErr = providers.ErrUnavailable
	}

	if s.healthScreen != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			healthScreenRaw, healthScreenErr = s.healthScreen.Screen(ctx, image)
		}()
	} else {
		healthScreenErr = providers.ErrUnavailable
	}

	wg.Wait()

	failures := []string{}
	if cropVisionErr != nil {
		log.Warn().Err(cropVisionErr).Msg("identification provider failed")
		failures = append(failures, providers.ProviderCropVision)
	}
	if leafScanErr != nil {
		log.Warn().Err(leafScanErr).Msg("leaf analysis provider failed")
		failures = append(failures, providers.ProviderLeafScan)
	}
	if healthScreenErr != nil {
		log.Warn().Err(healthScreenErr).Msg("health screen provider failed")
		failures = append(failures, providers.ProviderHealthScreen)
	}

	if cropVisionErr != nil && leafScanErr != nil {
		return nil, ErrAllCriticalSourcesFailed
	}

	isPlant, diseases, crops := normalize.CropVision(cropVisionRaw)
	result := &models.DiagnosisResult{
		IsPlant:        isPlant,
		Diseases:       diseases,
		Crops:          crops,
		HealthScreen:   normalize.HealthScreen(healthScreenRaw),
		LeafAnalysis:   normalize.LeafScan(leafScanRaw),
		SourceFailures: failures,
	}

	outcome := &models.DiagnosisOutcome{RawResults: result}
	if s.llm == nil {
		return outcome, nil
	}

	text, err := s.llm.Complete(ctx, diagnosisPrompt(result), providers.LLMOptions{})
	if err != nil {
		log.Warn().Err(err).Msg("diagnosis insight generation failed")
		return outcome, nil
	}

	insight, err := extract.Insight(text)
	if err != nil {
		// Model produced prose or an incomplete object; surface the raw
		// text instead of failing the diagnosis.
		log.Debug().Err(err).Msg("structured insight extraction fell back to raw text")
		outcome.Insight = text
		return outcome, nil
	}
	outcome.Structured = insight
	return outcome, nil
}
