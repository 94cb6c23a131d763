package flows_test

import (
	"context"
	"errors"
	"testing"

	"github.com/agrisage/agrisage/backend/internal/flows"
	"github.com/agrisage/agrisage/backend/internal/providers"
)

// ─── Provider fakes ──────────────────────────────────────────

type fakeCropVision struct {
	raw *providers.CropVisionRaw
	err error
}

func (f *fakeCropVision) Identify(ctx context.Context, image []byte, lat, lon float64) (*providers.CropVisionRaw, error) {
	return f.raw, f.err
}

type fakeLeafScan struct {
	raw *providers.LeafScanRaw
	err error
}

func (f *fakeLeafScan) Analyze(ctx context.Context, image []byte, lat, lon float64, language string) (*providers.LeafScanRaw, error) {
	return f.raw, f.err
}

type fakeHealthScreen struct {
	raw providers.HealthScreenRaw
	err error
}

func (f *fakeHealthScreen) Screen(ctx context.Context, image []byte) (providers.HealthScreenRaw, error) {
	return f.raw, f.err
}

type fakeLLM struct {
	text string
	err  error
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string, opts providers.LLMOptions) (string, error) {
	return f.text, f.err
}

func healthyCropVision() *providers.CropVisionRaw {
	raw := &providers.CropVisionRaw{}
	raw.Result.IsPlant.Binary = true
	raw.Result.Disease.Suggestions = []providers.CropVisionSuggestion{
		{Name: "leaf rust", Probability: 0.8, ScientificName: "Puccinia"},
	}
	return raw
}

func callErr(provider string) error {
	return &providers.AdapterError{Provider: provider, Kind: providers.ErrKindNetwork, Message: "connection refused"}
}

// ─── Partial-failure matrix ──────────────────────────────────

func TestDiagnoseAllProvidersSucceed(t *testing.T) {
	svc := flows.NewService(
		flows.WithCropVision(&fakeCropVision{raw: healthyCropVision()}),
		flows.WithLeafScan(&fakeLeafScan{raw: &providers.LeafScanRaw{}}),
		flows.WithHealthScreen(&fakeHealthScreen{raw: providers.HealthScreenRaw{"HLT": 0.9, "NOT_HLT": 0.1}}),
	)

	outcome, err := svc.Diagnose(context.Background(), []byte("jpeg"), 9.0, 38.0, "en")
	if err != nil {
		t.Fatalf("Diagnose() error = %v", err)
	}
	raw := outcome.RawResults
	if len(raw.SourceFailures) != 0 {
		t.Errorf("SourceFailures = %v, want empty", raw.SourceFailures)
	}
	if !raw.IsPlant || len(raw.Diseases) != 1 {
		t.Errorf("unexpected merge: is_plant=%v diseases=%d", raw.IsPlant, len(raw.Diseases))
	}
	if raw.HealthScreen == nil || raw.HealthScreen.Healthy != 0.9 {
		t.Errorf("HealthScreen = %+v, want healthy=0.9", raw.HealthScreen)
	}
}

func TestDiagnoseSupplementaryFailureIsTolerated(t *testing.T) {
	svc := flows.NewService(
		flows.WithCropVision(&fakeCropVision{raw: healthyCropVision()}),
		flows.WithLeafScan(&fakeLeafScan{raw: &providers.LeafScanRaw{}}),
		flows.WithHealthScreen(&fakeHealthScreen{err: callErr(providers.ProviderHealthScreen)}),
	)

	outcome, err := svc.Diagnose(context.Background(), []byte("jpeg"), 9.0, 38.0, "en")
	if err != nil {
		t.Fatalf("Diagnose() error = %v", err)
	}
	raw := outcome.RawResults
	if len(raw.SourceFailures) != 1 || raw.SourceFailures[0] != providers.ProviderHealthScreen {
		t.Errorf("SourceFailures = %v, want only healthscreen", raw.SourceFailures)
	}
	if raw.HealthScreen != nil {
		t.Error("failed screen must not produce a zero-valued pair")
	}
}

func TestDiagnoseOneCriticalFailureIsTolerated(t *testing.T) {
	svc := flows.NewService(
		flows.WithCropVision(&fakeCropVision{err: callErr(providers.ProviderCropVision)}),
		flows.WithLeafScan(&fakeLeafScan{raw: &providers.LeafScanRaw{}}),
		flows.WithHealthScreen(&fakeHealthScreen{raw: providers.HealthScreenRaw{"HLT": 1}}),
	)

	outcome, err := svc.Diagnose(context.Background(), []byte("jpeg"), 9.0, 38.0, "en")
	if err != nil {
		t.Fatalf("Diagnose() error = %v; one surviving critical source must be enough", err)
	}
	raw := outcome.RawResults
	if len(raw.SourceFailures) != 1 || raw.SourceFailures[0] != providers.ProviderCropVision {
		t.Errorf("SourceFailures = %v, want only cropvision", raw.SourceFailures)
	}
	if raw.LeafAnalysis == nil {
		t.Error("surviving provider's payload missing from result")
	}
}

func TestDiagnoseBothCriticalFailuresAreTerminal(t *testing.T) {
	svc := flows.NewService(
		flows.WithCropVision(&fakeCropVision{err: callErr(providers.ProviderCropVision)}),
		flows.WithLeafScan(&fakeLeafScan{err: callErr(providers.ProviderLeafScan)}),
		flows.WithHealthScreen(&fakeHealthScreen{raw: providers.HealthScreenRaw{"HLT": 1}}),
	)

	_, err := svc.Diagnose(context.Background(), []byte("jpeg"), 9.0, 38.0, "en")
	if !errors.Is(err, flows.ErrAllCriticalSourcesFailed) {
		t.Errorf("err = %v, want ErrAllCriticalSourcesFailed", err)
	}
}

func TestDiagnoseMissingCriticalClientCountsAsFailure(t *testing.T) {
	// Only leaf analysis configured: diagnosis still works, cropvision is a
	// recorded failure.
	svc := flows.NewService(
		flows.WithLeafScan(&fakeLeafScan{raw: &providers.LeafScanRaw{}}),
	)

	outcome, err := svc.Diagnose(context.Background(), []byte("jpeg"), 9.0, 38.0, "en")
	if err != nil {
		t.Fatalf("Diagnose() error = %v", err)
	}
	failures := outcome.RawResults.SourceFailures
	if len(failures) != 2 {
		t.Errorf("SourceFailures = %v, want cropvision and healthscreen", failures)
	}
}

// ─── Insight extraction fallback ─────────────────────────────

func TestDiagnoseStructuredInsight(t *testing.T) {
	insightJSON := `{"identified_problems":["rust"],"symptoms_noticed":["spots"],` +
		`"probable_causes":["fungus"],"severity_level":"high","recommended_actions":["spray"],` +
		`"prevention_tips":["rotate"],"crop_identified":"wheat","overall_health":"unhealthy","confidence_level":"high"}`

	svc := flows.NewService(
		flows.WithCropVision(&fakeCropVision{raw: healthyCropVision()}),
		flows.WithLeafScan(&fakeLeafScan{raw: &providers.LeafScanRaw{}}),
		flows.WithLLM(&fakeLLM{text: insightJSON}),
	)

	outcome, err := svc.Diagnose(context.Background(), []byte("jpeg"), 9.0, 38.0, "en")
	if err != nil {
		t.Fatalf("Diagnose() error = %v", err)
	}
	if outcome.Structured == nil || outcome.Structured.CropIdentified != "wheat" {
		t.Errorf("Structured = %+v, want parsed insight", outcome.Structured)
	}
	if outcome.Insight != "" {
		t.Errorf("Insight = %q, want empty when structured parse succeeds", outcome.Insight)
	}
}

func TestDiagnoseFallsBackToRawTextInsight(t *testing.T) {
	prose := "The crop looks mostly healthy. Keep monitoring for rust."
	svc := flows.NewService(
		flows.WithCropVision(&fakeCropVision{raw: healthyCropVision()}),
		flows.WithLeafScan(&fakeLeafScan{raw: &providers.LeafScanRaw{}}),
		flows.WithLLM(&fakeLLM{text: prose}),
	)

	outcome, err := svc.Diagnose(context.Background(), []byte("jpeg"), 9.0, 38.0, "en")
	if err != nil {
		t.Fatalf("Diagnose() error = %v", err)
	}
	if outcome.Structured != nil {
		t.Errorf("Structured = %+v, want nil for prose output", outcome.Structured)
	}
	if outcome.Insight != prose {
		t.Errorf("Insight = %q, want the raw model text", outcome.Insight)
	}
}

func TestDiagnoseLLMFailureStillReturnsRawResults(t *testing.T) {
	svc := flows.NewService(
		flows.WithCropVision(&fakeCropVision{raw: healthyCropVision()}),
		flows.WithLeafScan(&fakeLeafScan{raw: &providers.LeafScanRaw{}}),
		flows.WithLLM(&fakeLLM{err: errors.New("model unavailable")}),
	)

	outcome, err := svc.Diagnose(context.Background(), []byte("jpeg"), 9.0, 38.0, "en")
	if err != nil {
		t.Fatalf("Diagnose() error = %v", err)
	}
	if outcome.RawResults == nil || outcome.Structured != nil || outcome.Insight != "" {
		t.Errorf("outcome = %+v, want raw results only", outcome)
	}
}
