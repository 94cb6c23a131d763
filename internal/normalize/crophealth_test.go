package normalize_test

import (
	"testing"

	"github.com/agrisage/agrisage/backend/internal/normalize"
	"github.com/agrisage/agrisage/backend/internal/providers"
)

func suggestion(name string, p float64) providers.CropVisionSuggestion {
	return providers.CropVisionSuggestion{Name: name, Probability: p, ScientificName: name + " sp."}
}

func TestCropVisionProbabilityBoundary(t *testing.T) {
	raw := &providers.CropVisionRaw{}
	raw.Result.IsPlant.Binary = true
	raw.Result.Disease.Suggestions = []providers.CropVisionSuggestion{
		suggestion("at-threshold", 0.2),
		suggestion("just-above", 0.2001),
		suggestion("high", 0.9),
	}
	raw.Result.Crop.Suggestions = []providers.CropVisionSuggestion{
		suggestion("maize", 0.2),
		suggestion("teff", 0.75),
	}

	isPlant, diseases, crops := normalize.CropVision(raw)
	if !isPlant {
		t.Error("expected is_plant to carry through")
	}
	if len(diseases) != 2 {
		t.Fatalf("got %d diseases, want 2 (0.2 excluded, 0.2001 included)", len(diseases))
	}
	if diseases[0].Name != "just-above" || diseases[1].Name != "high" {
		t.Errorf("unexpected disease set: %q, %q", diseases[0].Name, diseases[1].Name)
	}
	if len(crops) != 1 || crops[0].Name != "teff" {
		t.Fatalf("got crops %v, want only teff (filter applies to crops too)", crops)
	}
}

func TestCropVisionNilAndEmptyRaw(t *testing.T) {
	isPlant, diseases, crops := normalize.CropVision(nil)
	if isPlant || diseases == nil || crops == nil {
		t.Error("nil raw should yield false + empty (non-nil) lists")
	}
	if len(diseases) != 0 || len(crops) != 0 {
		t.Errorf("nil raw should yield empty lists, got %d/%d", len(diseases), len(crops))
	}

	_, diseases, _ = normalize.CropVision(&providers.CropVisionRaw{})
	if len(diseases) != 0 {
		t.Errorf("empty raw should yield no diseases, got %d", len(diseases))
	}
}

func TestHealthScreenDefaultsMissingLabels(t *testing.T) {
	got := normalize.HealthScreen(providers.HealthScreenRaw{"HLT": 0.83})
	if got.Healthy != 0.83 || got.NotHealthy != 0 {
		t.Errorf("got %+v, want healthy=0.83 not_healthy=0", got)
	}
	if normalize.HealthScreen(nil) != nil {
		t.Error("nil raw should normalize to nil, not a zero pair")
	}
}

func TestLeafScanCarriesDiagnosesThrough(t *testing.T) {
	raw := &providers.LeafScanRaw{}
	raw.Data.Crops = []string{"tomato"}
	raw.Data.DiagnosesDetected = true
	raw.Data.PredictedDiagnoses = []providers.LeafScanDiagnosis{
		{CommonName: "early blight", PathogenClass: "fungus", SymptomsShort: []string{"brown spots"}},
	}

	got := normalize.LeafScan(raw)
	if got == nil || !got.DiagnosesDetected {
		t.Fatal("expected diagnoses_detected to carry through")
	}
	if len(got.Diagnoses) != 1 || got.Diagnoses[0].CommonName != "early blight" {
		t.Errorf("unexpected diagnoses: %+v", got.Diagnoses)
	}
	if len(got.Crops) != 1 || got.Crops[0] != "tomato" {
		t.Errorf("unexpected crops: %v", got.Crops)
	}
	if normalize.LeafScan(nil) != nil {
		t.Error("nil raw should normalize to nil")
	}
}
