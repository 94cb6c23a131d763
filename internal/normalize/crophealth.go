// Package normalize converts raw provider payloads into the shared domain
// shapes. Every function is total: a nil or partially filled raw payload
// yields empty collections and nil fields, never a panic or an error.
package normalize

import (
	"github.com/agrisage/agrisage/backend/internal/providers"
	"github.com/agrisage/agrisage/backend/pkg/models"
)

// SuggestionThreshold is the minimum probability for a disease or crop
// suggestion to appear in a DiagnosisResult. The boundary is exclusive:
// exactly 0.2 is dropped.
const SuggestionThreshold = 0.2

// CropVision maps the identification payload onto the merged result fields.
// The probability filter applies to both suggestion lists.
func CropVision(raw *providers.CropVisionRaw) (isPlant bool, diseases, crops []models.Suggestion) {
	diseases = []models.Suggestion{}
	crops = []models.Suggestion{}
	if raw == nil {
		return false, diseases, crops
	}
	diseases = filterSuggestions(raw.Result.Disease.Suggestions)
	crops = filterSuggestions(raw.Result.Crop.Suggestions)
	return raw.Result.IsPlant.Binary, diseases, crops
}

func filterSuggestions(in []providers.CropVisionSuggestion) []models.Suggestion {
	out := []models.Suggestion{}
	for _, s := range in {
		if s.Probability <= SuggestionThreshold {
			continue
		}
		images := make([]models.SimilarImage, 0, len(s.SimilarImages))
		for _, img := range s.SimilarImages {
			images = append(images, models.SimilarImage{URL: img.URL, Citation: img.Citation})
		}
		out = append(out, models.Suggestion{
			Name:           s.Name,
			Probability:    s.Probability,
			ScientificName: s.ScientificName,
			SimilarImages:  images,
		})
	}
	return out
}

// HealthScreen extracts the binary healthy/not-healthy pair. Missing class
// labels default to zero probability.
func HealthScreen(raw providers.HealthScreenRaw) *models.HealthScreen {
	if raw == nil {
		return nil
	}
	return &models.HealthScreen{
		Healthy:    raw["HLT"],
		NotHealthy: raw["NOT_HLT"],
	}
}

// LeafScan maps the leaf analysis payload onto the shared shape.
func LeafScan(raw *providers.LeafScanRaw) *models.LeafAnalysis {
	if raw == nil {
		return nil
	}
	out := &models.LeafAnalysis{
		Crops:             raw.Data.Crops,
		DiagnosesDetected: raw.Data.DiagnosesDetected,
		Diagnoses:         []models.LeafDiagnosis{},
	}
	if out.Crops == nil {
		out.Crops = []string{}
	}
	for _, d := range raw.Data.PredictedDiagnoses {
		out.Diagnoses = append(out.Diagnoses, models.LeafDiagnosis{
			CommonName:          d.CommonName,
			ScientificName:      d.ScientificName,
			DiagnosisLikelihood: d.DiagnosisLikelihood,
			PathogenClass:       d.PathogenClass,
			SymptomsShort:       d.SymptomsShort,
			PreventiveMeasures:  d.PreventiveMeasures,
			TreatmentChemical:   d.TreatmentChemical,
			TreatmentOrganic:    d.TreatmentOrganic,
			Trigger:             d.Trigger,
		})
	}
	return out
}
