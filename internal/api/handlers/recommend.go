package handlers

import (
	"net/http"

	"github.com/agrisage/agrisage/backend/internal/flows"
)

type cropRecommendationResponse struct {
	Status string `json:"status"`
	*flows.CropRecommendation
}

// RecommendCrops handles GET /api/recommend/crops.
func (h *Handlers) RecommendCrops(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := requireCoordinates(w, r)
	if !ok {
		return
	}
	depth := r.URL.Query().Get("depth")
	topK := queryInt(r, "top_k", flows.DefaultSoilTopK)
	pastDays := queryInt(r, "past_days", 30)

	reco, err := h.Flows.RecommendCrops(r.Context(), lat, lon, depth, topK, pastDays)
	if err != nil {
		respondFlowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cropRecommendationResponse{Status: "success", CropRecommendation: reco})
}

type fertilizerRecommendationResponse struct {
	Status string `json:"status"`
	*flows.FertilizerRecommendation
}

// RecommendFertilizer handles GET /api/recommend/fertilizer.
func (h *Handlers) RecommendFertilizer(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := requireCoordinates(w, r)
	if !ok {
		return
	}
	targetCrop := r.URL.Query().Get("target_crop")
	if targetCrop == "" {
		respondError(w, http.StatusBadRequest, "target_crop query parameter is required")
		return
	}

	req := flows.FertilizerRequest{
		TargetCrop:   targetCrop,
		PreviousCrop: r.URL.Query().Get("previous_crop"),
		GrowthStage:  r.URL.Query().Get("growth_stage"),
		Depth:        r.URL.Query().Get("depth"),
		TopK:         queryInt(r, "top_k", flows.DefaultSoilTopK),
		PastDays:     queryInt(r, "past_days", 30),
	}
	reco, err := h.Flows.RecommendFertilizer(r.Context(), lat, lon, req)
	if err != nil {
		respondFlowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, fertilizerRecommendationResponse{Status: "success", FertilizerRecommendation: reco})
}
