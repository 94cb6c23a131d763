package handlers

import (
	"net/http"

	"github.com/agrisage/agrisage/backend/internal/flows"
	"github.com/agrisage/agrisage/backend/pkg/models"
)

type soilSummaryResponse struct {
	Status  string              `json:"status"`
	Summary *models.SoilSummary `json:"summary"`
}

// SoilSummary handles GET /api/soil/summary. Public endpoint.
func (h *Handlers) SoilSummary(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := requireCoordinates(w, r)
	if !ok {
		return
	}
	depth := r.URL.Query().Get("depth")
	topK := queryInt(r, "top_k", flows.DefaultSoilTopK)

	summary, err := h.Flows.SoilSummary(r.Context(), lat, lon, depth, topK)
	if err != nil {
		respondFlowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, soilSummaryResponse{Status: "success", Summary: summary})
}
