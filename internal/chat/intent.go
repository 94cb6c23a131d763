package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agrisage/agrisage/backend/internal/providers"
)

// Intents a user message can be classified into.
const (
	IntentCropRecommendation       = "crop_recommendation"
	IntentDiagnosis                = "diagnosis"
	IntentFertilizerRecommendation = "fertilizer_recommendation"
	IntentGeneral                  = "general"
)

const intentPrompt = "Classify the user's request into one of these intents only: " +
	"crop_recommendation, diagnosis, fertilizer_recommendation, general.\n" +
	"Rules:\n" +
	"- crop_recommendation: asking what to plant, best crops, crop suggestions for location/season.\n" +
	"- diagnosis: crop disease/health issues, image-based help, symptoms.\n" +
	"- fertilizer_recommendation: fertilizer plan, NPK, dosage, when/how to apply.\n" +
	"- general: everything else.\n\n" +
	"User: %s\n\n" +
	"Respond with ONLY JSON like {\"intent\": \"crop_recommendation\"}."

// DetectIntent classifies an English-language message with the LLM and falls
// back to keyword heuristics when the model is unavailable or its answer
// cannot be parsed.
func DetectIntent(ctx context.Context, llm providers.Completer, message string) string {
	if llm == nil {
		return keywordIntent(message)
	}

	temp := 0.0
	resp, err := llm.Complete(ctx, fmt.Sprintf(intentPrompt, message), providers.LLMOptions{
		Temperature:     &temp,
		MaxOutputTokens: 24,
	})
	if err != nil {
		return keywordIntent(message)
	}

	if open := strings.IndexByte(resp, '{'); open >= 0 {
		if end := strings.LastIndexByte(resp, '}'); end > open {
			resp = resp[open : end+1]
		}
	}
	var parsed struct {
		Intent string `json:"intent"`
	}
	if err := json.Unmarshal([]byte(resp), &parsed); err != nil {
		return keywordIntent(message)
	}

	normalized := strings.ToLower(strings.TrimSpace(parsed.Intent))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	switch normalized {
	case "croprecommendation", "croprecommendatino":
		normalized = IntentCropRecommendation
	case "fertilizer", "fertiliser":
		normalized = IntentFertilizerRecommendation
	}
	switch normalized {
	case IntentCropRecommendation, IntentDiagnosis, IntentFertilizerRecommendation, IntentGeneral:
		return normalized
	}
	return keywordIntent(message)
}

func keywordIntent(message string) string {
	mlc := strings.ToLower(message)
	if (strings.Contains(mlc, "recommend") && (strings.Contains(mlc, "crop") || strings.Contains(mlc, "plant"))) ||
		strings.Contains(mlc, "what to plant") || strings.Contains(mlc, "best crop") {
		return IntentCropRecommendation
	}
	for _, k := range []string{"disease", "blight", "symptom", "leaf spot", "diagnos", "unhealthy"} {
		if strings.Contains(mlc, k) {
			return IntentDiagnosis
		}
	}
	for _, k := range []string{"fertilizer", "fertiliser", "npk", "dosage", "apply"} {
		if strings.Contains(mlc, k) {
			return IntentFertilizerRecommendation
		}
	}
	return IntentGeneral
}
