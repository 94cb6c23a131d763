// Package extract coerces free-form generative-model text into strict JSON
// shapes. Models wrap their output in prose or markdown fences often enough
// that a strict parse alone rejects usable answers; the extractors here
// locate the JSON span first and validate the schema after parsing. Every
// failure is a typed error so callers can fall back deterministically.
package extract

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/agrisage/agrisage/backend/pkg/models"
)

var (
	// ErrNoJSON means no candidate JSON span was found in the text.
	ErrNoJSON = errors.New("extract: no JSON payload in model output")
	// ErrSchemaIncomplete means the JSON parsed but required fields are
	// missing.
	ErrSchemaIncomplete = errors.New("extract: required fields missing")
)

// jsonSpan returns the greedy substring from the first open delimiter to the
// last close delimiter, or "" when no such span exists.
func jsonSpan(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return ""
	}
	end := strings.LastIndexByte(text, close)
	if end <= start {
		return ""
	}
	return text[start : end+1]
}

// stripFences removes a leading ```json (or bare ```) fence and a trailing
// ``` fence.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// insightFields are the nine keys a StructuredInsight must carry.
var insightFields = []string{
	"identified_problems",
	"symptoms_noticed",
	"probable_causes",
	"severity_level",
	"recommended_actions",
	"prevention_tips",
	"crop_identified",
	"overall_health",
	"confidence_level",
}

// Insight parses model output into a StructuredInsight. The object span is
// located greedily, fences are stripped, and every one of the nine schema
// fields must be present.
func Insight(text string) (*models.StructuredInsight, error) {
	span := jsonSpan(stripFences(text), '{', '}')
	if span == "" {
		return nil, ErrNoJSON
	}
	span = stripFences(span)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &fields); err != nil {
		return nil, ErrNoJSON
	}
	for _, f := range insightFields {
		if _, ok := fields[f]; !ok {
			return nil, ErrSchemaIncomplete
		}
	}

	var insight models.StructuredInsight
	if err := json.Unmarshal([]byte(span), &insight); err != nil {
		return nil, ErrNoJSON
	}
	return &insight, nil
}

// Tasks parses model output into a task recommendation list. List-shaped
// outputs use the same greedy span extraction with square brackets.
func Tasks(text string) ([]models.TaskRecommendation, error) {
	span := jsonSpan(stripFences(text), '[', ']')
	if span == "" {
		return nil, ErrNoJSON
	}

	var tasks []models.TaskRecommendation
	if err := json.Unmarshal([]byte(span), &tasks); err != nil {
		return nil, ErrNoJSON
	}
	return tasks, nil
}
