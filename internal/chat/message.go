package chat

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/agrisage/agrisage/backend/internal/flows"
	"github.com/agrisage/agrisage/backend/internal/providers"
	"github.com/agrisage/agrisage/backend/pkg/models"
)

// MessageRequest is one turn of a text chat. Image, when set, triggers the
// crop diagnosis flow instead of a plain LLM reply.
type MessageRequest struct {
	SessionID         string
	Message           string
	Image             []byte
	PreferredLanguage string
}

// SimilarImageGroup pairs a candidate name with reference photos.
type SimilarImageGroup struct {
	Name          string                `json:"name"`
	SimilarImages []models.SimilarImage `json:"similar_images"`
}

// SimilarImages carries reference photos for the top disease and crop
// candidates of a diagnosis.
type SimilarImages struct {
	Diseases []SimilarImageGroup `json:"diseases"`
	Crops    []SimilarImageGroup `json:"crops"`
}

// Reply is the assistant's answer to one chat turn.
type Reply struct {
	Action            string                    `json:"action,omitempty"`
	Response          string                    `json:"response"`
	StructuredInsight *models.StructuredInsight `json:"structured_insight,omitempty"`
	SimilarImages     *SimilarImages            `json:"similar_images,omitempty"`
}

// SendMessage handles one text turn: it normalizes the message to English,
// routes by intent (image attached means diagnosis, crop questions go to the
// recommendation flow, everything else to the LLM), and answers in the
// user's language.
func (s *Service) SendMessage(ctx context.Context, user *models.User, req MessageRequest) (*Reply, error) {
	if _, err := s.getSession(ctx, req.SessionID); err != nil {
		return nil, err
	}

	lang := s.resolveLanguage(ctx, req.PreferredLanguage, req.Message)
	messageEN := req.Message
	if lang != "en" && messageEN != "" {
		messageEN = s.toEnglish(ctx, messageEN)
	}

	if len(req.Image) > 0 {
		return s.diagnoseTurn(ctx, user, req.SessionID, req.Image, lang)
	}

	intent := DetectIntent(ctx, s.llm, messageEN)
	if intent == IntentCropRecommendation && s.flows != nil {
		return s.cropRecommendationTurn(ctx, user, req.SessionID, messageEN, lang)
	}

	text, err := s.replyFromLLM(ctx, user, req.SessionID, messageEN, replyPolicyText, closingBrief)
	if err != nil {
		return nil, err
	}
	text = s.fromEnglish(ctx, text, lang)
	return &Reply{Response: CompactText(text)}, nil
}

func (s *Service) diagnoseTurn(ctx context.Context, user *models.User, sessionID string, image []byte, lang string) (*Reply, error) {
	if s.flows == nil {
		return nil, providers.ErrUnavailable
	}
	lat, lon := userCoordinates(user)
	outcome, err := s.flows.Diagnose(ctx, image, lat, lon, "en")
	if err != nil {
		return nil, err
	}

	text := "Diagnosis completed."
	if outcome.Structured != nil {
		text = diagnosisSummary(outcome.Structured)
	} else if outcome.Insight != "" {
		text = outcome.Insight
	}
	text = s.fromEnglish(ctx, text, lang)
	s.appendMessage(ctx, sessionID, models.SenderAssistant, text)

	return &Reply{
		Action:            "diagnose_crop",
		Response:          text,
		StructuredInsight: outcome.Structured,
		SimilarImages:     similarImagesFrom(outcome.RawResults),
	}, nil
}

func (s *Service) cropRecommendationTurn(ctx context.Context, user *models.User, sessionID, messageEN, lang string) (*Reply, error) {
	if messageEN != "" {
		s.appendMessage(ctx, sessionID, models.SenderUser, messageEN)
	}
	lat, lon := userCoordinates(user)

	text := "Here are crop suggestions based on your area."
	reco, err := s.flows.RecommendCrops(ctx, lat, lon, flows.DefaultSoilDepth, flows.DefaultSoilTopK, 30)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("crop recommendation turn failed")
		text = "I couldn't fetch crop recommendations right now. Please try again shortly."
	case reco.Recommendation != "":
		text = reco.Recommendation
	}

	text = s.fromEnglish(ctx, text, lang)
	s.appendMessage(ctx, sessionID, models.SenderAssistant, text)
	return &Reply{Response: text}, nil
}

const (
	summaryMaxItems       = 5
	similarImageMaxGroups = 3
	similarImageMaxPerTop = 6
)

// diagnosisSummary renders a structured insight as a short Markdown digest.
func diagnosisSummary(insight *models.StructuredInsight) string {
	overall := insight.OverallHealth
	if overall == "" {
		overall = "Unknown"
	}
	severity := insight.SeverityLevel
	if severity == "" {
		severity = "Unknown"
	}

	lines := []string{
		"**Overall:** " + overall,
		"**Severity:** " + severity,
	}
	if problems := cleanItems(insight.IdentifiedProblems); len(problems) > 0 {
		lines = append(lines, "\n**Problems**:")
		for _, p := range problems {
			lines = append(lines, "- "+p)
		}
	}
	if actions := cleanItems(insight.RecommendedActions); len(actions) > 0 {
		lines = append(lines, "\n**Next steps**:")
		for _, a := range actions {
			lines = append(lines, "- "+a)
		}
	}
	return strings.Join(lines, "\n")
}

func cleanItems(items []string) []string {
	var out []string
	for _, it := range items {
		it = strings.TrimSuffix(strings.TrimSpace(it), ",")
		if it != "" {
			out = append(out, it)
		}
		if len(out) == summaryMaxItems {
			break
		}
	}
	return out
}

func similarImagesFrom(result *models.DiagnosisResult) *SimilarImages {
	if result == nil {
		return nil
	}
	return &SimilarImages{
		Diseases: imageGroups(result.Diseases),
		Crops:    imageGroups(result.Crops),
	}
}

func imageGroups(suggestions []models.Suggestion) []SimilarImageGroup {
	groups := []SimilarImageGroup{}
	for _, sg := range suggestions {
		if len(sg.SimilarImages) == 0 {
			continue
		}
		images := sg.SimilarImages
		if len(images) > similarImageMaxPerTop {
			images = images[:similarImageMaxPerTop]
		}
		groups = append(groups, SimilarImageGroup{Name: sg.Name, SimilarImages: images})
		if len(groups) == similarImageMaxGroups {
			break
		}
	}
	return groups
}
