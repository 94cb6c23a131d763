// Package chat runs the conversational surface: session-scoped message
// history, language detection and round-trip translation, LLM replies
// personalized with the farmer's profile, intent-routed flow calls, and the
// speech legs (transcription in, synthesis out) of voice conversations.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/agrisage/agrisage/backend/internal/flows"
	"github.com/agrisage/agrisage/backend/internal/providers"
	"github.com/agrisage/agrisage/backend/internal/store"
	"github.com/agrisage/agrisage/backend/pkg/models"
)

// ErrSessionNotFound reports a session id that does not exist.
var ErrSessionNotFound = errors.New("chat: session not found")

// LowConfidenceError rejects a transcription too unreliable to act on.
type LowConfidenceError struct {
	Confidence float64
}

func (e *LowConfidenceError) Error() string {
	return fmt.Sprintf("audio quality too low (confidence: %.2f), please speak more clearly", e.Confidence)
}

const (
	historyWindow           = 10
	minTranscriptConfidence = 0.2
	replyMaxTokens          = 280

	// Fallback coordinates when the profile carries no parseable location.
	defaultLat = 9.145
	defaultLon = 40.489
)

// flowRunner is the slice of the flow service chat dispatches to.
type flowRunner interface {
	Diagnose(ctx context.Context, image []byte, lat, lon float64, language string) (*models.DiagnosisOutcome, error)
	RecommendCrops(ctx context.Context, lat, lon float64, depth string, topK, pastDays int) (*flows.CropRecommendation, error)
}

type geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (*providers.Place, error)
}

// Service coordinates chat sessions and their supporting providers. Any
// provider field may be nil; the affected capability degrades (translation
// passes text through, voice endpoints report unavailable).
type Service struct {
	sessions    store.ChatStore
	llm         providers.Completer
	translator  providers.Translator
	fallback    providers.Translator
	transcriber providers.Transcriber
	synthesizer providers.Synthesizer
	geocoder    geocoder
	flows       flowRunner
	now         func() time.Time
}

type Option func(*Service)

func WithLLM(c providers.Completer) Option {
	return func(s *Service) { s.llm = c }
}

// WithTranslator sets the primary translation backend.
func WithTranslator(t providers.Translator) Option {
	return func(s *Service) { s.translator = t }
}

// WithFallbackTranslator sets the backend tried when the primary fails.
func WithFallbackTranslator(t providers.Translator) Option {
	return func(s *Service) { s.fallback = t }
}

func WithTranscriber(t providers.Transcriber) Option {
	return func(s *Service) { s.transcriber = t }
}

func WithSynthesizer(t providers.Synthesizer) Option {
	return func(s *Service) { s.synthesizer = t }
}

func WithGeocoder(g geocoder) Option {
	return func(s *Service) { s.geocoder = g }
}

func WithFlows(f flowRunner) Option {
	return func(s *Service) { s.flows = f }
}

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(sessions store.ChatStore, opts ...Option) *Service {
	s := &Service{
		sessions: sessions,
		fallback: providers.PassthroughTranslator{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartSession creates an empty conversation owned by userID.
func (s *Service) StartSession(ctx context.Context, userID string) (*models.ChatSession, error) {
	now := s.now().UTC()
	session := &models.ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return session, nil
}

// History returns the full message log of a session, oldest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.sessions.ListMessages(ctx, sessionID, 0)
}

func (s *Service) getSession(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		var notFound *store.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

func (s *Service) appendMessage(ctx context.Context, sessionID, sender, text string) {
	msg := &models.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Sender:    sender,
		Text:      text,
		Timestamp: s.now().UTC(),
	}
	if err := s.sessions.AppendMessage(ctx, msg); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to persist chat message")
	}
}

// ── Language handling ────────────────────────────────────────

// resolveLanguage returns the preferred language when given, otherwise
// detects from the text. Detection failures default to English.
func (s *Service) resolveLanguage(ctx context.Context, preferred, text string) string {
	if preferred != "" {
		return preferred
	}
	if s.translator != nil {
		if lang, err := s.translator.DetectLanguage(ctx, text); err == nil {
			return lang
		}
	}
	if lang, err := s.fallback.DetectLanguage(ctx, text); err == nil {
		return lang
	}
	return "en"
}

// toEnglish translates text to English, returning it unchanged when both
// backends fail.
func (s *Service) toEnglish(ctx context.Context, text string) string {
	if s.translator != nil {
		if out, err := s.translator.TranslateToEnglish(ctx, text); err == nil {
			return out
		}
	}
	if out, err := s.fallback.TranslateToEnglish(ctx, text); err == nil {
		return out
	}
	return text
}

func (s *Service) fromEnglish(ctx context.Context, text, target string) string {
	if target == "en" || text == "" {
		return text
	}
	if s.translator != nil {
		if out, err := s.translator.TranslateFromEnglish(ctx, text, target); err == nil {
			return out
		}
	}
	if out, err := s.fallback.TranslateFromEnglish(ctx, text, target); err == nil {
		return out
	}
	return text
}

// ── Farmer context ───────────────────────────────────────────

// DisplayLocation renders a profile location for humans: coordinate strings
// are reverse-geocoded to a place name, and raw coordinate artifacts are
// stripped when geocoding is unavailable.
func (s *Service) DisplayLocation(ctx context.Context, location string) string {
	if location == "" {
		return "Unknown location"
	}
	lat, lon, ok := ParseLatLon(location)
	if !ok {
		return strings.TrimSpace(location)
	}
	if s.geocoder != nil {
		if place, err := s.geocoder.Reverse(ctx, lat, lon); err == nil {
			var parts []string
			switch {
			case place.City != "":
				parts = append(parts, place.City)
			case place.Name != "":
				parts = append(parts, place.Name)
			}
			if place.District != "" {
				parts = append(parts, place.District)
			}
			if place.Country != "" {
				parts = append(parts, place.Country)
			}
			if len(parts) > 0 {
				return strings.Join(parts, ", ")
			}
			return "Unknown location"
		}
	}
	return stripCoordinates(location)
}

func (s *Service) farmerInfo(ctx context.Context, user *models.User) string {
	return fmt.Sprintf(`Farmer Profile:
- Name: %s
- Location: %s
- Experience: %d years
- User Type: %s
- Main Goal: %s
- Preferred Language: %s
- Crops Grown: %s`,
		user.Name,
		s.DisplayLocation(ctx, user.Location),
		user.YearsExperience,
		user.UserType,
		user.MainGoal,
		user.PreferredLanguage,
		strings.Join(user.CropsGrown, ", "))
}

// userCoordinates parses the profile location, defaulting to the fallback
// region center when no coordinates are present.
func userCoordinates(user *models.User) (float64, float64) {
	if lat, lon, ok := ParseLatLon(user.Location); ok {
		return lat, lon
	}
	return defaultLat, defaultLon
}

// ── Prompts ──────────────────────────────────────────────────

const replyPolicyText = `You are an agricultural assistant helping farmers.
Reply policy:
- Be concise by default.
- If the user asks for diagnosis or mentions disease/symptoms, instruct them briefly to attach or take a clear photo of the affected plant using the camera button in the chat, then wait for the image.
- If the question is vague, ask one brief clarifying question.
- Use simple, direct language suited for farmers.`

const replyPolicyVoice = `You are an agricultural assistant helping farmers.
Reply policy:
- Be concise by default (1-3 sentences). Avoid small talk and generic disclaimers.
- If the question is vague, ask one brief clarifying question.
- Use simple, direct language suited for farmers.`

const closingBrief = `Provide a brief, helpful answer tailored to the farmer's context.`

const closingPersonalized = `Respond as the agricultural assistant, taking into account the farmer's specific profile, location, experience level, and crops. Provide personalized advice that considers their farming context.`

func buildPrompt(policy, farmer, history, message, closing string) string {
	return fmt.Sprintf(`%s

%s

Conversation history:
%s

User message:
%s

%s`, policy, farmer, history, message, closing)
}

// replyFromLLM records the user message, asks the LLM for an answer over the
// recent history, and records the reply. Text in and out is English.
func (s *Service) replyFromLLM(ctx context.Context, user *models.User, sessionID, messageEN, policy, closing string) (string, error) {
	if s.llm == nil {
		return "", providers.ErrUnavailable
	}
	if messageEN != "" {
		s.appendMessage(ctx, sessionID, models.SenderUser, messageEN)
	}

	history, err := s.sessions.ListMessages(ctx, sessionID, historyWindow)
	if err != nil {
		return "", fmt.Errorf("chat history: %w", err)
	}
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, m.Sender+": "+m.Text)
	}

	prompt := buildPrompt(policy, s.farmerInfo(ctx, user), strings.Join(lines, "\n"), messageEN, closing)
	temp := 0.2
	text, err := s.llm.Complete(ctx, prompt, providers.LLMOptions{
		Temperature:     &temp,
		MaxOutputTokens: replyMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	s.appendMessage(ctx, sessionID, models.SenderAssistant, text)
	return text, nil
}
