package chat

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/agrisage/agrisage/backend/internal/providers"
	"github.com/agrisage/agrisage/backend/pkg/models"
)

// VoiceReply answers a text turn with both text and synthesized audio.
type VoiceReply struct {
	Response    string `json:"response"`
	AudioBase64 string `json:"audio_base64,omitempty"`
	AudioFormat string `json:"audio_format,omitempty"`
	Language    string `json:"language"`
	TTSSuccess  bool   `json:"tts_success"`
}

// AudioReply answers a spoken turn with text only.
type AudioReply struct {
	Response         string  `json:"response"`
	TranscribedText  string  `json:"transcribed_text"`
	DetectedLanguage string  `json:"detected_language"`
	Confidence       float64 `json:"confidence"`
	OriginalLanguage string  `json:"original_language"`
}

// VoiceTurn is one full round of a voice conversation: transcript in,
// text and audio out.
type VoiceTurn struct {
	Response         string  `json:"response"`
	TranscribedText  string  `json:"transcribed_text"`
	DetectedLanguage string  `json:"detected_language"`
	Confidence       float64 `json:"confidence"`
	OriginalLanguage string  `json:"original_language"`
	AudioBase64      string  `json:"audio_base64,omitempty"`
	AudioFormat      string  `json:"audio_format,omitempty"`
	TTSSuccess       bool    `json:"tts_success"`
}

// SendVoiceMessage answers a text message with text plus synthesized speech
// in the user's language.
func (s *Service) SendVoiceMessage(ctx context.Context, user *models.User, sessionID, message, preferredLanguage string) (*VoiceReply, error) {
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}

	lang := s.resolveLanguage(ctx, preferredLanguage, message)
	messageEN := message
	if lang != "en" {
		messageEN = s.toEnglish(ctx, message)
	}

	text, err := s.replyFromLLM(ctx, user, sessionID, messageEN, replyPolicyVoice, closingBrief)
	if err != nil {
		return nil, err
	}
	text = CompactText(s.fromEnglish(ctx, text, lang))

	reply := &VoiceReply{Response: text, Language: lang}
	reply.AudioBase64, reply.AudioFormat, reply.TTSSuccess = s.synthesize(ctx, text, lang)
	return reply, nil
}

// SendAudioMessage transcribes spoken audio and answers with text in the
// speaker's language.
func (s *Service) SendAudioMessage(ctx context.Context, user *models.User, sessionID string, audio []byte, language string) (*AudioReply, error) {
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}
	transcript, lang, err := s.transcribe(ctx, audio, language)
	if err != nil {
		return nil, err
	}

	messageEN := transcript.Text
	if lang != "en" {
		messageEN = s.toEnglish(ctx, transcript.Text)
	}

	text, err := s.replyFromLLM(ctx, user, sessionID, messageEN, replyPolicyText, closingBrief)
	if err != nil {
		return nil, err
	}
	text = s.fromEnglish(ctx, text, lang)

	return &AudioReply{
		Response:         text,
		TranscribedText:  transcript.Text,
		DetectedLanguage: transcript.DetectedLanguage,
		Confidence:       transcript.Confidence,
		OriginalLanguage: lang,
	}, nil
}

// VoiceConversation runs a full spoken round trip: transcription, LLM reply,
// translation, and speech synthesis. When emit is non-nil each stage is
// reported as it completes, in the order detected_language, response_text,
// audio, done; an emit error aborts the turn.
func (s *Service) VoiceConversation(ctx context.Context, user *models.User, sessionID string, audio []byte, language string, emit func(event string, payload interface{}) error) (*VoiceTurn, error) {
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}
	transcript, lang, err := s.transcribe(ctx, audio, language)
	if err != nil {
		return nil, err
	}

	turn := &VoiceTurn{
		TranscribedText:  transcript.Text,
		DetectedLanguage: transcript.DetectedLanguage,
		Confidence:       transcript.Confidence,
		OriginalLanguage: lang,
	}
	if emit != nil {
		err := emit("detected_language", map[string]interface{}{
			"detected_language": transcript.DetectedLanguage,
			"confidence":        transcript.Confidence,
			"original_language": lang,
			"transcribed_text":  transcript.Text,
		})
		if err != nil {
			return nil, err
		}
	}

	messageEN := transcript.Text
	if lang != "en" {
		messageEN = s.toEnglish(ctx, transcript.Text)
	}

	text, err := s.replyFromLLM(ctx, user, sessionID, messageEN, replyPolicyText, closingPersonalized)
	if err != nil {
		return nil, err
	}
	turn.Response = CompactText(s.fromEnglish(ctx, text, lang))
	if emit != nil {
		if err := emit("response_text", map[string]interface{}{"response": turn.Response}); err != nil {
			return nil, err
		}
	}

	turn.AudioBase64, turn.AudioFormat, turn.TTSSuccess = s.synthesize(ctx, turn.Response, lang)
	if emit != nil {
		err := emit("audio", map[string]interface{}{
			"audio_base64": turn.AudioBase64,
			"audio_format": turn.AudioFormat,
			"language":     lang,
			"tts_success":  turn.TTSSuccess,
		})
		if err != nil {
			return nil, err
		}
		if err := emit("done", map[string]interface{}{"ok": true}); err != nil {
			return nil, err
		}
	}
	return turn, nil
}

// transcribe recognizes speech and settles the conversation language: the
// caller's explicit choice wins, otherwise the detected one.
func (s *Service) transcribe(ctx context.Context, audio []byte, language string) (*providers.Transcript, string, error) {
	if s.transcriber == nil {
		return nil, "", providers.ErrUnavailable
	}
	transcript, err := s.transcriber.Transcribe(ctx, audio, language)
	if err != nil {
		return nil, "", err
	}
	if transcript.Confidence < minTranscriptConfidence {
		return nil, "", &LowConfidenceError{Confidence: transcript.Confidence}
	}
	lang := language
	if lang == "" {
		lang = transcript.DetectedLanguage
	}
	return transcript, lang, nil
}

// synthesize renders speech for a reply, degrading to text-only on failure.
func (s *Service) synthesize(ctx context.Context, text, lang string) (audioBase64, format string, ok bool) {
	if s.synthesizer == nil {
		return "", "", false
	}
	synth, err := s.synthesizer.Synthesize(ctx, CleanForTTS(text), lang)
	if err != nil {
		log.Warn().Err(err).Str("language", lang).Msg("speech synthesis failed")
		return "", "", false
	}
	return synth.AudioBase64, synth.AudioFormat, true
}
