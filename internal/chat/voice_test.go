package chat_test

import (
	"context"
	"errors"
	"testing"

	"github.com/agrisage/agrisage/backend/internal/chat"
	"github.com/agrisage/agrisage/backend/internal/providers"
)

type fakeTranscriber struct {
	transcript *providers.Transcript
	err        error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, language string) (*providers.Transcript, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.transcript, nil
}

type fakeSynthesizer struct {
	err error
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text, language string) (*providers.Synthesis, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &providers.Synthesis{AudioBase64: "bW9jaw==", AudioFormat: "mp3"}, nil
}

func TestSendVoiceMessage(t *testing.T) {
	llm := &fakeLLM{intent: "general", reply: "**Irrigate** tonight."}
	svc, sessionID := newSessionService(t,
		chat.WithLLM(llm),
		chat.WithSynthesizer(&fakeSynthesizer{}),
	)

	reply, err := svc.SendVoiceMessage(context.Background(), testUser(), sessionID, "should I irrigate?", "en")
	if err != nil {
		t.Fatalf("SendVoiceMessage: %v", err)
	}
	if !reply.TTSSuccess {
		t.Error("TTSSuccess = false with a working synthesizer")
	}
	if reply.AudioBase64 == "" || reply.AudioFormat != "mp3" {
		t.Errorf("audio payload missing: %+v", reply)
	}
	if reply.Language != "en" {
		t.Errorf("language = %q, want en", reply.Language)
	}
	// Markdown survives in the text reply; only the spoken text is cleaned.
	if reply.Response != "**Irrigate** tonight." {
		t.Errorf("response = %q", reply.Response)
	}
}

func TestSendVoiceMessageSynthesisFailure(t *testing.T) {
	svc, sessionID := newSessionService(t,
		chat.WithLLM(&fakeLLM{intent: "general", reply: "Irrigate tonight."}),
		chat.WithSynthesizer(&fakeSynthesizer{err: errors.New("voice backend down")}),
	)

	reply, err := svc.SendVoiceMessage(context.Background(), testUser(), sessionID, "should I irrigate?", "en")
	if err != nil {
		t.Fatalf("SendVoiceMessage: %v", err)
	}
	if reply.TTSSuccess {
		t.Error("TTSSuccess = true after synthesis failure")
	}
	if reply.Response == "" {
		t.Error("text reply should survive synthesis failure")
	}
}

func TestSendAudioMessage(t *testing.T) {
	svc, sessionID := newSessionService(t,
		chat.WithLLM(&fakeLLM{intent: "general", reply: "Check the leaves for spots."}),
		chat.WithTranscriber(&fakeTranscriber{transcript: &providers.Transcript{
			Text:             "my crop looks sick",
			DetectedLanguage: "en",
			Confidence:       0.91,
		}}),
	)

	reply, err := svc.SendAudioMessage(context.Background(), testUser(), sessionID, []byte("ogg"), "")
	if err != nil {
		t.Fatalf("SendAudioMessage: %v", err)
	}
	if reply.TranscribedText != "my crop looks sick" {
		t.Errorf("transcribed = %q", reply.TranscribedText)
	}
	if reply.DetectedLanguage != "en" || reply.OriginalLanguage != "en" {
		t.Errorf("languages = %q / %q", reply.DetectedLanguage, reply.OriginalLanguage)
	}
	if reply.Confidence != 0.91 {
		t.Errorf("confidence = %v", reply.Confidence)
	}
}

func TestSendAudioMessageLowConfidence(t *testing.T) {
	svc, sessionID := newSessionService(t,
		chat.WithLLM(&fakeLLM{reply: "ok"}),
		chat.WithTranscriber(&fakeTranscriber{transcript: &providers.Transcript{
			Text:       "mumble",
			Confidence: 0.1,
		}}),
	)

	_, err := svc.SendAudioMessage(context.Background(), testUser(), sessionID, []byte("ogg"), "en")
	var lowConf *chat.LowConfidenceError
	if !errors.As(err, &lowConf) {
		t.Fatalf("want LowConfidenceError, got %v", err)
	}
	if lowConf.Confidence != 0.1 {
		t.Errorf("confidence = %v", lowConf.Confidence)
	}
}

func TestSendAudioMessageNoTranscriber(t *testing.T) {
	svc, sessionID := newSessionService(t, chat.WithLLM(&fakeLLM{reply: "ok"}))
	_, err := svc.SendAudioMessage(context.Background(), testUser(), sessionID, []byte("ogg"), "en")
	if !errors.Is(err, providers.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
}

func TestVoiceConversationEventOrder(t *testing.T) {
	svc, sessionID := newSessionService(t,
		chat.WithLLM(&fakeLLM{intent: "general", reply: "Spray in the evening."}),
		chat.WithTranscriber(&fakeTranscriber{transcript: &providers.Transcript{
			Text:             "when do I spray",
			DetectedLanguage: "en",
			Confidence:       0.8,
		}}),
		chat.WithSynthesizer(&fakeSynthesizer{}),
	)

	var events []string
	turn, err := svc.VoiceConversation(context.Background(), testUser(), sessionID, []byte("ogg"), "", func(event string, payload interface{}) error {
		events = append(events, event)
		return nil
	})
	if err != nil {
		t.Fatalf("VoiceConversation: %v", err)
	}

	want := []string{"detected_language", "response_text", "audio", "done"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events = %v, want %v", events, want)
		}
	}
	if turn.Response != "Spray in the evening." {
		t.Errorf("response = %q", turn.Response)
	}
	if !turn.TTSSuccess || turn.AudioFormat != "mp3" {
		t.Errorf("audio leg failed: %+v", turn)
	}
}

func TestVoiceConversationEmitAborts(t *testing.T) {
	svc, sessionID := newSessionService(t,
		chat.WithLLM(&fakeLLM{intent: "general", reply: "ok"}),
		chat.WithTranscriber(&fakeTranscriber{transcript: &providers.Transcript{
			Text:             "hello",
			DetectedLanguage: "en",
			Confidence:       0.9,
		}}),
	)

	sentinel := errors.New("client went away")
	_, err := svc.VoiceConversation(context.Background(), testUser(), sessionID, []byte("ogg"), "", func(string, interface{}) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("want emit error surfaced, got %v", err)
	}
}
