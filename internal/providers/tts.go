package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Synthesis is the normalized text-to-speech payload.
type Synthesis struct {
	AudioBase64 string `json:"audio_base64"`
	AudioFormat string `json:"audio_format"`
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) (*Synthesis, error)
}

// ttsVoice selects voice and speaking rate per language.
type ttsVoice struct {
	LanguageCode string
	VoiceName    string
	SpeakingRate float64
}

var ttsVoices = map[string]ttsVoice{
	"en": {"en-US", "en-US-Neural2-F", 0.9},
	"am": {"am-ET", "am-ET-Standard-A", 1.0},
	"no": {"no-NO", "no-NO-Standard-A", 1.0},
	"sw": {"sw-KE", "sw-KE-Standard-A", 1.0},
	"es": {"es-ES", "es-ES-Neural2-A", 1.0},
	"id": {"id-ID", "id-ID-Standard-A", 1.0},
}

// TTSClient calls the hosted speech synthesis API.
type TTSClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

type TTSOption func(*TTSClient)

func WithTTSEndpoint(endpoint string) TTSOption {
	return func(c *TTSClient) { c.endpoint = endpoint }
}

func NewTTSClient(apiKey, endpoint string, opts ...TTSOption) (*TTSClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("tts: %w", ErrUnavailable)
	}
	c := &TTSClient{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Synthesize renders text as MP3 audio in the requested language, falling
// back to the English voice for unknown languages.
func (c *TTSClient) Synthesize(ctx context.Context, text, language string) (*Synthesis, error) {
	voice, ok := ttsVoices[language]
	if !ok {
		voice = ttsVoices["en"]
	}

	reqBody := map[string]interface{}{
		"input": map[string]string{"text": text},
		"voice": map[string]string{
			"languageCode": voice.LanguageCode,
			"name":         voice.VoiceName,
		},
		"audioConfig": map[string]interface{}{
			"audioEncoding": "MP3",
			"speakingRate":  voice.SpeakingRate,
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, parseErr(ProviderTTS, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?key="+c.apiKey, bytes.NewReader(body))
	if err != nil {
		return nil, adapterErr(ProviderTTS, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, adapterErr(ProviderTTS, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, adapterErr(ProviderTTS, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusErr(ProviderTTS, resp.StatusCode, string(respBody))
	}

	var result struct {
		AudioContent string `json:"audioContent"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, parseErr(ProviderTTS, err)
	}
	if result.AudioContent == "" {
		return nil, parseErr(ProviderTTS, fmt.Errorf("synthesis returned no audio"))
	}

	return &Synthesis{AudioBase64: result.AudioContent, AudioFormat: "mp3"}, nil
}
