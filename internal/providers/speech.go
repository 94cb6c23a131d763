package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	ProviderSpeech = "speech"
	ProviderTTS    = "tts"
)

// Transcript is the normalized speech-to-text payload.
type Transcript struct {
	Text             string  `json:"text"`
	DetectedLanguage string  `json:"detected_language"`
	Confidence       float64 `json:"confidence"`
}

// Transcriber converts audio to text.
type Transcriber interface {
	// Transcribe recognizes speech in the audio bytes. language is a hint
	// ("en", "am", ...); empty means auto-detect.
	Transcribe(ctx context.Context, audio []byte, language string) (*Transcript, error)
}

// SpeechClient calls the hosted speech recognition API.
type SpeechClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

type SpeechOption func(*SpeechClient)

func WithSpeechEndpoint(endpoint string) SpeechOption {
	return func(c *SpeechClient) { c.endpoint = endpoint }
}

func NewSpeechClient(apiKey, endpoint string, opts ...SpeechOption) (*SpeechClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("speech: %w", ErrUnavailable)
	}
	c := &SpeechClient{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// speechLocale maps short language codes to recognition locales.
var speechLocale = map[string]string{
	"en": "en-US",
	"am": "am-ET",
	"no": "no-NO",
	"sw": "sw-KE",
	"es": "es-ES",
	"id": "id-ID",
}

func (c *SpeechClient) Transcribe(ctx context.Context, audio []byte, language string) (*Transcript, error) {
	locale, ok := speechLocale[language]
	if !ok {
		locale = "en-US"
	}

	reqBody := map[string]interface{}{
		"config": map[string]interface{}{
			"languageCode":               locale,
			"enableAutomaticPunctuation": true,
		},
		"audio": map[string]string{
			"content": base64.StdEncoding.EncodeToString(audio),
		},
	}
	if language == "" {
		// Auto-detect among the supported locales.
		alts := make([]string, 0, len(speechLocale))
		for _, l := range speechLocale {
			if l != "en-US" {
				alts = append(alts, l)
			}
		}
		reqBody["config"].(map[string]interface{})["alternativeLanguageCodes"] = alts
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, parseErr(ProviderSpeech, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?key="+c.apiKey, bytes.NewReader(body))
	if err != nil {
		return nil, adapterErr(ProviderSpeech, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, adapterErr(ProviderSpeech, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, adapterErr(ProviderSpeech, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusErr(ProviderSpeech, resp.StatusCode, string(respBody))
	}

	var result struct {
		Results []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
			LanguageCode string `json:"languageCode"`
		} `json:"results"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, parseErr(ProviderSpeech, err)
	}
	if len(result.Results) == 0 || len(result.Results[0].Alternatives) == 0 {
		return nil, parseErr(ProviderSpeech, fmt.Errorf("recognition returned no alternatives"))
	}

	best := result.Results[0]
	detected := shortLanguage(best.LanguageCode)
	if language != "" {
		detected = language
	}
	return &Transcript{
		Text:             best.Alternatives[0].Transcript,
		DetectedLanguage: detected,
		Confidence:       best.Alternatives[0].Confidence,
	}, nil
}

// shortLanguage trims a locale ("en-US") to its language code ("en").
func shortLanguage(locale string) string {
	for i := 0; i < len(locale); i++ {
		if locale[i] == '-' {
			return locale[:i]
		}
	}
	return locale
}
