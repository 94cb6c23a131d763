package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const ProviderTranslate = "translate"

// Translator is the translation capability used by the chat service. The
// service holds a primary and a fallback implementation and tries them in
// order.
type Translator interface {
	DetectLanguage(ctx context.Context, text string) (string, error)
	TranslateToEnglish(ctx context.Context, text string) (string, error)
	TranslateFromEnglish(ctx context.Context, text, target string) (string, error)
}

// TranslateClient calls the hosted translation API (v2 REST surface).
type TranslateClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

type TranslateOption func(*TranslateClient)

func WithTranslateEndpoint(endpoint string) TranslateOption {
	return func(c *TranslateClient) { c.endpoint = endpoint }
}

func NewTranslateClient(apiKey, endpoint string, opts ...TranslateOption) (*TranslateClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("translate: %w", ErrUnavailable)
	}
	c := &TranslateClient{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *TranslateClient) DetectLanguage(ctx context.Context, text string) (string, error) {
	form := url.Values{"q": {text}}
	var result struct {
		Data struct {
			Detections [][]struct {
				Language string `json:"language"`
			} `json:"detections"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/detect", form, &result); err != nil {
		return "", err
	}
	if len(result.Data.Detections) == 0 || len(result.Data.Detections[0]) == 0 {
		return "", parseErr(ProviderTranslate, fmt.Errorf("detection returned no languages"))
	}
	return result.Data.Detections[0][0].Language, nil
}

func (c *TranslateClient) TranslateToEnglish(ctx context.Context, text string) (string, error) {
	return c.translate(ctx, text, "", "en")
}

func (c *TranslateClient) TranslateFromEnglish(ctx context.Context, text, target string) (string, error) {
	return c.translate(ctx, text, "en", target)
}

func (c *TranslateClient) translate(ctx context.Context, text, source, target string) (string, error) {
	form := url.Values{"q": {text}, "target": {target}, "format": {"text"}}
	if source != "" {
		form.Set("source", source)
	}
	var result struct {
		Data struct {
			Translations []struct {
				TranslatedText string `json:"translatedText"`
			} `json:"translations"`
		} `json:"data"`
	}
	if err := c.post(ctx, "", form, &result); err != nil {
		return "", err
	}
	if len(result.Data.Translations) == 0 {
		return "", parseErr(ProviderTranslate, fmt.Errorf("translation returned no results"))
	}
	return result.Data.Translations[0].TranslatedText, nil
}

func (c *TranslateClient) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	form.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, strings.NewReader(form.Encode()))
	if err != nil {
		return adapterErr(ProviderTranslate, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return adapterErr(ProviderTranslate, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return adapterErr(ProviderTranslate, err)
	}
	if resp.StatusCode != http.StatusOK {
		return statusErr(ProviderTranslate, resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return parseErr(ProviderTranslate, err)
	}
	return nil
}

// PassthroughTranslator is the fallback of last resort when no translation
// backend is configured: it reports English and returns text unchanged, so
// chat keeps working monolingually instead of failing.
type PassthroughTranslator struct{}

func (PassthroughTranslator) DetectLanguage(context.Context, string) (string, error) {
	return "en", nil
}

func (PassthroughTranslator) TranslateToEnglish(_ context.Context, text string) (string, error) {
	return text, nil
}

func (PassthroughTranslator) TranslateFromEnglish(_ context.Context, text, _ string) (string, error) {
	return text, nil
}
