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

const ProviderDetect = "detect-language"

const defaultDetectEndpoint = "https://ws.detectlanguage.com/0.2/detect"

// DetectClient is a detection-only Translator backed by the standalone
// language-detection API. It is used as the fallback when the primary
// translation backend cannot identify a language; translation itself
// passes text through unchanged.
type DetectClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

type DetectOption func(*DetectClient)

func WithDetectEndpoint(endpoint string) DetectOption {
	return func(c *DetectClient) { c.endpoint = endpoint }
}

func NewDetectClient(apiKey string, opts ...DetectOption) (*DetectClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("detect-language: %w", ErrUnavailable)
	}
	c := &DetectClient{
		apiKey:   apiKey,
		endpoint: defaultDetectEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *DetectClient) DetectLanguage(ctx context.Context, text string) (string, error) {
	form := url.Values{"q": {text}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", adapterErr(ProviderDetect, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", adapterErr(ProviderDetect, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", adapterErr(ProviderDetect, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusErr(ProviderDetect, resp.StatusCode, string(body))
	}

	var result struct {
		Data struct {
			Detections []struct {
				Language string `json:"language"`
			} `json:"detections"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", parseErr(ProviderDetect, err)
	}
	if len(result.Data.Detections) == 0 {
		return "", parseErr(ProviderDetect, fmt.Errorf("no detections in response"))
	}
	return result.Data.Detections[0].Language, nil
}

// TranslateToEnglish returns text unchanged. The fallback backend only
// detects languages.
func (c *DetectClient) TranslateToEnglish(_ context.Context, text string) (string, error) {
	return text, nil
}

func (c *DetectClient) TranslateFromEnglish(_ context.Context, text, _ string) (string, error) {
	return text, nil
}
