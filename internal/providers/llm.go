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

const ProviderLLM = "llm"

// LLMOptions carry per-call sampling parameters. Zero values mean vendor
// defaults.
type LLMOptions struct {
	Temperature     *float64
	MaxOutputTokens int
}

// Completer is the generative-text capability the flows depend on.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts LLMOptions) (string, error)
}

// LLMClient calls the hosted generative model's generateContent endpoint.
type LLMClient struct {
	apiKey   string
	model    string
	endpoint string // base URL, model path appended per call
	client   *http.Client
}

type LLMOption func(*LLMClient)

// WithLLMEndpoint overrides the API base URL (tests, proxies).
func WithLLMEndpoint(endpoint string) LLMOption {
	return func(c *LLMClient) { c.endpoint = endpoint }
}

// NewLLMClient creates the generative text client. Returns ErrUnavailable
// when no API key is configured so callers can degrade instead of holding a
// nil client.
func NewLLMClient(apiKey, model, endpoint string, opts ...LLMOption) (*LLMClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: %w", ErrUnavailable)
	}
	c := &LLMClient{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type llmGenerateRequest struct {
	Contents []llmContent  `json:"contents"`
	Config   *llmGenConfig `json:"generationConfig,omitempty"`
}

type llmContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []llmPart `json:"parts"`
}

type llmPart struct {
	Text string `json:"text"`
}

type llmGenConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type llmGenerateResponse struct {
	Candidates []struct {
		Content llmContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Complete sends a prompt and returns the model's text.
func (c *LLMClient) Complete(ctx context.Context, prompt string, opts LLMOptions) (string, error) {
	reqBody := llmGenerateRequest{
		Contents: []llmContent{{Role: "user", Parts: []llmPart{{Text: prompt}}}},
	}
	if opts.Temperature != nil || opts.MaxOutputTokens > 0 {
		reqBody.Config = &llmGenConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxOutputTokens,
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", parseErr(ProviderLLM, err)
	}

	u := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.endpoint, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", adapterErr(ProviderLLM, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", adapterErr(ProviderLLM, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", adapterErr(ProviderLLM, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusErr(ProviderLLM, resp.StatusCode, string(respBody))
	}

	var result llmGenerateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", parseErr(ProviderLLM, err)
	}
	if result.Error != nil {
		return "", &AdapterError{Provider: ProviderLLM, Kind: ErrKindHTTPStatus, Message: result.Error.Message}
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", parseErr(ProviderLLM, fmt.Errorf("response carried no candidates"))
	}

	var text string
	for _, p := range result.Candidates[0].Content.Parts {
		text += p.Text
	}
	return text, nil
}
