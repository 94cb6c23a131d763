package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ProviderSoilType     = "soiltype"
	ProviderSoilProperty = "soilproperty"
)

// ── Token source ─────────────────────────────────────────────

// TokenSource supplies short-lived bearer tokens for the soil property API.
// Implementations decide whether tokens are cached; call sites never do.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// PasswordGrantTokenSource obtains tokens via the vendor's password-grant
// login endpoint and caches them until shortly before expiry.
type PasswordGrantTokenSource struct {
	loginURL string
	username string
	password string
	client   *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewPasswordGrantTokenSource creates a caching token source. Returns
// ErrUnavailable when credentials are missing.
func NewPasswordGrantTokenSource(loginURL, username, password string) (*PasswordGrantTokenSource, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("soil token source: %w", ErrUnavailable)
	}
	return &PasswordGrantTokenSource{
		loginURL: loginURL,
		username: username,
		password: password,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Token returns a cached token when one is still valid, otherwise logs in.
func (ts *PasswordGrantTokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && time.Now().Before(ts.expires) {
		return ts.token, nil
	}

	form := url.Values{
		"grant_type":    {"password"},
		"username":      {ts.username},
		"password":      {ts.password},
		"scope":         {""},
		"client_id":     {"string"},
		"client_secret": {"string"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", adapterErr(ProviderSoilProperty, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.client.Do(req)
	if err != nil {
		return "", adapterErr(ProviderSoilProperty, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", adapterErr(ProviderSoilProperty, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusErr(ProviderSoilProperty, resp.StatusCode, string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", parseErr(ProviderSoilProperty, err)
	}
	if payload.AccessToken == "" {
		return "", authErr(ProviderSoilProperty, "login response carried no access token")
	}

	ttl := time.Duration(payload.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	ts.token = payload.AccessToken
	// Renew a minute early so in-flight property lookups never race expiry.
	ts.expires = time.Now().Add(ttl - time.Minute)
	return ts.token, nil
}

// ── Soil clients ─────────────────────────────────────────────

// SoilTypeRaw is the soil type classification response.
type SoilTypeRaw struct {
	Properties struct {
		MostProbableSoilType string `json:"most_probable_soil_type"`
		Probabilities        []struct {
			SoilType    string  `json:"soil_type"`
			Probability float64 `json:"probability"`
		} `json:"probabilities"`
	} `json:"properties"`
}

// SoilPropertyRaw is the property lookup response: property name → layered
// values.
type SoilPropertyRaw struct {
	Property map[string][]SoilPropertyLayer `json:"property"`
}

type SoilPropertyLayer struct {
	Value struct {
		Type  string      `json:"type"`
		Unit  string      `json:"unit"`
		Value interface{} `json:"value"`
	} `json:"value"`
	Depth struct {
		Value string `json:"value"`
		Unit  string `json:"unit"`
	} `json:"depth"`
}

// SoilClient composes the soil type classification and the token-gated
// property lookup.
type SoilClient struct {
	typeURL     string
	propertyURL string
	tokens      TokenSource
	client      *http.Client
}

type SoilOption func(*SoilClient)

func WithSoilTypeEndpoint(endpoint string) SoilOption {
	return func(c *SoilClient) { c.typeURL = endpoint }
}

func WithSoilPropertyEndpoint(endpoint string) SoilOption {
	return func(c *SoilClient) { c.propertyURL = endpoint }
}

// NewSoilClient creates the composed soil client. tokens may not be nil:
// the property lookup requires bearer auth.
func NewSoilClient(typeURL, propertyURL string, tokens TokenSource, opts ...SoilOption) *SoilClient {
	c := &SoilClient{
		typeURL:     typeURL,
		propertyURL: propertyURL,
		tokens:      tokens,
		client:      &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchType returns the soil type classification for a coordinate.
func (c *SoilClient) FetchType(ctx context.Context, lat, lon float64, topK int) (*SoilTypeRaw, error) {
	var raw SoilTypeRaw
	err := withRetry(ctx, func() error {
		u := fmt.Sprintf("%s?lat=%s&lon=%s&top_k=%d", c.typeURL,
			strconv.FormatFloat(lat, 'f', -1, 64),
			strconv.FormatFloat(lon, 'f', -1, 64), topK)
		return c.getJSON(ctx, ProviderSoilType, u, "", &raw)
	})
	if err != nil {
		return nil, err
	}
	return &raw, nil
}

// FetchProperties returns layered soil properties for a coordinate and depth
// window. Token acquisition failure fails the lookup.
func (c *SoilClient) FetchProperties(ctx context.Context, lat, lon float64, depth string) (*SoilPropertyRaw, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var raw SoilPropertyRaw
	err = withRetry(ctx, func() error {
		u := fmt.Sprintf("%s?lat=%s&lon=%s&depth=%s", c.propertyURL,
			strconv.FormatFloat(lat, 'f', -1, 64),
			strconv.FormatFloat(lon, 'f', -1, 64), url.QueryEscape(depth))
		return c.getJSON(ctx, ProviderSoilProperty, u, token, &raw)
	})
	if err != nil {
		return nil, err
	}
	return &raw, nil
}

func (c *SoilClient) getJSON(ctx context.Context, provider, u, bearer string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return adapterErr(provider, err)
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return adapterErr(provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return adapterErr(provider, err)
	}
	if resp.StatusCode != http.StatusOK {
		return statusErr(provider, resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return parseErr(provider, err)
	}
	return nil
}
