package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// Provider names as they appear in DiagnosisResult.SourceFailures.
const (
	ProviderCropVision   = "cropvision"
	ProviderLeafScan     = "leafscan"
	ProviderHealthScreen = "healthscreen"
)

// ── CropVision (identification) ──────────────────────────────

// CropVisionRaw is the vendor response shape for the identification API.
type CropVisionRaw struct {
	Result struct {
		IsPlant struct {
			Binary bool `json:"binary"`
		} `json:"is_plant"`
		Disease struct {
			Suggestions []CropVisionSuggestion `json:"suggestions"`
		} `json:"disease"`
		Crop struct {
			Suggestions []CropVisionSuggestion `json:"suggestions"`
		} `json:"crop"`
	} `json:"result"`
	Error string `json:"error,omitempty"`
}

type CropVisionSuggestion struct {
	Name           string  `json:"name"`
	Probability    float64 `json:"probability"`
	ScientificName string  `json:"scientific_name"`
	SimilarImages  []struct {
		URL      string `json:"url"`
		Citation string `json:"citation"`
	} `json:"similar_images"`
}

// CropVisionClient calls the crop identification vendor. It is one of the
// two critical diagnosis providers.
type CropVisionClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// CropVisionOption configures the client.
type CropVisionOption func(*CropVisionClient)

// WithCropVisionEndpoint overrides the API endpoint (tests, proxies).
func WithCropVisionEndpoint(endpoint string) CropVisionOption {
	return func(c *CropVisionClient) { c.endpoint = endpoint }
}

// NewCropVisionClient creates the identification client. Returns
// ErrUnavailable when no API key is configured.
func NewCropVisionClient(apiKey, endpoint string, opts ...CropVisionOption) (*CropVisionClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("cropvision: %w", ErrUnavailable)
	}
	c := &CropVisionClient{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Identify uploads the image with its coordinates and returns the raw
// identification result.
func (c *CropVisionClient) Identify(ctx context.Context, image []byte, lat, lon float64) (*CropVisionRaw, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	mw.WriteField("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	mw.WriteField("similar_images", "true")
	fw, err := mw.CreateFormFile("images", "upload.jpg")
	if err != nil {
		return nil, adapterErr(ProviderCropVision, err)
	}
	fw.Write(image)
	mw.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		return nil, adapterErr(ProviderCropVision, err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, adapterErr(ProviderCropVision, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, adapterErr(ProviderCropVision, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusErr(ProviderCropVision, resp.StatusCode, string(body))
	}

	var raw CropVisionRaw
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, parseErr(ProviderCropVision, err)
	}
	if raw.Error != "" {
		return nil, &AdapterError{Provider: ProviderCropVision, Kind: ErrKindHTTPStatus, Message: raw.Error}
	}
	return &raw, nil
}

// ── LeafScan (detailed leaf analysis) ────────────────────────

// LeafScanRaw is the vendor response shape for the leaf analysis API.
type LeafScanRaw struct {
	Data struct {
		Crops              []string               `json:"crops"`
		DiagnosesDetected  bool                   `json:"diagnoses_detected"`
		ImageFeedback      map[string]interface{} `json:"image_feedback"`
		PredictedDiagnoses []LeafScanDiagnosis    `json:"predicted_diagnoses"`
	} `json:"data"`
}

type LeafScanDiagnosis struct {
	CommonName          string   `json:"common_name"`
	DiagnosisLikelihood string   `json:"diagnosis_likelihood"`
	ScientificName      string   `json:"scientific_name"`
	PathogenClass       string   `json:"pathogen_class"`
	SymptomsShort       []string `json:"symptoms_short"`
	PreventiveMeasures  []string `json:"preventive_measures"`
	TreatmentChemical   string   `json:"treatment_chemical"`
	TreatmentOrganic    string   `json:"treatment_organic"`
	Trigger             string   `json:"trigger"`
}

// LeafScanClient calls the leaf analysis vendor. It is the second critical
// diagnosis provider. The vendor rejects very small images, so uploads go
// through NormalizeImage first.
type LeafScanClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

type LeafScanOption func(*LeafScanClient)

func WithLeafScanEndpoint(endpoint string) LeafScanOption {
	return func(c *LeafScanClient) { c.endpoint = endpoint }
}

func NewLeafScanClient(apiKey, endpoint string, opts ...LeafScanOption) (*LeafScanClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("leafscan: %w", ErrUnavailable)
	}
	c := &LeafScanClient{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Analyze normalizes the image resolution and uploads it for analysis.
func (c *LeafScanClient) Analyze(ctx context.Context, image []byte, lat, lon float64, language string) (*LeafScanRaw, error) {
	normalized, err := NormalizeImage(image)
	if err != nil {
		return nil, parseErr(ProviderLeafScan, err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "upload.jpg")
	if err != nil {
		return nil, adapterErr(ProviderLeafScan, err)
	}
	fw.Write(normalized)
	mw.Close()

	url := fmt.Sprintf("%s?api_key=%s&language=%s&lat=%s&lon=%s",
		c.endpoint, c.apiKey, language,
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lon, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, adapterErr(ProviderLeafScan, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, adapterErr(ProviderLeafScan, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, adapterErr(ProviderLeafScan, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusErr(ProviderLeafScan, resp.StatusCode, string(body))
	}

	var raw LeafScanRaw
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, parseErr(ProviderLeafScan, err)
	}
	return &raw, nil
}

// ── HealthScreen (binary healthy/not-healthy) ────────────────

// HealthScreenRaw maps class labels to probabilities. The vendor uses
// HLT / NOT_HLT for the binary model.
type HealthScreenRaw map[string]float64

// HealthScreenClient calls the binary health screening endpoint. It is
// supplementary: its failure alone never fails a diagnosis.
type HealthScreenClient struct {
	endpoint string
	client   *http.Client
}

type HealthScreenOption func(*HealthScreenClient)

func WithHealthScreenEndpoint(endpoint string) HealthScreenOption {
	return func(c *HealthScreenClient) { c.endpoint = endpoint }
}

func NewHealthScreenClient(endpoint string, opts ...HealthScreenOption) *HealthScreenClient {
	c := &HealthScreenClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Screen posts the raw JPEG bytes and returns class probabilities.
func (c *HealthScreenClient) Screen(ctx context.Context, image []byte) (HealthScreenRaw, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, adapterErr(ProviderHealthScreen, err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, adapterErr(ProviderHealthScreen, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, adapterErr(ProviderHealthScreen, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusErr(ProviderHealthScreen, resp.StatusCode, string(body))
	}

	var raw HealthScreenRaw
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, parseErr(ProviderHealthScreen, err)
	}
	return raw, nil
}
