package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const ProviderGeocode = "geocode"

// Place is the normalized reverse-geocoding payload.
type Place struct {
	Name     string `json:"name,omitempty"`
	City     string `json:"city,omitempty"`
	District string `json:"district,omitempty"`
	Country  string `json:"country,omitempty"`
}

// GeocodeClient reverse-geocodes coordinates into place names for display.
type GeocodeClient struct {
	endpoint string
	client   *http.Client
}

type GeocodeOption func(*GeocodeClient)

func WithGeocodeEndpoint(endpoint string) GeocodeOption {
	return func(c *GeocodeClient) { c.endpoint = endpoint }
}

func NewGeocodeClient(endpoint string, opts ...GeocodeOption) *GeocodeClient {
	c := &GeocodeClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reverse looks up the place at a coordinate.
func (c *GeocodeClient) Reverse(ctx context.Context, lat, lon float64) (*Place, error) {
	u := fmt.Sprintf("%s?lat=%s&lon=%s", c.endpoint,
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lon, 'f', -1, 64))

	var payload struct {
		Features []struct {
			Properties Place `json:"properties"`
		} `json:"features"`
	}
	err := withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return adapterErr(ProviderGeocode, err)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return adapterErr(ProviderGeocode, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return adapterErr(ProviderGeocode, err)
		}
		if resp.StatusCode != http.StatusOK {
			return statusErr(ProviderGeocode, resp.StatusCode, string(body))
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return parseErr(ProviderGeocode, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(payload.Features) == 0 {
		return nil, parseErr(ProviderGeocode, fmt.Errorf("no place found for %f,%f", lat, lon))
	}
	p := payload.Features[0].Properties
	return &p, nil
}
