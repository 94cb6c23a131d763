package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/agrisage/agrisage/backend/pkg/models"
)

const ProviderWeather = "weather"

// openMeteoDaily mirrors the vendor's daily block; samples are nullable.
type openMeteoDaily struct {
	Time               []string   `json:"time"`
	WeatherCode        []*int     `json:"weather_code"`
	TemperatureMax     []*float64 `json:"temperature_2m_max"`
	TemperatureMin     []*float64 `json:"temperature_2m_min"`
	SunshineDuration   []*float64 `json:"sunshine_duration"`
	RainSum            []*float64 `json:"rain_sum"`
	WindSpeedMax       []*float64 `json:"wind_speed_10m_max"`
	Evapotranspiration []*float64 `json:"et0_fao_evapotranspiration"`
}

// WeatherClient fetches daily weather series from the forecast aggregator.
type WeatherClient struct {
	endpoint string
	client   *http.Client
}

type WeatherOption func(*WeatherClient)

func WithWeatherEndpoint(endpoint string) WeatherOption {
	return func(c *WeatherClient) { c.endpoint = endpoint }
}

func NewWeatherClient(endpoint string, opts ...WeatherOption) *WeatherClient {
	c := &WeatherClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchDaily returns the daily series covering pastDays back and
// forecastDays ahead of today.
func (c *WeatherClient) FetchDaily(ctx context.Context, lat, lon float64, pastDays, forecastDays int) (*models.WeatherSeries, error) {
	u := fmt.Sprintf("%s?latitude=%s&longitude=%s&daily=%s&past_days=%d&forecast_days=%d&timezone=auto",
		c.endpoint,
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lon, 'f', -1, 64),
		"weather_code,temperature_2m_max,temperature_2m_min,sunshine_duration,rain_sum,wind_speed_10m_max,et0_fao_evapotranspiration",
		pastDays, forecastDays)

	var payload struct {
		Daily openMeteoDaily `json:"daily"`
	}
	err := withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return adapterErr(ProviderWeather, err)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return adapterErr(ProviderWeather, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return adapterErr(ProviderWeather, err)
		}
		if resp.StatusCode != http.StatusOK {
			return statusErr(ProviderWeather, resp.StatusCode, string(body))
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return parseErr(ProviderWeather, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	d := payload.Daily
	return &models.WeatherSeries{
		Dates:              d.Time,
		WeatherCode:        d.WeatherCode,
		TemperatureMax:     d.TemperatureMax,
		TemperatureMin:     d.TemperatureMin,
		SunshineDuration:   d.SunshineDuration,
		RainSum:            d.RainSum,
		WindSpeedMax:       d.WindSpeedMax,
		Evapotranspiration: d.Evapotranspiration,
	}, nil
}
