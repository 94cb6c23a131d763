package flows

import (
	"context"
	"fmt"

	"github.com/agrisage/agrisage/backend/internal/normalize"
	"github.com/agrisage/agrisage/backend/internal/providers"
	"github.com/agrisage/agrisage/backend/pkg/models"
)

// maxForecastDays is the provider's forecast horizon.
const maxForecastDays = 16

// WeatherForecast returns the raw daily series for a past/future window.
func (s *Service) WeatherForecast(ctx context.Context, lat, lon float64, pastDays, forecastDays int) (*models.WeatherSeries, error) {
	if s.weather == nil {
		return nil, providers.ErrUnavailable
	}
	return s.weather.FetchDaily(ctx, lat, lon, pastDays, forecastDays)
}

// WeatherSummary fetches a daily window and aggregates it for prompts.
func (s *Service) WeatherSummary(ctx context.Context, lat, lon float64, pastDays, forecastDays int) (*models.WeatherSummary, error) {
	series, err := s.WeatherForecast(ctx, lat, lon, pastDays, forecastDays)
	if err != nil {
		return nil, fmt.Errorf("weather summary: %w", err)
	}
	return normalize.Weather(series), nil
}

// weatherDisplay carries the human-readable mapping for a weather code.
type weatherDisplay struct {
	description string
	icon        string
	condition   string
}

// weatherCodeTable maps WMO weather codes to calendar display metadata.
var weatherCodeTable = map[int]weatherDisplay{
	0:  {"Clear sky", "sunny", "clear"},
	1:  {"Mainly clear", "sunny", "clear"},
	2:  {"Partly cloudy", "partly-cloudy", "partly_cloudy"},
	3:  {"Overcast", "cloudy", "overcast"},
	45: {"Foggy", "cloudy", "foggy"},
	48: {"Depositing rime fog", "cloudy", "foggy"},
	51: {"Light drizzle", "rainy", "light_rain"},
	53: {"Moderate drizzle", "rainy", "moderate_rain"},
	55: {"Dense drizzle", "rainy", "heavy_rain"},
	56: {"Light freezing drizzle", "rainy", "light_rain"},
	57: {"Dense freezing drizzle", "rainy", "heavy_rain"},
	61: {"Slight rain", "rainy", "light_rain"},
	63: {"Moderate rain", "rainy", "moderate_rain"},
	65: {"Heavy rain", "rainy", "heavy_rain"},
	66: {"Light freezing rain", "rainy", "light_rain"},
	67: {"Heavy freezing rain", "rainy", "heavy_rain"},
	71: {"Slight snow", "rainy", "light_snow"},
	73: {"Moderate snow", "rainy", "moderate_snow"},
	75: {"Heavy snow", "rainy", "heavy_snow"},
	77: {"Snow grains", "rainy", "light_snow"},
	80: {"Slight rain showers", "rainy", "light_rain"},
	81: {"Moderate rain showers", "rainy", "moderate_rain"},
	82: {"Violent rain showers", "rainy", "heavy_rain"},
	85: {"Slight snow showers", "rainy", "light_snow"},
	86: {"Heavy snow showers", "rainy", "heavy_snow"},
	95: {"Thunderstorm", "rainy", "thunderstorm"},
	96: {"Thunderstorm with slight hail", "rainy", "thunderstorm"},
	99: {"Thunderstorm with heavy hail", "rainy", "thunderstorm"},
}

var rainyCodes = map[int]bool{
	51: true, 53: true, 55: true, 56: true, 57: true,
	61: true, 63: true, 65: true, 66: true, 67: true,
	80: true, 81: true, 82: true,
	95: true, 96: true, 99: true,
}

// Calendar returns per-day weather with display metadata for up to the
// provider's forecast horizon.
func (s *Service) Calendar(ctx context.Context, lat, lon float64, days int) ([]models.DayWeather, error) {
	forecastDays := days
	if forecastDays > maxForecastDays {
		forecastDays = maxForecastDays
	}
	series, err := s.WeatherForecast(ctx, lat, lon, 0, forecastDays)
	if err != nil {
		return nil, fmt.Errorf("calendar weather: %w", err)
	}
	if len(series.Dates) == 0 {
		return nil, ErrNoWeatherData
	}

	out := make([]models.DayWeather, 0, len(series.Dates))
	for i, date := range series.Dates {
		code := 0
		if i < len(series.WeatherCode) && series.WeatherCode[i] != nil {
			code = *series.WeatherCode[i]
		}
		display, ok := weatherCodeTable[code]
		if !ok {
			display = weatherCodeTable[0]
		}
		day := models.DayWeather{
			Date:               date,
			WeatherCode:        code,
			WeatherDescription: display.description,
			WeatherIcon:        display.icon,
			WeatherCondition:   display.condition,
			IsRainy:            rainyCodes[code],
			IsCloudy:           code == 2 || code == 3 || code == 45 || code == 48,
			IsSunny:            code == 0 || code == 1,
		}
		if i < len(series.TemperatureMax) {
			day.TemperatureMax = series.TemperatureMax[i]
		}
		if i < len(series.TemperatureMin) {
			day.TemperatureMin = series.TemperatureMin[i]
		}
		if i < len(series.RainSum) {
			day.RainSum = series.RainSum[i]
		}
		out = append(out, day)
	}
	return out, nil
}
