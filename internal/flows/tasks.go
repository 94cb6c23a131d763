package flows

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/agrisage/agrisage/backend/internal/extract"
	"github.com/agrisage/agrisage/backend/internal/providers"
	"github.com/agrisage/agrisage/backend/pkg/models"
)

// TargetDayWeather is the weather snapshot for the date a task plan covers.
type TargetDayWeather struct {
	Date           string   `json:"date"`
	WeatherCode    int      `json:"weather_code"`
	TemperatureMax *float64 `json:"temperature_max"`
	TemperatureMin *float64 `json:"temperature_min"`
	RainSum        *float64 `json:"rain_sum"`
}

// FarmerProfile is the user context fed into task personalization.
type FarmerProfile struct {
	Crops           []string
	YearsExperience int
	UserType        string
	MainGoal        string
}

// TaskPlan is the daily task recommendation flow result.
type TaskPlan struct {
	Date        string                      `json:"date"`
	Weather     TargetDayWeather            `json:"weather"`
	Tasks       []models.TaskRecommendation `json:"tasks"`
	AIGenerated bool                        `json:"ai_generated"`
}

// DailyTasks builds the task plan for one forecast date. The model's list
// output is extracted strictly; on any model or extraction failure the plan
// degrades to the deterministic fallback generator instead of failing.
func (s *Service) DailyTasks(ctx context.Context, lat, lon float64, date string, profile FarmerProfile) (*TaskPlan, error) {
	series, err := s.WeatherForecast(ctx, lat, lon, 0, maxForecastDays)
	if err != nil {
		return nil, fmt.Errorf("daily tasks: %w", err)
	}

	day, ok := findDay(series, date)
	if !ok {
		return nil, fmt.Errorf("daily tasks: %w: %s", ErrDateOutOfRange, date)
	}

	plan := &TaskPlan{Date: date, Weather: day}

	if s.llm != nil {
		text, err := s.llm.Complete(ctx, dailyTasksPrompt(date, lat, lon, day, profile), providers.LLMOptions{})
		if err == nil {
			if tasks, err := extract.Tasks(text); err == nil {
				plan.Tasks = tasks
				plan.AIGenerated = true
				return plan, nil
			}
			log.Warn().Str("date", date).Msg("task list extraction failed, using fallback tasks")
		} else {
			log.Warn().Err(err).Str("date", date).Msg("task generation failed, using fallback tasks")
		}
	}

	plan.Tasks = FallbackTasks(day, profile.Crops)
	plan.AIGenerated = false
	return plan, nil
}

func findDay(series *models.WeatherSeries, date string) (TargetDayWeather, bool) {
	for i, d := range series.Dates {
		if d != date {
			continue
		}
		day := TargetDayWeather{Date: d}
		if i < len(series.WeatherCode) && series.WeatherCode[i] != nil {
			day.WeatherCode = *series.WeatherCode[i]
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
		return day, true
	}
	return TargetDayWeather{}, false
}

// Fallback trigger thresholds.
const (
	fallbackRainThresholdMM = 5.0
	fallbackHeatThresholdC  = 30.0
	fallbackMaxCropTasks    = 2
)

// FallbackTasks generates a deterministic task list when the model cannot:
// a drainage check when meaningful rain is expected, extra irrigation on hot
// days, and routine monitoring for up to two of the farmer's crops.
func FallbackTasks(day TargetDayWeather, crops []string) []models.TaskRecommendation {
	tasks := []models.TaskRecommendation{}

	if day.RainSum != nil && *day.RainSum > fallbackRainThresholdMM {
		tasks = append(tasks, models.TaskRecommendation{
			Task:              "Check drainage systems",
			Time:              "8:00 AM",
			Priority:          "high",
			Field:             "All Fields",
			Category:          "maintenance",
			Description:       "Heavy rain expected - ensure proper drainage",
			EstimatedDuration: "1 hour",
			Reasoning:         "Rain expected - prevent waterlogging",
		})
	}

	if day.TemperatureMax != nil && *day.TemperatureMax > fallbackHeatThresholdC {
		tasks = append(tasks, models.TaskRecommendation{
			Task:              "Increase irrigation",
			Time:              "6:00 AM",
			Priority:          "high",
			Field:             "All Fields",
			Category:          "irrigation",
			Description:       "High temperature - crops need more water",
			EstimatedDuration: "2 hours",
			Reasoning:         "High temperature increases water demand",
		})
	}

	for i, crop := range crops {
		if i >= fallbackMaxCropTasks {
			break
		}
		tasks = append(tasks, models.TaskRecommendation{
			Task:              fmt.Sprintf("Monitor %s health", crop),
			Time:              "4:00 PM",
			Priority:          "medium",
			Field:             "Field A",
			Category:          "monitoring",
			Description:       fmt.Sprintf("Regular health check for %s", crop),
			EstimatedDuration: "30 minutes",
			Reasoning:         fmt.Sprintf("Regular monitoring for %s is essential", crop),
		})
	}

	return tasks
}
