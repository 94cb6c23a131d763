package flows_test

import (
	"context"
	"errors"
	"testing"

	"github.com/agrisage/agrisage/backend/internal/flows"
	"github.com/agrisage/agrisage/backend/pkg/models"
)

func taskWeather(rain, tmax float64) flows.TargetDayWeather {
	return flows.TargetDayWeather{Date: "2026-08-31", RainSum: &rain, TemperatureMax: &tmax}
}

func taskNames(tasks []models.TaskRecommendation) []string {
	names := make([]string, len(tasks))
	for i, task := range tasks {
		names[i] = task.Task
	}
	return names
}

// ─── Fallback generator matrix ───────────────────────────────

func TestFallbackTasksWeatherTriggers(t *testing.T) {
	tests := []struct {
		name  string
		day   flows.TargetDayWeather
		crops []string
		want  []string
	}{
		{
			name: "heavy rain triggers drainage check",
			day:  taskWeather(12, 22),
			want: []string{"Check drainage systems"},
		},
		{
			name: "rain at threshold does not trigger",
			day:  taskWeather(5, 22),
			want: []string{},
		},
		{
			name: "heat triggers irrigation",
			day:  taskWeather(0, 34),
			want: []string{"Increase irrigation"},
		},
		{
			name: "heat at threshold does not trigger",
			day:  taskWeather(0, 30),
			want: []string{},
		},
		{
			name: "rain and heat together",
			day:  taskWeather(8, 35),
			want: []string{"Check drainage systems", "Increase irrigation"},
		},
		{
			name:  "crop monitoring capped at two",
			day:   taskWeather(0, 20),
			crops: []string{"teff", "maize", "chickpea"},
			want:  []string{"Monitor teff health", "Monitor maize health"},
		},
		{
			name:  "nil samples trigger nothing",
			day:   flows.TargetDayWeather{Date: "2026-08-31"},
			crops: nil,
			want:  []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := taskNames(flows.FallbackTasks(tt.day, tt.crops))
			if len(got) != len(tt.want) {
				t.Fatalf("tasks = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("task[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// ─── Daily task flow ─────────────────────────────────────────

func forecastWeek() *fakeWeather {
	rain := 9.0
	tmax := 26.0
	return &fakeWeather{series: &models.WeatherSeries{
		Dates:          []string{"2026-08-31", "2026-09-01"},
		WeatherCode:    []*int{intp(61), intp(0)},
		TemperatureMax: []*float64{&tmax, &tmax},
		RainSum:        []*float64{&rain, nil},
	}}
}

func intp(v int) *int { return &v }

func TestDailyTasksUsesModelOutput(t *testing.T) {
	llm := &fakeLLM{text: `[{"task":"Weed the teff plot","priority":"medium","category":"maintenance"}]`}
	svc := flows.NewService(flows.WithWeather(forecastWeek()), flows.WithLLM(llm))

	plan, err := svc.DailyTasks(context.Background(), 9.0, 38.0, "2026-08-31", flows.FarmerProfile{Crops: []string{"teff"}})
	if err != nil {
		t.Fatalf("DailyTasks() error = %v", err)
	}
	if !plan.AIGenerated {
		t.Error("plan should be marked ai_generated")
	}
	if len(plan.Tasks) != 1 || plan.Tasks[0].Task != "Weed the teff plot" {
		t.Errorf("tasks = %+v", plan.Tasks)
	}
	if plan.Weather.WeatherCode != 61 || plan.Weather.RainSum == nil {
		t.Errorf("weather context = %+v, want the requested day's samples", plan.Weather)
	}
}

func TestDailyTasksFallsBackWhenModelRamblings(t *testing.T) {
	llm := &fakeLLM{text: "I cannot produce JSON today, sorry."}
	svc := flows.NewService(flows.WithWeather(forecastWeek()), flows.WithLLM(llm))

	plan, err := svc.DailyTasks(context.Background(), 9.0, 38.0, "2026-08-31", flows.FarmerProfile{Crops: []string{"teff"}})
	if err != nil {
		t.Fatalf("DailyTasks() error = %v", err)
	}
	if plan.AIGenerated {
		t.Error("fallback plan must not be marked ai_generated")
	}
	// 9mm rain on the target day plus one crop monitor task.
	names := taskNames(plan.Tasks)
	if len(names) != 2 || names[0] != "Check drainage systems" || names[1] != "Monitor teff health" {
		t.Errorf("fallback tasks = %v", names)
	}
}

func TestDailyTasksDateOutsideForecast(t *testing.T) {
	svc := flows.NewService(flows.WithWeather(forecastWeek()), flows.WithLLM(&fakeLLM{text: "[]"}))

	_, err := svc.DailyTasks(context.Background(), 9.0, 38.0, "2027-01-01", flows.FarmerProfile{})
	if !errors.Is(err, flows.ErrDateOutOfRange) {
		t.Errorf("err = %v, want ErrDateOutOfRange", err)
	}
}

// ─── Calendar ────────────────────────────────────────────────

func TestCalendarMapsWeatherCodes(t *testing.T) {
	svc := flows.NewService(flows.WithWeather(forecastWeek()))

	days, err := svc.Calendar(context.Background(), 9.0, 38.0, 31)
	if err != nil {
		t.Fatalf("Calendar() error = %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("got %d days, want 2", len(days))
	}
	rainy := days[0]
	if rainy.WeatherDescription != "Slight rain" || !rainy.IsRainy || rainy.IsSunny {
		t.Errorf("code 61 day = %+v, want rainy display", rainy)
	}
	clear := days[1]
	if clear.WeatherDescription != "Clear sky" || !clear.IsSunny || clear.IsRainy {
		t.Errorf("code 0 day = %+v, want sunny display", clear)
	}
}

func TestCalendarEmptySeries(t *testing.T) {
	svc := flows.NewService(flows.WithWeather(&fakeWeather{series: &models.WeatherSeries{}}))
	if _, err := svc.Calendar(context.Background(), 9.0, 38.0, 7); !errors.Is(err, flows.ErrNoWeatherData) {
		t.Errorf("err = %v, want ErrNoWeatherData", err)
	}
}
