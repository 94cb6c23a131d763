package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agrisage/agrisage/backend/internal/flows"
	"github.com/agrisage/agrisage/backend/pkg/models"
)

// Forecast handles GET /api/weather/forecast: the raw daily series.
func (h *Handlers) Forecast(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := requireCoordinates(w, r)
	if !ok {
		return
	}
	pastDays := queryInt(r, "past_days", 7)
	forecastDays := queryInt(r, "forecast_days", 7)

	series, err := h.Flows.WeatherForecast(r.Context(), lat, lon, pastDays, forecastDays)
	if err != nil {
		respondFlowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, series)
}

type calendarResponse struct {
	Status        string              `json:"status"`
	DailyWeather  []models.DayWeather `json:"daily_weather"`
	Location      geoPoint            `json:"location"`
	DaysRequested int                 `json:"days_requested"`
}

type geoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Calendar handles GET /api/weather/calendar: per-day display weather for
// the calendar view, cached per user, location, and day count.
func (h *Handlers) Calendar(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := requireCoordinates(w, r)
	if !ok {
		return
	}
	days := queryInt(r, "days", 31)
	if days < 1 || days > 90 {
		respondError(w, http.StatusBadRequest, "days must be between 1 and 90")
		return
	}

	user, err := h.currentUser(r)
	if err != nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	key := models.CacheKey{
		UserID:        user.ID,
		Lat:           lat,
		Lon:           lon,
		Discriminator: strconv.Itoa(days),
	}
	if cached, ok := h.Cache.GetWeather(r.Context(), key); ok {
		respondRaw(w, http.StatusOK, cached)
		return
	}

	daily, err := h.Flows.Calendar(r.Context(), lat, lon, days)
	if err != nil {
		respondFlowError(w, err)
		return
	}

	resp := calendarResponse{
		Status:        "success",
		DailyWeather:  daily,
		Location:      geoPoint{Lat: lat, Lon: lon},
		DaysRequested: days,
	}
	if payload, err := json.Marshal(resp); err == nil {
		h.Cache.PutWeather(r.Context(), key, payload)
	}
	respondJSON(w, http.StatusOK, resp)
}

type aiTasksResponse struct {
	Status      string                      `json:"status"`
	Date        string                      `json:"date"`
	Weather     flows.TargetDayWeather      `json:"weather"`
	Tasks       []models.TaskRecommendation `json:"tasks"`
	AIGenerated bool                        `json:"ai_generated"`
	Cached      bool                        `json:"cached,omitempty"`
}

// AITasks handles GET /api/weather/ai-tasks: personalized task
// recommendations for one date, cached per user, location, and date.
func (h *Handlers) AITasks(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := requireCoordinates(w, r)
	if !ok {
		return
	}
	date := r.URL.Query().Get("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		respondError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
		return
	}

	user, err := h.currentUser(r)
	if err != nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	key := models.CacheKey{UserID: user.ID, Lat: lat, Lon: lon, Discriminator: date}
	if cached, ok := h.Cache.GetTasks(r.Context(), key); ok {
		var plan flows.TaskPlan
		if err := json.Unmarshal(cached, &plan); err == nil {
			log.Debug().Str("user_id", user.ID).Str("date", date).Msg("serving cached task plan")
			respondJSON(w, http.StatusOK, taskPlanResponse(&plan, true))
			return
		}
	}

	plan, err := h.Flows.DailyTasks(r.Context(), lat, lon, date, farmerProfile(user))
	if err != nil {
		respondFlowError(w, err)
		return
	}
	if payload, err := json.Marshal(plan); err == nil {
		h.Cache.PutTasks(r.Context(), key, payload)
	}
	respondJSON(w, http.StatusOK, taskPlanResponse(plan, false))
}

func taskPlanResponse(plan *flows.TaskPlan, cached bool) aiTasksResponse {
	return aiTasksResponse{
		Status:      "success",
		Date:        plan.Date,
		Weather:     plan.Weather,
		Tasks:       plan.Tasks,
		AIGenerated: plan.AIGenerated,
		Cached:      cached,
	}
}

// farmerProfile compresses a user record into the profile the task flow
// prompts with. Crop entries may carry status suffixes ("maize:current")
// from the onboarding flow; only the crop name is kept.
func farmerProfile(user *models.User) flows.FarmerProfile {
	var crops []string
	for _, crop := range user.CropsGrown {
		crop = strings.TrimSpace(crop)
		if i := strings.IndexByte(crop, ':'); i >= 0 {
			crop = crop[:i]
		}
		if crop != "" {
			crops = append(crops, crop)
		}
	}

	userType := user.UserType
	if userType == "" {
		userType = "farmer"
	}
	goal := user.MainGoal
	if goal == "" {
		goal = "general farming"
	}
	return flows.FarmerProfile{
		Crops:           crops,
		YearsExperience: user.YearsExperience,
		UserType:        userType,
		MainGoal:        goal,
	}
}
