// Package models defines the shared domain types for the AgriSage backend:
// diagnosis results, soil and weather summaries, structured insights, chat
// sessions, users, and cache entries.
package models

import "time"

// ── Crop health diagnosis ────────────────────────────────────

// SimilarImage is a reference photo attached to a disease or crop suggestion.
type SimilarImage struct {
	URL      string `json:"url"`
	Citation string `json:"citation,omitempty"`
}

// Suggestion is one disease or crop identification candidate.
type Suggestion struct {
	Name           string         `json:"name"`
	Probability    float64        `json:"probability"`
	ScientificName string         `json:"scientific_name,omitempty"`
	SimilarImages  []SimilarImage `json:"similar_images,omitempty"`
}

// HealthScreen is the supplementary binary healthy/not-healthy probability
// pair returned by the health screening provider.
type HealthScreen struct {
	Healthy    float64 `json:"healthy"`
	NotHealthy float64 `json:"not_healthy"`
}

// LeafDiagnosis is a single diagnosis from the leaf analysis provider.
type LeafDiagnosis struct {
	CommonName          string   `json:"common_name,omitempty"`
	ScientificName      string   `json:"scientific_name,omitempty"`
	DiagnosisLikelihood string   `json:"diagnosis_likelihood,omitempty"`
	PathogenClass       string   `json:"pathogen_class,omitempty"`
	SymptomsShort       []string `json:"symptoms_short,omitempty"`
	PreventiveMeasures  []string `json:"preventive_measures,omitempty"`
	TreatmentChemical   string   `json:"treatment_chemical,omitempty"`
	TreatmentOrganic    string   `json:"treatment_organic,omitempty"`
	Trigger             string   `json:"trigger,omitempty"`
}

// LeafAnalysis is the normalized payload from the leaf analysis provider.
type LeafAnalysis struct {
	Crops             []string        `json:"crops,omitempty"`
	DiagnosesDetected bool            `json:"diagnoses_detected"`
	Diagnoses         []LeafDiagnosis `json:"diagnoses,omitempty"`
}

// DiagnosisResult is the merged, normalized output of the diagnosis fan-out.
// It is usable iff at least one of the two rich diagnostic providers
// succeeded; providers that failed are listed in SourceFailures.
type DiagnosisResult struct {
	IsPlant        bool          `json:"is_plant"`
	Diseases       []Suggestion  `json:"diseases"`
	Crops          []Suggestion  `json:"crops"`
	HealthScreen   *HealthScreen `json:"health_screen,omitempty"`
	LeafAnalysis   *LeafAnalysis `json:"leaf_analysis,omitempty"`
	SourceFailures []string      `json:"source_failures,omitempty"`
}

// ── Structured insight ───────────────────────────────────────

// Severity levels accepted in a StructuredInsight.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Overall health values accepted in a StructuredInsight.
const (
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
)

// StructuredInsight is the strict schema the LLM must produce for a
// diagnosis. All nine fields are required; an incomplete object is rejected
// and the caller falls back to the unstructured text.
type StructuredInsight struct {
	IdentifiedProblems []string `json:"identified_problems"`
	SymptomsNoticed    []string `json:"symptoms_noticed"`
	ProbableCauses     []string `json:"probable_causes"`
	SeverityLevel      string   `json:"severity_level"`
	RecommendedActions []string `json:"recommended_actions"`
	PreventionTips     []string `json:"prevention_tips"`
	CropIdentified     string   `json:"crop_identified"`
	OverallHealth      string   `json:"overall_health"`
	ConfidenceLevel    string   `json:"confidence_level"`
}

// DiagnosisOutcome pairs the raw normalized results with either a structured
// insight (preferred) or the LLM's unstructured text (fallback).
type DiagnosisOutcome struct {
	Structured *StructuredInsight `json:"structured_insight,omitempty"`
	Insight    string             `json:"insight,omitempty"`
	RawResults *DiagnosisResult   `json:"raw_results"`
}

// ── Soil ─────────────────────────────────────────────────────

// SoilSummary is the flat, provider-agnostic soil description. Missing
// values are explicit nils — a nil must never be read as "nutrient absent".
type SoilSummary struct {
	SoilType       *string  `json:"soil_type"`
	TextureClass   *string  `json:"texture_class"`
	PH             *float64 `json:"ph"`
	NitrogenTotal  *float64 `json:"nitrogen_total_g_per_kg"`
	Phosphorous    *float64 `json:"phosphorous_extractable_ppm"`
	Potassium      *float64 `json:"potassium_extractable_ppm"`
	Magnesium      *float64 `json:"magnesium_extractable_ppm"`
	Calcium        *float64 `json:"calcium_extractable_ppm"`
	Iron           *float64 `json:"iron_extractable_ppm"`
	Zinc           *float64 `json:"zinc_extractable_ppm"`
	Sulphur        *float64 `json:"sulphur_extractable_ppm"`
	CarbonTotal    *float64 `json:"carbon_total_g_per_kg"`
	CarbonOrganic  *float64 `json:"carbon_organic_g_per_kg"`
	BulkDensity    *float64 `json:"bulk_density_g_per_cm3"`
	StoneContent   *float64 `json:"stone_content_percent"`
	SiltContent    *float64 `json:"silt_content_percent"`
	ClayContent    *float64 `json:"clay_content_percent"`
	SandContent    *float64 `json:"sand_content_percent"`
	CationExchange *float64 `json:"cation_exchange_capacity_cmol_per_kg"`
	Aluminium      *float64 `json:"aluminium_extractable_ppm"`
}

// ── Weather ──────────────────────────────────────────────────

// WeatherSeries holds daily weather arrays for a past/future day window.
// Individual samples may be nil when the provider has no reading.
type WeatherSeries struct {
	Dates              []string   `json:"date"`
	WeatherCode        []*int     `json:"weather_code"`
	TemperatureMax     []*float64 `json:"temperature_2m_max"`
	TemperatureMin     []*float64 `json:"temperature_2m_min"`
	SunshineDuration   []*float64 `json:"sunshine_duration"`
	RainSum            []*float64 `json:"rain_sum"`
	WindSpeedMax       []*float64 `json:"wind_speed_10m_max"`
	Evapotranspiration []*float64 `json:"et0_fao_evapotranspiration"`
}

// WeatherSummary aggregates a WeatherSeries for prompt building. Any
// aggregate computed from an empty or all-nil series is nil, never zero.
type WeatherSummary struct {
	PeriodStart           *string  `json:"period_start"`
	PeriodEnd             *string  `json:"period_end"`
	AvgTemperatureMax     *float64 `json:"avg_temperature_max"`
	AvgTemperatureMin     *float64 `json:"avg_temperature_min"`
	MinTemperature        *float64 `json:"min_temperature"`
	MaxTemperature        *float64 `json:"max_temperature"`
	TotalRainfallMM       *float64 `json:"total_rainfall_mm"`
	AvgSunshineHours      *float64 `json:"avg_sunshine_hours"`
	AvgWindSpeedKPH       *float64 `json:"avg_wind_speed_kph"`
	AvgEvapotranspiration *float64 `json:"avg_evapotranspiration"`
}

// DayWeather is one calendar day with display metadata attached.
type DayWeather struct {
	Date               string   `json:"date"`
	WeatherCode        int      `json:"weather_code"`
	WeatherDescription string   `json:"weather_description"`
	WeatherIcon        string   `json:"weather_icon"`
	WeatherCondition   string   `json:"weather_condition"`
	TemperatureMax     *float64 `json:"temperature_max"`
	TemperatureMin     *float64 `json:"temperature_min"`
	RainSum            *float64 `json:"rain_sum"`
	IsRainy            bool     `json:"is_rainy"`
	IsCloudy           bool     `json:"is_cloudy"`
	IsSunny            bool     `json:"is_sunny"`
}

// ── Task recommendations ─────────────────────────────────────

// TaskRecommendation is one actionable farming task for a given date.
type TaskRecommendation struct {
	Task              string `json:"task"`
	Time              string `json:"time"`
	Priority          string `json:"priority"`
	Field             string `json:"field"`
	Category          string `json:"category"`
	Description       string `json:"description"`
	EstimatedDuration string `json:"estimated_duration"`
	Reasoning         string `json:"ai_reasoning"`
}

// ── Chat ─────────────────────────────────────────────────────

// Message senders.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// ChatMessage is one entry in a session's append-only message log.
type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatSession scopes an ordered conversation history to one user.
type ChatSession struct {
	ID        string    `json:"session_id"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ── Users ────────────────────────────────────────────────────

// User is a registered farmer profile.
type User struct {
	ID                string    `json:"user_id"`
	Name              string    `json:"name,omitempty"`
	Email             string    `json:"email"`
	Location          string    `json:"location,omitempty"`
	PreferredLanguage string    `json:"preferred_language,omitempty"`
	CropsGrown        []string  `json:"crops_grown,omitempty"`
	UserType          string    `json:"user_type,omitempty"` // aspiring, beginner, experienced, explorer
	YearsExperience   int       `json:"years_experience,omitempty"`
	MainGoal          string    `json:"main_goal,omitempty"`
	PasswordHash      string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ── Cache ────────────────────────────────────────────────────

// CacheKey identifies one derived artifact. Discriminator distinguishes
// entry families sharing coordinates: the calendar day count for weather
// entries, the target date for AI task entries.
type CacheKey struct {
	UserID        string
	Lat           float64
	Lon           float64
	Discriminator string
}

// CacheEntry is a stored derived artifact. At most one live entry exists per
// key; a read is valid only while now < ExpiresAt.
type CacheEntry struct {
	ID            string
	UserID        string
	Lat           float64
	Lon           float64
	Discriminator string
	Payload       []byte
	CreatedAt     time.Time
	ExpiresAt     time.Time
}
