package flows

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/agrisage/agrisage/backend/pkg/models"
)

// fmtNum renders a nullable numeric prompt field.
func fmtNum(v *float64) string {
	if v == nil {
		return "unknown"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// fmtStr renders a nullable categorical prompt field.
func fmtStr(v *string) string {
	if v == nil || *v == "" {
		return "unknown"
	}
	return *v
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// diagnosisPrompt asks for the strict nine-field insight object.
func diagnosisPrompt(result *models.DiagnosisResult) string {
	payload, _ := json.Marshal(result)
	var b strings.Builder
	b.WriteString("You are an expert agricultural advisor for smallholder farmers.\n")
	b.WriteString("You will receive crop health diagnosis results from different api's.\n")
	b.WriteString("Your job is to analyze the results and provide structured advice.\n\n")
	b.WriteString("IMPORTANT: You must respond with ONLY a valid JSON object, no additional text or explanations.\n\n")
	b.WriteString("Analyze the diagnosis results and provide a JSON response with this exact structure:\n")
	b.WriteString("{\n")
	b.WriteString("  \"identified_problems\": [\"list of specific problems detected\"],\n")
	b.WriteString("  \"symptoms_noticed\": [\"list of visible symptoms\"],\n")
	b.WriteString("  \"probable_causes\": [\"list of likely causes\"],\n")
	b.WriteString("  \"severity_level\": \"low/medium/high/critical\",\n")
	b.WriteString("  \"recommended_actions\": [\"list of specific actions to take\"],\n")
	b.WriteString("  \"prevention_tips\": [\"list of prevention measures\"],\n")
	b.WriteString("  \"crop_identified\": \"name of the crop\",\n")
	b.WriteString("  \"overall_health\": \"healthy/unhealthy\",\n")
	b.WriteString("  \"confidence_level\": \"high/medium/low\"\n")
	b.WriteString("}\n\n")
	b.WriteString("Guidelines:\n")
	b.WriteString("- Be specific and actionable\n")
	b.WriteString("- Use simple language for farmers\n")
	b.WriteString("- If the crop is healthy, focus on maintenance tips\n")
	b.WriteString("- If unhealthy, provide clear next steps\n")
	b.WriteString("- Don't mention technical probabilities or API sources\n")
	b.WriteString("- Make severity assessment based on disease probability and spread potential\n")
	b.WriteString("- Ensure all arrays have at least one item\n")
	b.WriteString("- Use proper JSON syntax with double quotes\n\n")
	fmt.Fprintf(&b, "Diagnosis Results (JSON):\n%s\n\n", payload)
	b.WriteString("CRITICAL: Return ONLY the JSON object, no markdown formatting, no code blocks, no explanations.")
	return b.String()
}

// soilSection renders the shared soil block of the recommendation prompts.
func soilSection(soil *models.SoilSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Soil type: %s\n", fmtStr(soil.SoilType))
	fmt.Fprintf(&b, "- Texture: %s\n", fmtStr(soil.TextureClass))
	fmt.Fprintf(&b, "- pH: %s\n", fmtNum(soil.PH))
	fmt.Fprintf(&b, "- Nitrogen: %s g/kg\n", fmtNum(soil.NitrogenTotal))
	fmt.Fprintf(&b, "- Phosphorous: %s ppm\n", fmtNum(soil.Phosphorous))
	fmt.Fprintf(&b, "- Potassium: %s ppm\n", fmtNum(soil.Potassium))
	fmt.Fprintf(&b, "- Cation Exchange Capacity: %s cmol(+)/kg\n", fmtNum(soil.CationExchange))
	fmt.Fprintf(&b, "- Organic Carbon: %s g/kg\n", fmtNum(soil.CarbonOrganic))
	return b.String()
}

// weatherSection renders the shared weather block of the recommendation
// prompts.
func weatherSection(weather *models.WeatherSummary, pastDays int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Weather (last %d days):\n", pastDays)
	fmt.Fprintf(&b, "- Average max temperature: %s°C\n", fmtNum(weather.AvgTemperatureMax))
	fmt.Fprintf(&b, "- Average min temperature: %s°C\n", fmtNum(weather.AvgTemperatureMin))
	fmt.Fprintf(&b, "- Total rainfall: %s mm\n", fmtNum(weather.TotalRainfallMM))
	fmt.Fprintf(&b, "- Average sunshine hours: %s\n", fmtNum(weather.AvgSunshineHours))
	fmt.Fprintf(&b, "- Average wind speed: %s kph\n", fmtNum(weather.AvgWindSpeedKPH))
	fmt.Fprintf(&b, "- Average evapotranspiration: %s\n", fmtNum(weather.AvgEvapotranspiration))
	return b.String()
}

func cropRecommendationPrompt(soil *models.SoilSummary, weather *models.WeatherSummary, pastDays int) string {
	var b strings.Builder
	b.WriteString("You are an expert agricultural advisor. Here is the soil and weather information for a farmer's field:\n")
	b.WriteString("Soil:\n")
	b.WriteString(soilSection(soil))
	b.WriteString("\n")
	b.WriteString(weatherSection(weather, pastDays))
	b.WriteString("\nBased on this information, recommend the 2-3 most suitable crops to plant now. ")
	b.WriteString("For each crop, explain why it is suitable, and give 1-2 practical tips for success. ")
	b.WriteString("Be specific, practical, and use simple language for a smallholder farmer.")
	return b.String()
}

func fertilizerPrompt(req FertilizerRequest, soil *models.SoilSummary, weather *models.WeatherSummary, notes []string, rotation, growth string) string {
	deficiencyText := "Nutrient data available."
	if len(notes) > 0 {
		deficiencyText = strings.Join(notes, "\n")
	}

	var b strings.Builder
	b.WriteString("You are a professional agronomist helping smallholder farmers apply the right fertilizer.\n")
	fmt.Fprintf(&b, "Crop to be grown: %s\n\n", req.TargetCrop)
	fmt.Fprintf(&b, "Previous crop: %s\n", orDefault(req.PreviousCrop, "Not provided"))
	fmt.Fprintf(&b, "Growth stage: %s\n", orDefault(req.GrowthStage, "Not provided"))
	fmt.Fprintf(&b, "Rotation note: %s\n", rotation)
	fmt.Fprintf(&b, "Growth stage note: %s\n\n", growth)
	b.WriteString(weatherSection(weather, req.PastDays))
	b.WriteString("\nTask:\n")
	b.WriteString("Recommend the best fertilizer plan for this field based on the soil and weather conditions, crop rotation, and growth stage.\n")
	b.WriteString("Mention the nutrient(s) that are lacking or need support.\n")
	b.WriteString("Suggest both organic and chemical options if possible.\n")
	b.WriteString("Give specific dosages per hectare, and explain when and how to apply.\n")
	b.WriteString("Use practical, farmer-friendly language. Keep it short and actionable.\n")
	b.WriteString("\nHere is the soil information for the field:\n")
	b.WriteString("Soil:\n")
	b.WriteString(soilSection(soil))
	fmt.Fprintf(&b, "\nDeficiency notes: %s\n", deficiencyText)
	return b.String()
}

// dailyTasksPrompt asks for a JSON array of task recommendations for one
// date, personalized to the farmer profile.
func dailyTasksPrompt(date string, lat, lon float64, day TargetDayWeather, profile FarmerProfile) string {
	cropsText := "Not specified"
	if len(profile.Crops) > 0 {
		cropsText = strings.Join(profile.Crops, ", ")
	}

	var b strings.Builder
	b.WriteString("You are an expert agricultural advisor. Generate personalized farming task recommendations for a farmer based on the following information:\n\n")
	fmt.Fprintf(&b, "**Date:** %s\n", date)
	fmt.Fprintf(&b, "**Location:** %v, %v\n", lat, lon)
	b.WriteString("**Weather Conditions:**\n")
	fmt.Fprintf(&b, "- Temperature: %s°C (max), %s°C (min)\n", fmtNum(day.TemperatureMax), fmtNum(day.TemperatureMin))
	fmt.Fprintf(&b, "- Rain: %s mm\n", fmtNum(day.RainSum))
	fmt.Fprintf(&b, "- Weather Code: %d\n\n", day.WeatherCode)
	b.WriteString("**Farmer Profile:**\n")
	fmt.Fprintf(&b, "- Crops: %s\n", cropsText)
	fmt.Fprintf(&b, "- Experience: %d years\n", profile.YearsExperience)
	fmt.Fprintf(&b, "- Type: %s\n", orDefault(profile.UserType, "farmer"))
	fmt.Fprintf(&b, "- Goal: %s\n\n", orDefault(profile.MainGoal, "general farming"))
	b.WriteString("Generate 3-5 specific, actionable farming tasks for this date. Consider:\n")
	b.WriteString("1. Weather conditions and their impact on farming activities\n")
	b.WriteString("2. The farmer's specific crops and experience level\n")
	b.WriteString("3. Seasonal timing and best practices\n")
	b.WriteString("4. Preventive measures based on weather forecasts\n\n")
	b.WriteString("Format your response as a JSON array with the following structure:\n")
	b.WriteString(`[
  {
    "task": "Task description",
    "time": "Recommended time (e.g., '8:00 AM')",
    "priority": "high/medium/low",
    "field": "Field name or 'All Fields'",
    "category": "irrigation/fertilization/pest-control/monitoring/harvesting/maintenance",
    "description": "Detailed explanation of why this task is recommended",
    "estimated_duration": "Estimated time (e.g., '2 hours')",
    "ai_reasoning": "AI's reasoning for this recommendation"
  }
]
`)
	b.WriteString("\nFocus on practical, actionable advice that a farmer can implement immediately.")
	return b.String()
}
