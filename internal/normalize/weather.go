package normalize

import (
	"math"

	"github.com/agrisage/agrisage/backend/pkg/models"
)

// SafeMean averages the non-nil samples, rounded to two decimals. Returns
// nil when no sample is usable.
func SafeMean(values []*float64) *float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return round2(sum / float64(n))
}

// SafeSum totals the non-nil samples, rounded to two decimals. Returns nil
// when no sample is usable.
func SafeSum(values []*float64) *float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return round2(sum)
}

// SafeMin returns the smallest non-nil sample, rounded to two decimals, or
// nil when no sample is usable.
func SafeMin(values []*float64) *float64 {
	var min *float64
	for _, v := range values {
		if v != nil && (min == nil || *v < *min) {
			min = v
		}
	}
	if min == nil {
		return nil
	}
	return round2(*min)
}

// SafeMax returns the largest non-nil sample, rounded to two decimals, or
// nil when no sample is usable.
func SafeMax(values []*float64) *float64 {
	var max *float64
	for _, v := range values {
		if v != nil && (max == nil || *v > *max) {
			max = v
		}
	}
	if max == nil {
		return nil
	}
	return round2(*max)
}

func round2(v float64) *float64 {
	r := math.Round(v*100) / 100
	return &r
}

// Weather aggregates a daily series for prompt building. All aggregates skip
// nil samples and stay nil on an empty or all-nil series. Sunshine is
// averaged in seconds first, then converted to hours.
func Weather(series *models.WeatherSeries) *models.WeatherSummary {
	s := &models.WeatherSummary{}
	if series == nil {
		return s
	}
	if len(series.Dates) > 0 {
		start, end := series.Dates[0], series.Dates[len(series.Dates)-1]
		s.PeriodStart = &start
		s.PeriodEnd = &end
	}
	s.AvgTemperatureMax = SafeMean(series.TemperatureMax)
	s.AvgTemperatureMin = SafeMean(series.TemperatureMin)
	s.MinTemperature = SafeMin(series.TemperatureMin)
	s.MaxTemperature = SafeMax(series.TemperatureMax)
	s.TotalRainfallMM = SafeSum(series.RainSum)
	if m := SafeMean(series.SunshineDuration); m != nil {
		s.AvgSunshineHours = round2(*m / 3600)
	}
	s.AvgWindSpeedKPH = SafeMean(series.WindSpeedMax)
	s.AvgEvapotranspiration = SafeMean(series.Evapotranspiration)
	return s
}
