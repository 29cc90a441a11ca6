package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var ErrMalformedSeries = errors.New("malformed weather series")

// DailySeries holds parallel daily observations. Lengths may differ and any of
// them may be empty; a nil entry marks a day the provider could not fill.
type DailySeries struct {
	RainSum []*float64 `json:"rain_sum"`
	TempMax []*float64 `json:"temperature_2m_max"`
	TempMin []*float64 `json:"temperature_2m_min"`
}

// WeatherSummary is either a set of aggregates or an error marker.
type WeatherSummary struct {
	Provider     string          `json:"provider,omitempty"`
	RainSumTotal float64         `json:"rain_sum_total"`
	TMaxAvg      *float64        `json:"tmax_avg"`
	TMinAvg      *float64        `json:"tmin_avg"`
	Raw          json.RawMessage `json:"raw,omitempty"`
	Error        string          `json:"error,omitempty"`
}

type weatherSummaryJSON WeatherSummary

// WeatherError builds the error marker recorded when weather data is unavailable.
func WeatherError(err error) *WeatherSummary {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &WeatherSummary{Error: msg}
}

func (s *WeatherSummary) Failed() bool {
	return s == nil || s.Error != ""
}

func (s WeatherSummary) MarshalJSON() ([]byte, error) {
	if s.Error != "" {
		return json.Marshal(map[string]string{"error": s.Error})
	}
	return json.Marshal(weatherSummaryJSON(s))
}

func (s *WeatherSummary) UnmarshalJSON(data []byte) error {
	var out weatherSummaryJSON
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*s = WeatherSummary(out)
	return nil
}

// SummarizeWeather reduces a daily series into totals and averages.
func SummarizeWeather(provider string, series DailySeries, raw json.RawMessage) (WeatherSummary, error) {
	rain, err := values("rain_sum", series.RainSum)
	if err != nil {
		return WeatherSummary{}, err
	}
	tmax, err := values("temperature_2m_max", series.TempMax)
	if err != nil {
		return WeatherSummary{}, err
	}
	tmin, err := values("temperature_2m_min", series.TempMin)
	if err != nil {
		return WeatherSummary{}, err
	}

	return WeatherSummary{
		Provider:     provider,
		RainSumTotal: round2(sum(rain)),
		TMaxAvg:      mean(tmax),
		TMinAvg:      mean(tmin),
		Raw:          raw,
	}, nil
}

func values(name string, in []*float64) ([]float64, error) {
	out := make([]float64, 0, len(in))
	for i, v := range in {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			return nil, fmt.Errorf("%w: %s[%d] is not a number", ErrMalformedSeries, name, i)
		}
		out = append(out, *v)
	}
	return out, nil
}

func sum(in []float64) float64 {
	total := 0.0
	for _, v := range in {
		total += v
	}
	return total
}

func mean(in []float64) *float64 {
	if len(in) == 0 {
		return nil
	}
	avg := round2(sum(in) / float64(len(in)))
	return &avg
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
