package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func ptrs(values ...float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		v := values[i]
		out[i] = &v
	}
	return out
}

func TestSummarizeWeatherEmptySeries(t *testing.T) {
	summary, err := SummarizeWeather("open-meteo", DailySeries{}, nil)
	if err != nil {
		t.Fatalf("SummarizeWeather() error = %v", err)
	}
	if summary.RainSumTotal != 0 {
		t.Fatalf("expected rain total 0, got %v", summary.RainSumTotal)
	}
	if summary.TMaxAvg != nil || summary.TMinAvg != nil {
		t.Fatalf("expected nil averages, got %v %v", summary.TMaxAvg, summary.TMinAvg)
	}
}

func TestSummarizeWeatherAverages(t *testing.T) {
	summary, err := SummarizeWeather("open-meteo", DailySeries{
		RainSum: ptrs(1.1, 2.2, 0.3),
		TempMax: ptrs(10, 20),
		TempMin: ptrs(1, 2, 2),
	}, json.RawMessage(`{"daily":{}}`))
	if err != nil {
		t.Fatalf("SummarizeWeather() error = %v", err)
	}
	if summary.RainSumTotal != 3.6 {
		t.Fatalf("expected rain total 3.6, got %v", summary.RainSumTotal)
	}
	if summary.TMaxAvg == nil || *summary.TMaxAvg != 15.0 {
		t.Fatalf("expected tmax avg 15.0, got %v", summary.TMaxAvg)
	}
	if summary.TMinAvg == nil || *summary.TMinAvg != 1.67 {
		t.Fatalf("expected tmin avg 1.67, got %v", summary.TMinAvg)
	}
	if summary.Provider != "open-meteo" {
		t.Fatalf("unexpected provider %q", summary.Provider)
	}
}

func TestSummarizeWeatherRejectsNullEntries(t *testing.T) {
	series := DailySeries{TempMax: []*float64{nil}}
	_, err := SummarizeWeather("open-meteo", series, nil)
	if !errors.Is(err, ErrMalformedSeries) {
		t.Fatalf("expected ErrMalformedSeries, got %v", err)
	}
}

func TestWeatherErrorMarshalsAsMarker(t *testing.T) {
	raw, err := json.Marshal(WeatherError(errors.New("boom")))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(raw) != `{"error":"boom"}` {
		t.Fatalf("unexpected marker json: %s", raw)
	}
}

func TestWeatherSummaryRoundTripKeepsNullAverages(t *testing.T) {
	raw, err := json.Marshal(WeatherSummary{Provider: "open-meteo"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(raw), `"tmax_avg":null`) {
		t.Fatalf("expected null tmax_avg, got %s", raw)
	}

	var decoded WeatherSummary
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Failed() {
		t.Fatalf("expected successful summary after decode")
	}
}
