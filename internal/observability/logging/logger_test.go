package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWritesEventAndService(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "farmsure-api", "warn")

	logger.Info("claim_submitted", "claim_id", "abc")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level, got %s", buf.String())
	}

	logger.Warn("weather_fetch_failed", "claim_id", "abc")
	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log record: %v", err)
	}
	if record["event"] != "weather_fetch_failed" || record["service"] != "farmsure-api" || record["claim_id"] != "abc" {
		t.Fatalf("unexpected record %v", record)
	}
}
