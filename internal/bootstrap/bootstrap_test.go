package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/farmsure/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		StorageDir:             filepath.Join(dir, "storage"),
		StoreDriver:            "sqlite",
		SQLitePath:             filepath.Join(dir, "claims.db"),
		WeatherProvider:        "open-meteo",
		UpstreamTimeoutSeconds: 1,
		BreakerEnabled:         true,
		EventsBackend:          "none",
	}
}

func TestNewWiresSQLiteApp(t *testing.T) {
	app, err := New(context.Background(), testConfig(t), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	handler := app.Handler()
	for _, path := range []string{"/api/health", "/api/ready", "/metrics"} {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
		if res.Code != http.StatusOK {
			t.Fatalf("%s expected 200, got %d", path, res.Code)
		}
	}
}

func TestNewRejectsUnknownDrivers(t *testing.T) {
	cases := map[string]func(*config.Config){
		"STORE_DRIVER":     func(c *config.Config) { c.StoreDriver = "mongo" },
		"EVENTS_BACKEND":   func(c *config.Config) { c.EventsBackend = "carrier-pigeon" },
		"WEATHER_PROVIDER": func(c *config.Config) { c.WeatherProvider = "almanac" },
	}
	for key, mutate := range cases {
		cfg := testConfig(t)
		mutate(&cfg)
		_, err := New(context.Background(), cfg, nil)
		if err == nil || !strings.Contains(err.Error(), key) {
			t.Fatalf("expected %s error, got %v", key, err)
		}
	}
}
