package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kirillkom/farmsure/internal/core/domain"
	"github.com/kirillkom/farmsure/internal/infrastructure/resilience"
)

const (
	ProviderName   = "open-meteo"
	DefaultBaseURL = "https://archive-api.open-meteo.com/v1/archive"

	dailyFields = "rain_sum,temperature_2m_max,temperature_2m_min"
)

// Client implements ports.WeatherProvider using the Open-Meteo archive API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
	logger     *slog.Logger
}

type Options struct {
	BaseURL  string
	Timeout  time.Duration
	Executor *resilience.Executor
	Logger   *slog.Logger
}

func New(options Options) *Client {
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.Executor,
		logger:     logger,
	}
}

func (c *Client) Name() string { return ProviderName }

// Daily fetches the daily series for [from, to] and returns it with the raw payload.
func (c *Client) Daily(ctx context.Context, loc domain.Location, from, to string) (domain.DailySeries, []byte, error) {
	params := url.Values{
		"latitude":   {strconv.FormatFloat(loc.Lat, 'f', -1, 64)},
		"longitude":  {strconv.FormatFloat(loc.Lon, 'f', -1, 64)},
		"start_date": {from},
		"end_date":   {to},
		"daily":      {dailyFields},
		"timezone":   {"UTC"},
	}
	fullURL := c.baseURL + "?" + params.Encode()

	var (
		series domain.DailySeries
		raw    []byte
	)
	call := func(ctx context.Context) error {
		var err error
		series, raw, err = c.doRequest(ctx, fullURL)
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "open-meteo.archive", call, resilience.RecordAll)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.DailySeries{}, nil, domain.WrapError(domain.ErrUpstream, "open-meteo archive", err)
	}
	c.logger.Debug("weather_fetched", "provider", ProviderName, "days", len(series.RainSum))
	return series, raw, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.DailySeries, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.DailySeries{}, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.DailySeries{}, nil, fmt.Errorf("archive request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.DailySeries{}, nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.DailySeries{}, nil, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, truncate(body, 512))
	}

	var payload response
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.DailySeries{}, nil, fmt.Errorf("decode response: %w", err)
	}
	return payload.Daily, body, nil
}

func truncate(body []byte, limit int) string {
	if len(body) > limit {
		return string(body[:limit])
	}
	return string(body)
}

// Open-Meteo API response types.

type response struct {
	Latitude  float64            `json:"latitude"`
	Longitude float64            `json:"longitude"`
	Daily     domain.DailySeries `json:"daily"`
}
