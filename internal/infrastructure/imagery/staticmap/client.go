package staticmap

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/image/draw"

	"github.com/kirillkom/farmsure/internal/core/domain"
	"github.com/kirillkom/farmsure/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "https://maps.googleapis.com/maps/api/staticmap"
	DefaultZoom    = 20
	DefaultSize    = "640x400"

	maxImageBytes = 16 << 20
)

var placeholderColor = color.RGBA{R: 230, G: 230, B: 230, A: 255}

// Client implements ports.ImageryProvider with the Google Static Maps API.
// Without an API key it returns a flat grey placeholder of the requested size.
type Client struct {
	apiKey     string
	baseURL    string
	zoom       int
	size       string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	APIKey   string
	BaseURL  string
	Zoom     int
	Size     string
	Timeout  time.Duration
	Executor *resilience.Executor
}

func New(options Options) *Client {
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	zoom := options.Zoom
	if zoom <= 0 {
		zoom = DefaultZoom
	}
	size := options.Size
	if _, _, err := parseSize(size); err != nil {
		size = DefaultSize
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		apiKey:     strings.TrimSpace(options.APIKey),
		baseURL:    baseURL,
		zoom:       zoom,
		size:       size,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.Executor,
	}
}

// PlaceholderMode reports whether Fetch returns generated images.
func (c *Client) PlaceholderMode() bool {
	return c.apiKey == ""
}

func (c *Client) Fetch(ctx context.Context, loc domain.Location) ([]byte, error) {
	if c.PlaceholderMode() {
		w, h, _ := parseSize(c.size)
		return Placeholder(w, h)
	}

	params := url.Values{
		"center":  {fmt.Sprintf("%s,%s", formatCoord(loc.Lat), formatCoord(loc.Lon))},
		"zoom":    {strconv.Itoa(c.zoom)},
		"size":    {c.size},
		"maptype": {"satellite"},
		"key":     {c.apiKey},
	}
	fullURL := c.baseURL + "?" + params.Encode()

	var body []byte
	call := func(ctx context.Context) error {
		var err error
		body, err = c.doRequest(ctx, fullURL)
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "staticmap.fetch", call, resilience.RecordAll)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrUpstream, "static map", err)
	}
	return body, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The request URL carries the API key; keep it out of logs and responses.
		return nil, fmt.Errorf("static map request failed: %w", redact(err, c.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("static map API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("static map API returned an empty image")
	}
	return body, nil
}

// Placeholder renders a flat grey PNG of w x h pixels.
func Placeholder(w, h int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: placeholderColor}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

func parseSize(size string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(size)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q", size)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q", size)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q", size)
	}
	return width, height, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func redact(err error, secret string) error {
	if secret == "" {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), secret, "REDACTED"))
}
