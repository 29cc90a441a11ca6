package pdfreport

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kirillkom/farmsure/internal/core/domain"
	"github.com/kirillkom/farmsure/internal/core/ports"
)

const (
	Title      = "Crop Damage Claim Report"
	Disclaimer = "This is a digitally generated document by FarmSure System."

	SatelliteUnavailable = "Satellite image unavailable."
	NoEvidence           = "No evidence images supplied."
)

// Layout in points, measured from the top-left corner.
const (
	marginLeft    = 40.0
	labelX        = 50.0
	valueX        = 170.0
	rowHeight     = 14.0
	topMargin     = 60.0
	bottomMargin  = 70.0
	sectionHeight = 22.0
	footerOffset  = 40.0

	imageBoxW    = 520.0
	imageBoxH    = 250.0
	satelliteW   = 640
	satelliteH   = 400
	thumbSize    = 150.0
	thumbSpacing = 20.0
	rowSpacing   = 30.0
	thumbPixels  = 300

	maxImageBytes = 32 << 20
)

type Renderer struct {
	storage   ports.ObjectStorage
	clock     clockwork.Clock
	newCanvas CanvasFactory
	logger    *slog.Logger
}

type Option func(*Renderer)

func WithClock(clock clockwork.Clock) Option {
	return func(r *Renderer) { r.clock = clock }
}

func WithCanvas(factory CanvasFactory) Option {
	return func(r *Renderer) { r.newCanvas = factory }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) { r.logger = logger }
}

func New(storage ports.ObjectStorage, opts ...Option) *Renderer {
	r := &Renderer{
		storage:   storage,
		clock:     clockwork.NewRealClock(),
		newCanvas: NewFPDFCanvas,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes the claim report. Weather comes from claim.WeatherSummary only.
// Evidence that cannot be read or decoded is skipped; an unusable imagery
// payload degrades to a notice.
func (r *Renderer) Render(
	ctx context.Context,
	claim domain.Claim,
	evidenceKeys []string,
	imagery []byte,
	out io.Writer,
) error {
	now := r.clock.Now().UTC().Truncate(time.Second)
	c := r.newCanvas(now)
	w, h := c.PageSize()
	p := &page{c: c, w: w, h: h}

	c.SetFooter(func() {
		c.SetFont("I", 8)
		c.SetTextColor(110, 110, 110)
		c.CenteredText(h-footerOffset, Disclaimer)
	})
	c.AddPage()

	p.header(now)
	p.details(claim)
	p.weather(claim)
	p.satellite(imagery, r.logger, claim.ID)
	if err := r.gallery(ctx, p, claim.ID, evidenceKeys); err != nil {
		return domain.WrapError(domain.ErrRender, "render report", err)
	}

	if err := c.Output(out); err != nil {
		return domain.WrapError(domain.ErrRender, "render report", err)
	}
	return nil
}

func (r *Renderer) gallery(ctx context.Context, p *page, claimID string, keys []string) error {
	p.section("Farmer Submitted Evidence (Images)")
	c := p.c

	x, y := labelX, p.y
	drawn := 0
	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := r.loadImage(ctx, key)
		if err != nil {
			r.logger.Warn("evidence_image_skipped", "claim_id", claimID, "key", key, "error", err)
			continue
		}

		if y+thumbSize > p.h-bottomMargin {
			c.AddPage()
			y = topMargin
		}
		b := img.Bounds()
		tw, th := fitBox(b.Dx(), b.Dy(), thumbSize, thumbSize)
		pw, ph := pixels(tw, thumbSize), pixels(th, thumbSize)
		data, err := encodePNG(scaleTo(img, pw, ph))
		if err == nil {
			err = c.Image(fmt.Sprintf("evidence-%d", i), data, x, y, tw, th)
		}
		if err != nil {
			r.logger.Warn("evidence_image_skipped", "claim_id", claimID, "key", key, "error", err)
			continue
		}
		drawn++

		x += thumbSize + thumbSpacing
		if x+thumbSize > p.w-marginLeft {
			x = labelX
			y += thumbSize + rowSpacing
		}
	}
	if x != labelX {
		y += thumbSize + rowSpacing
	}
	p.y = y

	if drawn == 0 {
		c.SetFont("", 10)
		c.SetTextColor(0, 0, 0)
		p.row(labelX, NoEvidence)
	}
	return nil
}

func (r *Renderer) loadImage(ctx context.Context, key string) (image.Image, error) {
	rc, err := r.storage.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	raw, err := io.ReadAll(io.LimitReader(rc, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read evidence: %w", err)
	}
	if len(raw) > maxImageBytes {
		return nil, fmt.Errorf("evidence larger than %d bytes", maxImageBytes)
	}
	return decodeImage(raw)
}

// pixels picks a raster size for a box edge of pts points, keeping
// thumbnails at thumbPixels across their longest side.
func pixels(pts, box float64) int {
	px := int(pts / box * thumbPixels)
	if px < 1 {
		return 1
	}
	return px
}

type page struct {
	c    Canvas
	w, h float64
	y    float64
}

func (p *page) ensure(space float64) {
	if p.y+space > p.h-bottomMargin {
		p.c.AddPage()
		p.y = topMargin
	}
}

func (p *page) header(generated time.Time) {
	c := p.c
	c.SetTextColor(0, 0, 0)
	c.SetFont("B", 18)
	c.CenteredText(topMargin, Title)
	c.SetFont("", 10)
	c.SetTextColor(90, 90, 90)
	c.CenteredText(topMargin+18, "Generated: "+generated.Format("2006-01-02 15:04")+" UTC")
	c.SetDrawColor(60, 120, 60)
	c.SetLineWidth(1)
	c.Line(marginLeft, topMargin+28, p.w-marginLeft, topMargin+28)
	p.y = topMargin + 44
}

func (p *page) section(title string) {
	p.ensure(sectionHeight + rowHeight)
	c := p.c
	c.SetFillColor(226, 239, 226)
	c.FillRect(marginLeft, p.y, p.w-2*marginLeft, sectionHeight)
	c.SetFont("B", 12)
	c.SetTextColor(30, 70, 30)
	c.Text(marginLeft+8, p.y+15, title)
	p.y += sectionHeight + 12
}

// row writes one line of text and advances the cursor.
func (p *page) row(x float64, text string) {
	p.ensure(rowHeight)
	p.c.Text(x, p.y+10, text)
	p.y += rowHeight
}

func (p *page) details(claim domain.Claim) {
	p.section("Farmer & Claim Details")
	fields := []struct{ label, value string }{
		{"Claim ID", claim.ID},
		{"Farmer Name", claim.Name},
		{"Aadhaar", claim.Aadhaar},
		{"Phone", claim.Phone},
		{"Email", claim.Email},
		{"Farm Location", fmt.Sprintf("%s (%.5f, %.5f)", strings.TrimSpace(claim.FarmLocation), claim.Location.Lat, claim.Location.Lon)},
		{"Farm Size", claim.FarmSize},
		{"Crop Type", claim.CropType},
		{"Damage Description", claim.DamageDescription},
		{"Date Range", claim.DateFrom + " to " + claim.DateTo},
		{"Reported Rainfall", claim.RainfallRange},
	}

	c := p.c
	c.SetTextColor(0, 0, 0)
	for _, f := range fields {
		value := strings.TrimSpace(f.value)
		if value == "" {
			value = "-"
		}
		c.SetFont("", 10)
		lines := c.WrapText(value, p.w-marginLeft-valueX)
		for i, line := range lines {
			p.ensure(rowHeight)
			if i == 0 {
				c.SetFont("B", 10)
				c.Text(labelX, p.y+10, f.label+":")
				c.SetFont("", 10)
			}
			c.Text(valueX, p.y+10, line)
			p.y += rowHeight
		}
	}
	p.y += 10
}

func (p *page) weather(claim domain.Claim) {
	ws := claim.WeatherSummary
	provider := "unknown"
	if ws != nil && ws.Provider != "" {
		provider = ws.Provider
	}
	p.section("Weather Verification (" + provider + ")")
	c := p.c
	c.SetFont("", 10)

	if ws.Failed() {
		msg := "no weather data"
		if ws != nil {
			msg = ws.Error
		}
		c.SetTextColor(180, 30, 30)
		p.row(labelX, "Weather data unavailable or fetch error: "+msg)
		c.SetTextColor(0, 0, 0)
		p.y += 10
		return
	}

	c.SetTextColor(0, 0, 0)
	p.row(labelX, "Source: "+provider)
	p.row(labelX, fmt.Sprintf("Period: %s to %s", claim.DateFrom, claim.DateTo))
	p.row(labelX, fmt.Sprintf("Total rainfall: %.2f mm", ws.RainSumTotal))
	p.row(labelX, "Average max temperature: "+celsius(ws.TMaxAvg))
	p.row(labelX, "Average min temperature: "+celsius(ws.TMinAvg))
	p.y += 10
}

func (p *page) satellite(imagery []byte, logger *slog.Logger, claimID string) {
	p.section("Satellite Imagery (Location Overview)")
	c := p.c

	err := p.drawSatellite(imagery)
	if err == nil {
		return
	}
	if len(imagery) > 0 {
		logger.Warn("satellite_image_unusable", "claim_id", claimID, "error", err)
	}
	c.SetFont("", 10)
	c.SetTextColor(180, 30, 30)
	p.row(labelX, SatelliteUnavailable)
	c.SetTextColor(0, 0, 0)
	p.y += 10
}

func (p *page) drawSatellite(imagery []byte) error {
	img, err := decodeImage(imagery)
	if err != nil {
		return err
	}
	data, err := encodePNG(scaleTo(img, satelliteW, satelliteH))
	if err != nil {
		return err
	}
	w, h := fitBox(satelliteW, satelliteH, imageBoxW, imageBoxH)
	p.ensure(h)
	if err := p.c.Image("satellite", data, marginLeft, p.y, w, h); err != nil {
		return err
	}
	p.y += h + 20
	return nil
}

func celsius(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f °C", *v)
}
