package pdfreport

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// Canvas is the drawing surface a report is composed on. Coordinates are in
// points from the top-left corner of the current page; Text and CenteredText
// place the baseline at y.
type Canvas interface {
	PageSize() (w, h float64)
	AddPage()
	SetFont(style string, size float64)
	SetTextColor(r, g, b int)
	SetFillColor(r, g, b int)
	SetDrawColor(r, g, b int)
	SetLineWidth(w float64)
	Text(x, y float64, s string)
	CenteredText(y float64, s string)
	WrapText(s string, width float64) []string
	FillRect(x, y, w, h float64)
	Line(x1, y1, x2, y2 float64)
	Image(name string, png []byte, x, y, w, h float64) error
	SetFooter(fn func())
	Output(w io.Writer) error
}

// CanvasFactory creates an empty canvas stamped with the given creation time.
type CanvasFactory func(created time.Time) Canvas

const fontFamily = "Helvetica"

type fpdfCanvas struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// NewFPDFCanvas returns an A4 portrait canvas backed by fpdf. Catalog sorting and
// fixed creation dates make the output a pure function of the drawing calls.
func NewFPDFCanvas(created time.Time) Canvas {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(created)
	pdf.SetModificationDate(created)
	pdf.SetTitle("Crop Damage Claim Report", true)
	pdf.SetCreator("FarmSure", true)
	pdf.SetFont(fontFamily, "", 10)
	return &fpdfCanvas{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

func (c *fpdfCanvas) PageSize() (float64, float64) {
	return c.pdf.GetPageSize()
}

func (c *fpdfCanvas) AddPage() { c.pdf.AddPage() }

func (c *fpdfCanvas) SetFont(style string, size float64) {
	c.pdf.SetFont(fontFamily, style, size)
}

func (c *fpdfCanvas) SetTextColor(r, g, b int) { c.pdf.SetTextColor(r, g, b) }
func (c *fpdfCanvas) SetFillColor(r, g, b int) { c.pdf.SetFillColor(r, g, b) }
func (c *fpdfCanvas) SetDrawColor(r, g, b int) { c.pdf.SetDrawColor(r, g, b) }
func (c *fpdfCanvas) SetLineWidth(w float64)   { c.pdf.SetLineWidth(w) }

func (c *fpdfCanvas) Text(x, y float64, s string) {
	c.pdf.Text(x, y, c.tr(s))
}

func (c *fpdfCanvas) CenteredText(y float64, s string) {
	txt := c.tr(s)
	w, _ := c.pdf.GetPageSize()
	c.pdf.Text((w-c.pdf.GetStringWidth(txt))/2, y, txt)
}

// WrapText splits s into lines no wider than width in the current font.
// Words longer than a line are broken between runes.
func (c *fpdfCanvas) WrapText(s string, width float64) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}
	fits := func(candidate string) bool {
		return c.pdf.GetStringWidth(c.tr(candidate)) <= width
	}

	var lines []string
	current := ""
	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if fits(candidate) {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
			current = ""
		}
		if fits(word) {
			current = word
			continue
		}
		var pieces []string
		pieces, current = c.breakWord(word, width)
		lines = append(lines, pieces...)
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

// breakWord cuts word into pieces no wider than width and returns the
// remainder. Core font widths are additive, so each rune is measured once.
func (c *fpdfCanvas) breakWord(word string, width float64) ([]string, string) {
	runes := []rune(word)
	var pieces []string
	start, w := 0, 0.0
	for i, r := range runes {
		rw := c.pdf.GetStringWidth(c.tr(string(r)))
		if i > start && w+rw > width {
			pieces = append(pieces, string(runes[start:i]))
			start, w = i, 0
		}
		w += rw
	}
	return pieces, string(runes[start:])
}

func (c *fpdfCanvas) FillRect(x, y, w, h float64) {
	c.pdf.Rect(x, y, w, h, "F")
}

func (c *fpdfCanvas) Line(x1, y1, x2, y2 float64) {
	c.pdf.Line(x1, y1, x2, y2)
}

func (c *fpdfCanvas) Image(name string, png []byte, x, y, w, h float64) error {
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	c.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	if !c.pdf.Ok() {
		err := c.pdf.Error()
		c.pdf.ClearError()
		return fmt.Errorf("register image %s: %w", name, err)
	}
	c.pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
	if !c.pdf.Ok() {
		err := c.pdf.Error()
		c.pdf.ClearError()
		return fmt.Errorf("draw image %s: %w", name, err)
	}
	return nil
}

func (c *fpdfCanvas) SetFooter(fn func()) {
	c.pdf.SetFooterFunc(fn)
}

func (c *fpdfCanvas) Output(w io.Writer) error {
	if err := c.pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
