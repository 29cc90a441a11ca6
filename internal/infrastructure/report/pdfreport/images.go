package pdfreport

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// maxImagePixels bounds the decoded size of a single image. A small
// compressed payload can declare dimensions that would need gigabytes once
// decoded.
const maxImagePixels = 40_000_000

var (
	errEmptyImage    = errors.New("empty image payload")
	errImageTooLarge = errors.New("image dimensions exceed pixel budget")
)

func decodeImage(raw []byte) (image.Image, error) {
	if len(raw) == 0 {
		return nil, errEmptyImage
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errEmptyImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return nil, fmt.Errorf("%w: %dx%d", errImageTooLarge, cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errEmptyImage
	}
	return img, nil
}

// scaleTo draws src onto an opaque white w x h canvas.
func scaleTo(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

// fitBox returns the largest size with the aspect ratio of w x h that fits in
// boxW x boxH.
func fitBox(w, h int, boxW, boxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	scale := boxW / float64(w)
	if s := boxH / float64(h); s < scale {
		scale = s
	}
	return float64(w) * scale, float64(h) * scale
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
