package imagegen

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
)

var (
	errNoImage = stderrors.New("response carries no image")
	errNoJobID = stderrors.New("response carries no job id")
	errNoVideo = stderrors.New("response carries no video")
)

// Watermark geometry, as fractions of the image width.
const (
	watermarkFontScale = 0.02
	watermarkMargin    = 0.02
	minFontSize        = 8
)

// WatermarkColor is white at alpha 150.
var WatermarkColor = color.NRGBA{R: 255, G: 255, B: 255, A: 150}

var (
	fontOnce sync.Once
	baseFont *opentype.Font
	fontErr  error
)

func loadFont() (*opentype.Font, error) {
	fontOnce.Do(func() {
		baseFont, fontErr = opentype.Parse(goregular.TTF)
	})
	return baseFont, fontErr
}

// Overlay decodes img (PNG, JPEG or WebP), draws text in the bottom-right
// corner and returns the result as PNG.
func Overlay(img []byte, text string) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), src, b.Min, draw.Src)

	if text != "" {
		if err := drawWatermark(canvas, text); err != nil {
			return nil, err
		}
	}

	var out bytes.Buffer
	if err := png.Encode(&out, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return out.Bytes(), nil
}

func drawWatermark(dst *image.RGBA, text string) error {
	f, err := loadFont()
	if err != nil {
		return fmt.Errorf("load font: %w", err)
	}
	width := dst.Bounds().Dx()
	height := dst.Bounds().Dy()

	size := float64(width) * watermarkFontScale
	if size < minFontSize {
		size = minFontSize
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return fmt.Errorf("font face: %w", err)
	}
	defer face.Close()

	d := &font.Drawer{Dst: dst, Src: image.NewUniform(WatermarkColor), Face: face}
	margin := int(float64(width) * watermarkMargin)
	textWidth := d.MeasureString(text).Ceil()
	descent := face.Metrics().Descent.Ceil()

	x := width - textWidth - margin
	y := height - margin - descent
	d.Dot = fixed.P(x, y)
	d.DrawString(text)
	return nil
}
