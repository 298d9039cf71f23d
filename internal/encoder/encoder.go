// Package encoder renders serial numbers as printable PNG labels.
//
// Two entry points, one per symbology: QRPNG and BarcodePNG. Both draw the
// code centered on a fixed-width white canvas with the serial captioned
// beneath it. The functions are pure; inputs the symbology cannot encode
// (empty strings, characters outside the Code128 alphabet, oversized
// payloads) surface as errors with no recovery here.
package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/qr"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// CanvasWidth is the width of every generated label image, in pixels.
const CanvasWidth = 900

const (
	qrCanvasHeight = 900
	qrCodeSide     = 760
	qrCodeTop      = 20

	barCanvasHeight = 360
	barCodeWidth    = 820
	barCodeHeight   = 240
	barCodeTop      = 30

	captionSize   = 44
	captionMargin = 24
)

// ErrEmptySerial is returned when the serial is empty or whitespace-only.
var ErrEmptySerial = errors.New("encoder: empty serial")

// The parsed font is safe to share, but an opentype.Face is not: it keeps
// per-glyph buffers that concurrent renders would corrupt. Each render
// borrows a face from the pool instead.
var captionFont = mustFont()

var facePool = sync.Pool{
	New: func() any { return mustFace() },
}

func mustFont() *opentype.Font {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		panic("encoder: parse embedded font: " + err.Error())
	}
	return f
}

func mustFace() font.Face {
	face, err := opentype.NewFace(captionFont, &opentype.FaceOptions{
		Size:    captionSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		panic("encoder: build caption face: " + err.Error())
	}
	return face
}

// QRPNG encodes the serial as a QR symbol (error-correction level M) and
// returns the finished label PNG.
func QRPNG(serial string) ([]byte, error) {
	if serial == "" {
		return nil, ErrEmptySerial
	}

	code, err := qr.Encode(serial, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	scaled, err := barcode.Scale(code, qrCodeSide, qrCodeSide)
	if err != nil {
		return nil, fmt.Errorf("qr scale: %w", err)
	}

	return compose(scaled, serial, qrCanvasHeight, qrCodeTop)
}

// BarcodePNG encodes the serial as a Code128 symbol and returns the
// finished label PNG.
func BarcodePNG(serial string) ([]byte, error) {
	if serial == "" {
		return nil, ErrEmptySerial
	}

	code, err := code128.Encode(serial)
	if err != nil {
		return nil, fmt.Errorf("code128 encode: %w", err)
	}
	scaled, err := barcode.Scale(code, barCodeWidth, barCodeHeight)
	if err != nil {
		return nil, fmt.Errorf("code128 scale: %w", err)
	}

	return compose(scaled, serial, barCanvasHeight, barCodeTop)
}

// compose centers the symbol on a white canvas and draws the serial below.
func compose(code image.Image, serial string, canvasHeight, codeTop int) ([]byte, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, CanvasWidth, canvasHeight))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	bounds := code.Bounds()
	offset := image.Pt((CanvasWidth-bounds.Dx())/2, codeTop)
	draw.Draw(canvas, bounds.Add(offset.Sub(bounds.Min)), code, bounds.Min, draw.Over)

	drawCaption(canvas, serial, codeTop+bounds.Dy()+captionMargin)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}

func drawCaption(dst draw.Image, serial string, top int) {
	face := facePool.Get().(font.Face)
	defer facePool.Put(face)

	d := font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: face,
	}
	width := d.MeasureString(serial)
	metrics := face.Metrics()
	d.Dot = fixed.Point26_6{
		X: (fixed.I(CanvasWidth) - width) / 2,
		Y: fixed.I(top) + metrics.Ascent,
	}
	d.DrawString(serial)
}
