// Package testpattern generates the synthetic test images the virtual
// printer's debug "pattern" command can submit as a print job,
// generalizing this codebase's original printers/testpatterns.go (which
// rendered the same shapes for a physical thermal head) into plain PNG
// images suitable for a document-format-agnostic IPP printer.
package testpattern

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Generators maps a pattern name to the function that renders it at a
// given width, matching the teacher's printers.TestImagePatterns table.
var Generators = map[string]func(int) image.Image{
	"running-lines": RunningLines,
	"millimetres":   Millimetres,
	"sine":          Sine,
}

// RunningLines renders 8 lines, each 2 pixels high, shifted one pixel to
// the right of the previous, per the teacher's TestImgRunningLines.
func RunningLines(width int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, 16))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	for y := 0; y < 8; y++ {
		for x := 0; x < width; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y*2, color.Black)
				img.Set(x, y*2+1, color.Black)
			}
		}
	}
	return img
}

// Millimetres renders a running pattern of ruler-like ticks, per the
// teacher's TestImgMillimetres.
func Millimetres(width int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, 48))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	for y := 0; y < img.Bounds().Dy(); y++ {
		for x := y * 8; x < width; x += 40 {
			for x1 := x; x1 < x+8 && x1 < width; x1++ {
				img.Set(x1, y, color.Black)
			}
		}
	}
	return img
}

// Sine renders a single sinusoidal trace, per the teacher's TestImgSine.
func Sine(width int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, 64))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	for x := 0; x < width; x++ {
		y := int(32 + 30*math.Sin(float64(x)*2*math.Pi/100))
		if y >= 0 && y < img.Bounds().Dy() {
			img.Set(x, y, color.Black)
		}
	}
	return img
}

// Render resolves name to a generator, draws it at width, and scales it
// 2x with x/image/draw's approximate bilinear scaler (standing in for
// the teacher's dithering pass, since the virtual printer has no 1-bit
// thermal head to dither for), returning the result PNG-encoded.
func Render(name string, width int) ([]byte, error) {
	gen, ok := Generators[name]
	if !ok {
		return nil, fmt.Errorf("unknown test pattern %q", name)
	}
	src := gen(width)
	dstRect := image.Rect(0, 0, src.Bounds().Dx()*2, src.Bounds().Dy()*2)
	dst := image.NewRGBA(dstRect)
	xdraw.ApproxBiLinear.Scale(dst, dstRect, src, src.Bounds(), xdraw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode test pattern: %w", err)
	}
	return buf.Bytes(), nil
}
