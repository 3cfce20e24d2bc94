// Package swatch samples the dominant color of an avatar image.
//
// A Sampler never fails loudly: every problem (load error, tainted canvas,
// fully transparent image) collapses into ok == false so the caller can fall
// back to a fixed palette.
package swatch

import (
	"context"
	"fmt"
	"image"
	"image/color"
)

// DefaultAlphaThreshold is the alpha value a pixel must exceed to count.
const DefaultAlphaThreshold uint8 = 128

// RGB is an 8-bit per channel color.
type RGB struct {
	R, G, B uint8
}

// CSS renders the color as rgb(r, g, b).
func (c RGB) CSS() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// Sampler computes the average opaque color of the image at url.
type Sampler interface {
	Sample(ctx context.Context, url string) (RGB, bool)
}

// SamplerFunc adapts a function to the Sampler interface.
type SamplerFunc func(ctx context.Context, url string) (RGB, bool)

// Sample calls f.
func (f SamplerFunc) Sample(ctx context.Context, url string) (RGB, bool) {
	return f(ctx, url)
}

// Average returns the rounded per-channel mean over pixels whose straight
// alpha exceeds threshold. ok is false when no pixel qualifies.
func Average(img image.Image, threshold uint8) (RGB, bool) {
	if img == nil {
		return RGB{}, false
	}

	var r, g, b, n uint64
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if px.A <= threshold {
				continue
			}
			r += uint64(px.R)
			g += uint64(px.G)
			b += uint64(px.B)
			n++
		}
	}

	if n == 0 {
		return RGB{}, false
	}
	return RGB{R: roundDiv(r, n), G: roundDiv(g, n), B: roundDiv(b, n)}, true
}

// Sum accumulates raw RGBA bytes (canvas getImageData layout) the same way
// Average does for decoded images.
func Sum(pix []byte, threshold uint8) (RGB, bool) {
	var r, g, b, n uint64
	for i := 0; i+3 < len(pix); i += 4 {
		if pix[i+3] <= threshold {
			continue
		}
		r += uint64(pix[i])
		g += uint64(pix[i+1])
		b += uint64(pix[i+2])
		n++
	}
	if n == 0 {
		return RGB{}, false
	}
	return RGB{R: roundDiv(r, n), G: roundDiv(g, n), B: roundDiv(b, n)}, true
}

// roundDiv is sum/n rounded half up. The mean of uint8 values fits a uint8.
func roundDiv(sum, n uint64) uint8 {
	return uint8((2*sum + n) / (2 * n))
}
