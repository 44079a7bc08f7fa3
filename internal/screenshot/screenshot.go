// Package screenshot prepares device captures for vision models.
package screenshot

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
)

// Fit shrinks img so neither dimension exceeds maxDim, preserving the
// aspect ratio. Images already inside the bound come back unchanged;
// Fit never enlarges.
func Fit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	scale := math.Min(float64(maxDim)/float64(w), float64(maxDim)/float64(h))
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)

	return imaging.Resize(img, newW, newH, imaging.Lanczos)
}

// EncodePNG renders img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
