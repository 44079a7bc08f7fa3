package grid

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grayImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 128, G: 128, B: 128, A: 255}), image.Point{}, draw.Src)
	return img
}

func TestOverlayDrawsGridLines(t *testing.T) {
	src := grayImage(120, 80)
	out := Overlay(src, 40)
	require.Equal(t, src.Bounds().Size(), out.Bounds().Size())

	// Vertical boundaries at x = 0, 40, 80 and horizontal at y = 0, 40.
	assert.Equal(t, lineColor, out.RGBAAt(40, 25))
	assert.Equal(t, lineColor, out.RGBAAt(80, 70))
	assert.Equal(t, lineColor, out.RGBAAt(25, 40))
	assert.Equal(t, lineColor, out.RGBAAt(0, 30))

	// Cell interiors keep the source color.
	assert.Equal(t, color.RGBA{R: 128, G: 128, B: 128, A: 255}, out.RGBAAt(25, 25))
}

func TestOverlayDrawsLabels(t *testing.T) {
	out := Overlay(grayImage(120, 80), 40)

	found := false
	for y := 0; y < 16 && !found; y++ {
		for x := 0; x < 40 && !found; x++ {
			if out.RGBAAt(x, y) == labelColor {
				found = true
			}
		}
	}
	assert.True(t, found, "expected a label pixel near the top-left corner")
}

func TestOverlayLeavesSourceUntouched(t *testing.T) {
	src := grayImage(120, 80)
	_ = Overlay(src, 40)
	assert.Equal(t, color.RGBA{R: 128, G: 128, B: 128, A: 255}, src.RGBAAt(40, 25))
}

func TestOverlayZeroCellSize(t *testing.T) {
	src := grayImage(50, 50)
	out := Overlay(src, 0)
	assert.Equal(t, color.RGBA{R: 128, G: 128, B: 128, A: 255}, out.RGBAAt(10, 10))
}
