package grid

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	lineColor  = color.RGBA{R: 255, A: 255}
	labelColor = color.RGBA{R: 255, G: 255, A: 255}
)

// Overlay draws the coordinate grid onto a copy of src: red lines at every
// cell boundary, yellow column letters along the top edge and yellow row
// numbers down the left edge. src is not modified.
func Overlay(src image.Image, cellSize int) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	w, h := b.Dx(), b.Dy()
	cols, rows := Dimensions(w, h, cellSize)
	if cols == 0 && rows == 0 {
		return dst
	}

	lines := image.NewUniform(lineColor)
	for i := 0; i <= cols; i++ {
		x := i * cellSize
		draw.Draw(dst, image.Rect(x, 0, x+1, h), lines, image.Point{}, draw.Src)
	}
	for j := 0; j <= rows; j++ {
		y := j * cellSize
		draw.Draw(dst, image.Rect(0, y, w, y+1), lines, image.Point{}, draw.Src)
	}

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(labelColor),
		Face: face,
	}
	// Column letters sit near the top of each column, row numbers along the
	// left edge of each row.
	for i := 0; i < cols; i++ {
		d.Dot = fixed.P(i*cellSize+cellSize/2-4, 2+face.Ascent)
		d.DrawString(ColumnLabel(i))
	}
	for j := 0; j < rows; j++ {
		d.Dot = fixed.P(2, j*cellSize+cellSize/2-5+face.Ascent)
		d.DrawString(strconv.Itoa(j + 1))
	}
	return dst
}
