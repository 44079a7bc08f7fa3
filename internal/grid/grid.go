// Package grid maps between spreadsheet-style cell references and pixel
// coordinates on a screenshot. Columns are labeled A, B, ... Z, AA, AB and
// rows are numbered from 1, so the top-left cell is A1.
package grid

import (
	"fmt"
	"strings"
)

// DefaultCellSize is the grid cell edge in pixels on the resized screenshot.
const DefaultCellSize = 40

// Point is a pixel coordinate.
type Point struct {
	X int
	Y int
}

// Cell is a grid position. Col and Row are 0-indexed; the textual form
// produced by FormatCell uses 1-indexed rows.
type Cell struct {
	Col int
	Row int
}

// ColumnLabel returns the bijective base-26 label for a 0-indexed column:
// 0 -> "A", 25 -> "Z", 26 -> "AA", 701 -> "ZZ", 702 -> "AAA".
func ColumnLabel(col int) string {
	if col < 0 {
		return ""
	}
	buf := make([]byte, 0, 3)
	for col >= 0 {
		buf = append(buf, byte('A'+col%26))
		col = col/26 - 1
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// ParseColumn is the inverse of ColumnLabel. It accepts lower or upper case
// labels of any length.
func ParseColumn(label string) (int, error) {
	if label == "" {
		return 0, fmt.Errorf("empty column label")
	}
	col := 0
	for _, r := range strings.ToUpper(label) {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("invalid column label %q", label)
		}
		col = col*26 + int(r-'A') + 1
	}
	return col - 1, nil
}

// ParseCell parses a reference like "E10" into a Cell. The row portion is
// 1-indexed in the reference.
func ParseCell(ref string) (Cell, error) {
	ref = strings.TrimSpace(ref)
	i := 0
	for i < len(ref) && isLetter(ref[i]) {
		i++
	}
	if i == 0 {
		return Cell{}, fmt.Errorf("cell reference %q has no column letters", ref)
	}
	colPart, rowPart := ref[:i], ref[i:]
	if rowPart == "" {
		return Cell{}, fmt.Errorf("cell reference %q has no row number", ref)
	}
	row := 0
	for _, r := range rowPart {
		if r < '0' || r > '9' {
			return Cell{}, fmt.Errorf("invalid cell reference %q", ref)
		}
		row = row*10 + int(r-'0')
	}
	if row < 1 {
		return Cell{}, fmt.Errorf("cell reference %q: rows start at 1", ref)
	}
	col, err := ParseColumn(colPart)
	if err != nil {
		return Cell{}, fmt.Errorf("invalid cell reference %q: %w", ref, err)
	}
	return Cell{Col: col, Row: row - 1}, nil
}

// FormatCell renders a Cell back into reference form, e.g. {4, 9} -> "E10".
func FormatCell(c Cell) string {
	return fmt.Sprintf("%s%d", ColumnLabel(c.Col), c.Row+1)
}

// CellToPixel returns the pixel at the center of the referenced cell.
func CellToPixel(ref string, cellSize int) (Point, error) {
	if cellSize <= 0 {
		return Point{}, fmt.Errorf("cell size must be positive, got %d", cellSize)
	}
	c, err := ParseCell(ref)
	if err != nil {
		return Point{}, err
	}
	return Point{
		X: int((float64(c.Col) + 0.5) * float64(cellSize)),
		Y: int((float64(c.Row) + 0.5) * float64(cellSize)),
	}, nil
}

// PixelToCell returns the cell containing the given pixel.
func PixelToCell(p Point, cellSize int) Cell {
	if cellSize <= 0 {
		return Cell{}
	}
	return Cell{Col: p.X / cellSize, Row: p.Y / cellSize}
}

// Dimensions returns how many whole columns and rows fit in a w x h image.
func Dimensions(w, h, cellSize int) (cols, rows int) {
	if cellSize <= 0 {
		return 0, 0
	}
	return w / cellSize, h / cellSize
}

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}
