// Package hierarchy flattens uiautomator XML dumps into the compact,
// grid-addressed element list shown to the model.
package hierarchy

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/shikhr/opdroid/internal/grid"
)

// maxDigestBytes bounds prompt growth on pathological dumps.
const maxDigestBytes = 8 << 10

// Size is a width/height pair in pixels.
type Size struct {
	W int
	H int
}

// Rect is a bounding box in raw device pixels.
type Rect struct {
	X1, Y1, X2, Y2 int
}

var boundsRe = regexp.MustCompile(`\[(\d+),(\d+)\]\[(\d+),(\d+)\]`)

// ParseBounds extracts a rect from a uiautomator bounds attribute like
// "[0,42][1080,177]". Anything else parses as the zero rect, which keeps
// malformed nodes addressable at A1 instead of failing the whole dump.
func ParseBounds(s string) Rect {
	m := boundsRe.FindStringSubmatch(s)
	if m == nil {
		return Rect{}
	}
	atoi := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}
	return Rect{X1: atoi(m[1]), Y1: atoi(m[2]), X2: atoi(m[3]), Y2: atoi(m[4])}
}

// Compactor converts element bounds between the device's raw pixel space and
// the resized screenshot the grid is drawn on. Raw and Display are fixed per
// observation.
type Compactor struct {
	CellSize int
	Raw      Size
	Display  Size
}

func (c Compactor) scale() (sx, sy float64) {
	sx, sy = 1, 1
	if c.Raw.W > 0 && c.Display.W > 0 {
		sx = float64(c.Display.W) / float64(c.Raw.W)
	}
	if c.Raw.H > 0 && c.Display.H > 0 {
		sy = float64(c.Display.H) / float64(c.Raw.H)
	}
	return sx, sy
}

// CellRange returns the inclusive grid-cell span whose cell centers fall
// within the scaled bounding box, rendered "[A1]" or "[A1,B2]".
func (c Compactor) CellRange(r Rect) string {
	sx, sy := c.scale()
	cell := float64(c.CellSize)

	startCol := int(math.Ceil(float64(r.X1)*sx/cell - 0.5))
	endCol := int(math.Ceil(float64(r.X2)*sx/cell-0.5)) - 1
	startRow := int(math.Ceil(float64(r.Y1)*sy/cell - 0.5))
	endRow := int(math.Ceil(float64(r.Y2)*sy/cell-0.5)) - 1
	if endCol < startCol {
		endCol = startCol
	}
	if endRow < startRow {
		endRow = startRow
	}

	start := fmt.Sprintf("%s%d", grid.ColumnLabel(startCol), startRow+1)
	end := fmt.Sprintf("%s%d", grid.ColumnLabel(endCol), endRow+1)
	if start == end {
		return "[" + start + "]"
	}
	return "[" + start + "," + end + "]"
}

// ClickCell returns the tap target for an element: the raw bounding-box
// center scaled into display space, then floor-divided by the cell size.
// This deliberately uses a different rounding rule than CellRange and the
// two can disagree near cell boundaries.
func (c Compactor) ClickCell(r Rect) string {
	sx, sy := c.scale()
	cx := float64(r.X1+r.X2) / 2 * sx
	cy := float64(r.Y1+r.Y2) / 2 * sy
	col := int(math.Floor(cx / float64(c.CellSize)))
	row := int(math.Floor(cy / float64(c.CellSize)))
	return fmt.Sprintf("%s%d", grid.ColumnLabel(col), row+1)
}

// Compact parses a uiautomator XML dump and renders one line per
// interactive element, in document order. Parse failures come back as an
// error-text digest so the caller can keep going.
func (c Compactor) Compact(xml []byte) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xml); err != nil {
		return fmt.Sprintf("Error parsing UI hierarchy: %v", err)
	}
	root := doc.Root()
	if root == nil {
		return "Error parsing UI hierarchy: empty document"
	}

	var lines []string
	for _, child := range root.ChildElements() {
		c.collect(child, &lines)
	}
	if len(lines) == 0 {
		return "No interactive elements found"
	}

	out := strings.Join(lines, "\n")
	if len(out) > maxDigestBytes {
		out = out[:maxDigestBytes] + "\n... (truncated)"
	}
	return out
}

// Digest is Compact with the header the agent places above the element list.
func (c Compactor) Digest(xml []byte) string {
	return "UI elements (with grid positions):\n" + c.Compact(xml)
}

func (c Compactor) collect(el *etree.Element, lines *[]string) {
	clickable := el.SelectAttrValue("clickable", "false") == "true"
	scrollable := el.SelectAttrValue("scrollable", "false") == "true"
	bounds := el.SelectAttrValue("bounds", "")

	if (clickable || scrollable) && bounds != "" {
		parts := []string{"[" + shortClassName(el.SelectAttrValue("class", "View")) + "]"}

		text := el.SelectAttrValue("text", "")
		desc := el.SelectAttrValue("content-desc", "")
		if text != "" {
			parts = append(parts, `"`+text+`"`)
		} else if desc != "" {
			parts = append(parts, `desc="`+desc+`"`)
		}

		if resID := el.SelectAttrValue("resource-id", ""); resID != "" {
			shortID := resID
			if i := strings.LastIndex(resID, "/"); i >= 0 {
				shortID = resID[i+1:]
			}
			parts = append(parts, `id="`+shortID+`"`)
		}

		parts = append(parts, `position="`+c.ClickCell(ParseBounds(bounds))+`"`)
		if scrollable {
			parts = append(parts, "(scrollable)")
		}
		*lines = append(*lines, "{ "+strings.Join(parts, " ")+" }")
	}

	for _, child := range el.ChildElements() {
		c.collect(child, lines)
	}
}

func shortClassName(full string) string {
	if i := strings.LastIndex(full, "."); i >= 0 {
		return full[i+1:]
	}
	return full
}
