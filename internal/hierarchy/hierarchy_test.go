package hierarchy

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Raw 1080x2400 device resized down to 460x1024, the shape most phones end
// up with after the long-edge cap.
var phone = Compactor{
	CellSize: 40,
	Raw:      Size{W: 1080, H: 2400},
	Display:  Size{W: 460, H: 1024},
}

func TestParseBounds(t *testing.T) {
	assert.Equal(t, Rect{X1: 0, Y1: 42, X2: 1080, Y2: 177}, ParseBounds("[0,42][1080,177]"))
	assert.Equal(t, Rect{X1: 12, Y1: 34, X2: 56, Y2: 78}, ParseBounds("[12,34][56,78]"))
}

func TestParseBoundsMalformed(t *testing.T) {
	for _, s := range []string{"", "[1,2]", "1,2,3,4", "[a,b][c,d]"} {
		t.Run(fmt.Sprintf("%q", s), func(t *testing.T) {
			assert.Equal(t, Rect{}, ParseBounds(s))
		})
	}
}

func TestCellRangeAndClickCell(t *testing.T) {
	cases := []struct {
		name      string
		r         Rect
		wantRange string
		wantClick string
	}{
		{"status bar", Rect{0, 42, 1080, 177}, "[A1,K2]", "F2"},
		{"full screen", Rect{0, 0, 1080, 2400}, "[A1,K26]", "F13"},
		{"mid band", Rect{100, 200, 300, 400}, "[B3,C4]", "C4"},
		{"zero rect", Rect{}, "[A1]", "A1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantRange, phone.CellRange(tc.r))
			assert.Equal(t, tc.wantClick, phone.ClickCell(tc.r))
		})
	}
}

// The two rounding rules are intentionally different and may disagree near
// cell boundaries; both outcomes are pinned.
func TestRoundingRulesDiverge(t *testing.T) {
	center := Rect{X1: 540, Y1: 1200, X2: 540, Y2: 1200}
	assert.Equal(t, "[G14]", phone.CellRange(center))
	assert.Equal(t, "F13", phone.ClickCell(center))
}

func TestCellRangeIdentityScale(t *testing.T) {
	c := Compactor{CellSize: 40, Raw: Size{W: 460, H: 1024}, Display: Size{W: 460, H: 1024}}
	assert.Equal(t, "[C3]", c.CellRange(Rect{80, 80, 120, 120}))
	assert.Equal(t, "C3", c.ClickCell(Rect{80, 80, 120, 120}))
}

const sampleDump = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node index="0" class="android.widget.FrameLayout" bounds="[0,0][1080,2400]" clickable="false" scrollable="false">
    <node class="android.widget.Button" text="OK" resource-id="com.example:id/ok_button" bounds="[0,42][1080,177]" clickable="true" scrollable="false"/>
    <node class="android.widget.ImageView" content-desc="Profile" resource-id="com.example:id/avatar" bounds="[900,2000][1080,2180]" clickable="true" scrollable="false"/>
    <node class="androidx.recyclerview.widget.RecyclerView" bounds="[0,200][1080,1900]" clickable="false" scrollable="true"/>
    <node class="android.widget.TextView" text="Label only" bounds="[0,0][100,100]" clickable="false" scrollable="false"/>
    <node class="android.widget.Button" text="NoBounds" clickable="true" scrollable="false"/>
  </node>
</hierarchy>`

func TestCompact(t *testing.T) {
	out := phone.Compact([]byte(sampleDump))
	want := strings.Join([]string{
		`{ [Button] "OK" id="ok_button" position="F2" }`,
		`{ [ImageView] desc="Profile" id="avatar" position="K23" }`,
		`{ [RecyclerView] position="F12" (scrollable) }`,
	}, "\n")
	assert.Equal(t, want, out)
}

func TestCompactNoInteractiveElements(t *testing.T) {
	dump := `<?xml version='1.0'?><hierarchy><node class="android.widget.TextView" text="hi" bounds="[0,0][10,10]" clickable="false"/></hierarchy>`
	assert.Equal(t, "No interactive elements found", phone.Compact([]byte(dump)))
}

func TestCompactMalformedXML(t *testing.T) {
	out := phone.Compact([]byte("<hierarchy><node"))
	assert.True(t, strings.HasPrefix(out, "Error parsing UI hierarchy:"), out)
}

func TestCompactTruncatesHugeDumps(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<hierarchy>")
	for i := 0; i < 2000; i++ {
		fmt.Fprintf(&sb, `<node class="android.widget.Button" text="button number %d" bounds="[0,0][100,100]" clickable="true"/>`, i)
	}
	sb.WriteString("</hierarchy>")

	out := phone.Compact([]byte(sb.String()))
	require.True(t, strings.HasSuffix(out, "... (truncated)"), "expected truncation tail")
	assert.LessOrEqual(t, len(out), maxDigestBytes+len("\n... (truncated)"))
}

func TestDigestHeader(t *testing.T) {
	out := phone.Digest([]byte(sampleDump))
	assert.True(t, strings.HasPrefix(out, "UI elements (with grid positions):\n{ [Button]"), out)
}
