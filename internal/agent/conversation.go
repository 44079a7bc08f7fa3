package agent

import (
	"github.com/shikhr/opdroid/internal/llm"
)

// historyMarker replaces a dropped screenshot in degraded turns.
const historyMarker = "[Screenshot removed for history management]"

// DefaultMaxImages caps how many screenshots ride along in one request.
// Some providers reject requests carrying more than five images.
const DefaultMaxImages = 5

// History is the ordered conversation window fed to the model. Appended
// turns are never mutated; Window applies the image budget on the way
// out, so the degradation is a pure function of the stored turns and
// MaxImages.
type History struct {
	maxImages int
	turns     []llm.Turn
}

// NewHistory creates an empty window. maxImages <= 0 selects the default.
func NewHistory(maxImages int) *History {
	if maxImages <= 0 {
		maxImages = DefaultMaxImages
	}
	return &History{maxImages: maxImages}
}

// Append adds a turn at the end of the window.
func (h *History) Append(t llm.Turn) {
	h.turns = append(h.turns, t)
}

// Len returns the number of stored turns.
func (h *History) Len() int {
	return len(h.turns)
}

// Reset drops all turns.
func (h *History) Reset() {
	h.turns = nil
}

// ImageCount returns how many stored turns carry an image, before any
// degradation.
func (h *History) ImageCount() int {
	n := 0
	for _, t := range h.turns {
		if u, ok := t.(llm.UserTurn); ok && u.Image != nil {
			n++
		}
	}
	return n
}

// Window returns the turns to send. Scanning newest to oldest, the most
// recent image turn is passed through whole; image turns after it up to
// the cap keep the screenshot but lose the hierarchy digest; anything
// past the cap becomes a text-only turn with the removal marker. Stored
// turns are copied, never modified.
func (h *History) Window() []llm.Turn {
	out := make([]llm.Turn, len(h.turns))
	copy(out, h.turns)

	seen := 0
	for i := len(out) - 1; i >= 0; i-- {
		u, ok := out[i].(llm.UserTurn)
		if !ok || u.Image == nil {
			continue
		}
		seen++
		switch {
		case seen == 1:
			// Newest screenshot keeps its element digest.
		case seen <= h.maxImages:
			u.Hierarchy = ""
			out[i] = u
		default:
			text := u.Text
			if text != "" {
				text += " "
			}
			out[i] = llm.UserTurn{Text: text + historyMarker}
		}
	}
	return out
}
