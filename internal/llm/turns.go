package llm

import "encoding/base64"

// Turn is a single entry in a conversation window. The closed set of
// implementations is SystemTurn, UserTurn, AssistantTurn and
// ToolResultTurn; providers switch over these when building requests.
type Turn interface {
	isTurn()
}

// SystemTurn carries the system prompt. Providers lift it out of the
// message list into their dedicated system slot.
type SystemTurn struct {
	Text string `json:"text"`
}

// UserTurn is a user-authored observation. Image holds the grid-overlaid
// screenshot when the turn carries one. Hierarchy holds the UI element
// digest shown to the model below the turn text; it is kept separate so
// history trimming can drop it without touching the text.
type UserTurn struct {
	Text      string           `json:"text"`
	Hierarchy string           `json:"hierarchy,omitempty"`
	Image     *ImageAttachment `json:"image,omitempty"`
}

// AssistantTurn is a model reply, optionally carrying tool calls.
type AssistantTurn struct {
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolResultTurn reports the outcome of one executed tool call.
type ToolResultTurn struct {
	CallID string `json:"call_id"`
	Name   string `json:"name"`
	Text   string `json:"text"`
}

func (SystemTurn) isTurn()     {}
func (UserTurn) isTurn()       {}
func (AssistantTurn) isTurn()  {}
func (ToolResultTurn) isTurn() {}

// PromptText returns the text sent to the model for this turn, with the
// hierarchy digest appended on a blank line when present.
func (u UserTurn) PromptText() string {
	switch {
	case u.Hierarchy == "":
		return u.Text
	case u.Text == "":
		return u.Hierarchy
	default:
		return u.Text + "\n\n" + u.Hierarchy
	}
}

// ImageAttachment is an encoded image carried by a user turn.
type ImageAttachment struct {
	MediaType string `json:"media_type"` // e.g. "image/png"
	Data      []byte `json:"data"`
}

// Base64 returns the attachment body in standard base64 encoding.
func (a *ImageAttachment) Base64() string {
	return base64.StdEncoding.EncodeToString(a.Data)
}

// DataURL renders the attachment as a data: URL for OpenAI-style APIs.
func (a *ImageAttachment) DataURL() string {
	return "data:" + a.MediaType + ";base64," + a.Base64()
}
