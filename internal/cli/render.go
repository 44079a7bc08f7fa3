package cli

import (
	"fmt"

	"github.com/shikhr/opdroid/internal/agent"
	"github.com/shikhr/opdroid/internal/ui"
)

// renderEvent formats one loop event for the terminal. The run command
// prints these directly; the REPL appends them to its viewport.
func renderEvent(e agent.Event) string {
	switch e.Kind {
	case agent.EventObservation:
		return ui.ObservationStyle.Render(fmt.Sprintf("[%d] ", e.Iteration)) +
			ui.SystemStyle.Render(e.Text)
	case agent.EventThinking:
		return ui.ThinkingStyle.Render("opdroid: ") + e.Text
	case agent.EventToolCall:
		args := e.Args
		if args == "{}" {
			args = ""
		}
		return ui.ActionStyle.Render(fmt.Sprintf("  %s %s(%s)", ui.SymbolArrow, e.Tool, args))
	case agent.EventToolResult:
		if e.IsError {
			return ui.ErrorStyle.Render("  " + ui.SymbolCross + " " + e.Text)
		}
		return ui.ResultStyle.Render("  " + ui.SymbolCheck + " " + e.Text)
	case agent.EventRetry:
		return ui.SystemStyle.Render(fmt.Sprintf("  rate limited, retrying in %s", e.Wait))
	case agent.EventDone:
		return ui.TitleStyle.Render(e.Text)
	}
	return e.Text
}
