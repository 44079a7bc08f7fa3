package agent

import "time"

// EventKind tags an Event for UI rendering.
type EventKind string

const (
	EventObservation EventKind = "observation"
	EventThinking    EventKind = "thinking"
	EventToolCall    EventKind = "tool_call"
	EventToolResult  EventKind = "tool_result"
	EventRetry       EventKind = "retry"
	EventDone        EventKind = "done"
)

// Event is one step of a run, emitted for live rendering. The loop
// never blocks on the sink; callers hand in a callback and fan events
// into whatever UI they drive.
type Event struct {
	Kind      EventKind
	Iteration int

	// Text carries the human-readable payload: the screen summary for
	// observations, the assistant's thought, a tool result, or the
	// final summary.
	Text string

	Tool    string // tool name for tool_call / tool_result
	Args    string // compact argument JSON for tool_call
	IsError bool   // tool_result only

	Wait time.Duration // retry only
}

func (a *Agent) emit(e Event) {
	if a.onEvent != nil {
		a.onEvent(e)
	}
}
