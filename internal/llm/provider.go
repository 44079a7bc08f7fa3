package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ProviderID represents a unique provider identifier
type ProviderID string

const (
	ProviderAnthropic  ProviderID = "anthropic"
	ProviderOpenAI     ProviderID = "openai"
	ProviderGemini     ProviderID = "gemini"
	ProviderOpenRouter ProviderID = "openrouter"
)

// Provider is the interface all LLM providers must implement
type Provider interface {
	// ID returns the unique provider identifier
	ID() ProviderID

	// Name returns the human-readable provider name
	Name() string

	// Chat sends the full conversation window and returns the reply.
	// The window may contain system, user, assistant and tool result
	// turns; each provider maps them onto its own wire format.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// SupportsTools returns true if provider supports tool use
	SupportsTools() bool

	// SupportsVision returns true if provider accepts image attachments
	SupportsVision() bool

	// Models returns available models for this provider
	Models() []Model

	// DefaultModel returns the default model for this provider
	DefaultModel() string

	// SetModel switches the active model. Returns error if model ID is not
	// in the provider's supported model list.
	SetModel(modelID string) error
}

// Model represents an available model
type Model struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	ContextWindow  int     `json:"context_window"`
	InputCost      float64 `json:"input_cost"`  // per 1M tokens
	OutputCost     float64 `json:"output_cost"` // per 1M tokens
	SupportsTools  bool    `json:"supports_tools"`
	SupportsVision bool    `json:"supports_vision"`
}

// ToolCall represents a tool call from the model
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolChoiceMode selects how the model may use tools for one request.
type ToolChoiceMode int

const (
	// ToolChoiceAuto lets the model decide. Zero value.
	ToolChoiceAuto ToolChoiceMode = iota
	// ToolChoiceNone disables tool use for the request.
	ToolChoiceNone
	// ToolChoiceForce requires the model to call the named tool.
	ToolChoiceForce
)

// ToolChoice constrains tool use for a single request.
type ToolChoice struct {
	Mode ToolChoiceMode `json:"mode"`
	Name string         `json:"name,omitempty"`
}

// ChatRequest is a provider-agnostic chat request
type ChatRequest struct {
	Turns      []Turn     `json:"turns"`
	Tools      []Tool     `json:"tools,omitempty"`
	Model      string     `json:"model,omitempty"` // Uses default if empty
	ToolChoice ToolChoice `json:"tool_choice,omitempty"`
	MaxTokens  int        `json:"max_tokens,omitempty"`
}

// ChatResponse is a provider-agnostic chat response
type ChatResponse struct {
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	StopReason string     `json:"stop_reason"`
	Usage      Usage      `json:"usage"`
}

// Usage tracks token usage
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// RateLimitError wraps a provider 429 so callers can tell throttling
// apart from fatal provider errors.
type RateLimitError struct {
	Provider ProviderID
	Err      error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited: %v", e.Provider, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

var waitHintPattern = regexp.MustCompile(`try again in ([\d.]+)s`)

// SuggestedWait extracts the retry hint some providers embed in 429
// bodies. The returned duration includes a one second pad on top of
// the hinted value.
func (e *RateLimitError) SuggestedWait() (time.Duration, bool) {
	if e.Err == nil {
		return 0, false
	}
	m := waitHintPattern.FindStringSubmatch(e.Err.Error())
	if m == nil {
		return 0, false
	}
	secs, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration((secs + 1) * float64(time.Second)), true
}

// IsRateLimit reports whether err is, or wraps, a RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// EnvVarForProvider returns the environment variable name for a provider's API key
func EnvVarForProvider(id ProviderID) string {
	switch id {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GOOGLE_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	default:
		return ""
	}
}

// AllProviderIDs returns all known provider IDs in priority order
func AllProviderIDs() []ProviderID {
	return []ProviderID{
		ProviderAnthropic,
		ProviderOpenAI,
		ProviderGemini,
		ProviderOpenRouter,
	}
}

// ValidateModelID checks whether modelID exists in the given model list.
func ValidateModelID(modelID string, models []Model) error {
	for _, m := range models {
		if m.ID == modelID {
			return nil
		}
	}
	return fmt.Errorf("unknown model %q for this provider", modelID)
}
