package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/liushuangls/go-anthropic/v2"
)

// AnthropicProvider implements the Provider interface for Anthropic Claude
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// AnthropicModels lists available Anthropic models
var AnthropicModels = []Model{
	{
		ID:             "claude-sonnet-4-20250514",
		Name:           "Claude Sonnet 4",
		ContextWindow:  200000,
		InputCost:      3.0,
		OutputCost:     15.0,
		SupportsTools:  true,
		SupportsVision: true,
	},
	{
		ID:             "claude-3-5-sonnet-20241022",
		Name:           "Claude 3.5 Sonnet",
		ContextWindow:  200000,
		InputCost:      3.0,
		OutputCost:     15.0,
		SupportsTools:  true,
		SupportsVision: true,
	},
	{
		ID:             "claude-3-5-haiku-20241022",
		Name:           "Claude 3.5 Haiku",
		ContextWindow:  200000,
		InputCost:      0.80,
		OutputCost:     4.0,
		SupportsTools:  true,
		SupportsVision: true,
	},
	{
		ID:             "claude-3-opus-20240229",
		Name:           "Claude 3 Opus",
		ContextWindow:  200000,
		InputCost:      15.0,
		OutputCost:     75.0,
		SupportsTools:  true,
		SupportsVision: true,
	},
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(apiKey string, model string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := anthropic.NewClient(apiKey)

	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	return &AnthropicProvider{
		client: client,
		model:  model,
	}, nil
}

// ID returns the provider identifier
func (p *AnthropicProvider) ID() ProviderID {
	return ProviderAnthropic
}

// Name returns the human-readable provider name
func (p *AnthropicProvider) Name() string {
	return "Anthropic"
}

// SupportsTools returns true - Anthropic supports tool use
func (p *AnthropicProvider) SupportsTools() bool {
	return true
}

// SupportsVision returns true - Anthropic accepts image content blocks
func (p *AnthropicProvider) SupportsVision() bool {
	return true
}

// Models returns available models
func (p *AnthropicProvider) Models() []Model {
	return AnthropicModels
}

// DefaultModel returns the default model
func (p *AnthropicProvider) DefaultModel() string {
	return p.model
}

// SetModel switches the active model after validating the ID
func (p *AnthropicProvider) SetModel(modelID string) error {
	if err := ValidateModelID(modelID, p.Models()); err != nil {
		return err
	}
	p.model = modelID
	return nil
}

// Chat sends the conversation window and returns the response
func (p *AnthropicProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	system, messages := buildAnthropicMessages(req.Turns)

	// Convert tools to Anthropic format
	anthropicTools := make([]anthropic.ToolDefinition, len(req.Tools))
	for i, tool := range req.Tools {
		anthropicTools[i] = anthropic.ToolDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}
	}

	anthropicReq := anthropic.MessagesRequest{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		System:    system,
		Messages:  messages,
	}

	if len(anthropicTools) > 0 {
		anthropicReq.Tools = anthropicTools
	}

	resp, err := p.client.CreateMessages(ctx, anthropicReq)
	if err != nil {
		if isAnthropicRateLimit(err) {
			return nil, &RateLimitError{Provider: ProviderAnthropic, Err: err}
		}
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	response := &ChatResponse{
		StopReason: string(resp.StopReason),
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}

	// Parse response content
	for _, content := range resp.Content {
		switch content.Type {
		case anthropic.MessagesContentTypeText:
			if content.Text != nil {
				response.Content = *content.Text
			}
		case anthropic.MessagesContentTypeToolUse:
			response.ToolCalls = append(response.ToolCalls, ToolCall{
				ID:    content.ID,
				Name:  content.Name,
				Input: content.Input,
			})
		}
	}

	return response, nil
}

// buildAnthropicMessages converts a turn window into Anthropic messages,
// lifting system turns into the dedicated system string. Adjacent
// messages with the same role are merged because the Messages API
// expects user/assistant alternation; the merge also keeps tool_result
// blocks ahead of the text and image blocks of the following user turn.
func buildAnthropicMessages(turns []Turn) (string, []anthropic.Message) {
	var system string
	var messages []anthropic.Message

	appendContent := func(role anthropic.ChatRole, contents ...anthropic.MessageContent) {
		if len(contents) == 0 {
			return
		}
		if n := len(messages); n > 0 && messages[n-1].Role == role {
			messages[n-1].Content = append(messages[n-1].Content, contents...)
			return
		}
		messages = append(messages, anthropic.Message{Role: role, Content: contents})
	}

	for _, turn := range turns {
		switch t := turn.(type) {
		case SystemTurn:
			if system == "" {
				system = t.Text
			} else {
				system += "\n\n" + t.Text
			}
		case UserTurn:
			var contents []anthropic.MessageContent
			if text := t.PromptText(); text != "" {
				contents = append(contents, anthropic.NewTextMessageContent(text))
			}
			if t.Image != nil {
				contents = append(contents, anthropic.NewImageMessageContent(
					anthropic.NewMessageContentSource(
						anthropic.MessagesContentSourceTypeBase64,
						t.Image.MediaType,
						t.Image.Base64(),
					),
				))
			}
			appendContent(anthropic.RoleUser, contents...)
		case AssistantTurn:
			var contents []anthropic.MessageContent
			if t.Text != "" {
				contents = append(contents, anthropic.NewTextMessageContent(t.Text))
			}
			for _, tc := range t.ToolCalls {
				contents = append(contents, anthropic.NewToolUseMessageContent(tc.ID, tc.Name, tc.Input))
			}
			appendContent(anthropic.RoleAssistant, contents...)
		case ToolResultTurn:
			appendContent(anthropic.RoleUser, anthropic.NewToolResultMessageContent(t.CallID, t.Text, false))
		}
	}

	return system, messages
}

func isAnthropicRateLimit(err error) bool {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) && apiErr.IsRateLimitErr() {
		return true
	}
	var reqErr *anthropic.RequestError
	return errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusTooManyRequests
}
