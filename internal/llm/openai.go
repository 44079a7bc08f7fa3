package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface for OpenAI.
// The id field lets OpenAI-compatible wrappers (OpenRouter) keep their
// own identity on errors surfaced from the shared Chat path.
type OpenAIProvider struct {
	client  *openai.Client
	id      ProviderID
	model   string
	baseURL string
}

// OpenAIModels lists available OpenAI models
var OpenAIModels = []Model{
	{
		ID:             "gpt-4o",
		Name:           "GPT-4o",
		ContextWindow:  128000,
		InputCost:      2.50,
		OutputCost:     10.0,
		SupportsTools:  true,
		SupportsVision: true,
	},
	{
		ID:             "gpt-4o-mini",
		Name:           "GPT-4o Mini",
		ContextWindow:  128000,
		InputCost:      0.15,
		OutputCost:     0.60,
		SupportsTools:  true,
		SupportsVision: true,
	},
	{
		ID:             "gpt-4-turbo",
		Name:           "GPT-4 Turbo",
		ContextWindow:  128000,
		InputCost:      10.0,
		OutputCost:     30.0,
		SupportsTools:  true,
		SupportsVision: true,
	},
	{
		ID:            "gpt-3.5-turbo",
		Name:          "GPT-3.5 Turbo",
		ContextWindow: 16385,
		InputCost:     0.50,
		OutputCost:    1.50,
		SupportsTools: true,
	},
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, model string, baseURL string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	client := openai.NewClientWithConfig(config)

	if model == "" {
		model = "gpt-4o"
	}

	return &OpenAIProvider{
		client:  client,
		id:      ProviderOpenAI,
		model:   model,
		baseURL: baseURL,
	}, nil
}

// ID returns the provider identifier
func (p *OpenAIProvider) ID() ProviderID {
	return p.id
}

// Name returns the human-readable provider name
func (p *OpenAIProvider) Name() string {
	return "OpenAI"
}

// SupportsTools returns true - OpenAI supports function calling
func (p *OpenAIProvider) SupportsTools() bool {
	return true
}

// SupportsVision returns true - OpenAI accepts image_url content parts
func (p *OpenAIProvider) SupportsVision() bool {
	return true
}

// Models returns available models
func (p *OpenAIProvider) Models() []Model {
	return OpenAIModels
}

// DefaultModel returns the default model
func (p *OpenAIProvider) DefaultModel() string {
	return p.model
}

// SetModel switches the active model after validating the ID
func (p *OpenAIProvider) SetModel(modelID string) error {
	if err := ValidateModelID(modelID, p.Models()); err != nil {
		return err
	}
	p.model = modelID
	return nil
}

// Chat sends the conversation window and returns the response
func (p *OpenAIProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	messages := buildOpenAIMessages(req.Turns)

	// Convert tools to OpenAI format
	var tools []openai.Tool
	for _, tool := range req.Tools {
		var params map[string]interface{}
		_ = json.Unmarshal(tool.InputSchema, &params) // Schema already validated at registration

		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			},
		})
	}

	openaiReq := openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  messages,
	}

	if len(tools) > 0 {
		openaiReq.Tools = tools
	}

	if tc := mapToolChoice(req.ToolChoice, len(tools) > 0); tc != nil {
		openaiReq.ToolChoice = tc
	}

	resp, err := p.client.CreateChatCompletion(ctx, openaiReq)
	if err != nil {
		if isOpenAIRateLimit(err) {
			return nil, &RateLimitError{Provider: p.ID(), Err: err}
		}
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	response := &ChatResponse{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}

	// Parse tool calls
	for _, tc := range choice.Message.ToolCalls {
		if tc.Type == openai.ToolTypeFunction {
			response.ToolCalls = append(response.ToolCalls, ToolCall{
				ID:    tc.ID,
				Name:  tc.Function.Name,
				Input: json.RawMessage(tc.Function.Arguments),
			})
		}
	}

	return response, nil
}

// buildOpenAIMessages converts a turn window into chat completion
// messages. User turns with an image become multi-part content with the
// screenshot attached as a high-detail data URL.
func buildOpenAIMessages(turns []Turn) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns))

	for _, turn := range turns {
		switch t := turn.(type) {
		case SystemTurn:
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: t.Text,
			})
		case UserTurn:
			if t.Image == nil {
				messages = append(messages, openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleUser,
					Content: t.PromptText(),
				})
				continue
			}
			var parts []openai.ChatMessagePart
			if text := t.PromptText(); text != "" {
				parts = append(parts, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: text,
				})
			}
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    t.Image.DataURL(),
					Detail: openai.ImageURLDetailHigh,
				},
			})
			messages = append(messages, openai.ChatCompletionMessage{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			})
		case AssistantTurn:
			msg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: t.Text,
			}
			for _, tc := range t.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Input),
					},
				})
			}
			messages = append(messages, msg)
		case ToolResultTurn:
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    t.Text,
				ToolCallID: t.CallID,
			})
		}
	}

	return messages
}

func mapToolChoice(choice ToolChoice, hasTools bool) any {
	// If no tools are present, tool choice is irrelevant.
	if !hasTools {
		return nil
	}

	switch choice.Mode {
	case ToolChoiceNone:
		return "none"
	case ToolChoiceForce:
		if choice.Name == "" {
			return nil
		}
		return openai.ToolChoice{
			Type: openai.ToolTypeFunction,
			Function: openai.ToolFunction{
				Name: choice.Name,
			},
		}
	default: // auto (zero value)
		return "auto"
	}
}

func isOpenAIRateLimit(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var reqErr *openai.RequestError
	return errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests
}
