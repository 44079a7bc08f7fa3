//go:build integration
// +build integration

package llm

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func requireOpenRouter(t *testing.T, model string) (*OpenRouterProvider, context.Context) {
	t.Helper()

	key := os.Getenv("OPENROUTER_API_KEY")
	if key == "" {
		t.Skip("OPENROUTER_API_KEY not set; skipping live OpenRouter tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	t.Cleanup(cancel)

	p, err := NewOpenRouterProvider(key, model)
	require.NoError(t, err)
	return p, ctx
}

func tapTool() Tool {
	return NewTool("tap", "Tap on a grid cell", JSONSchema{
		Type: "object",
		Properties: map[string]Property{
			"position": {
				Type:        "string",
				Description: "Grid cell to tap, e.g. 'E10'",
			},
		},
		Required: []string{"position"},
	})
}

func TestOpenRouter_ToolCallForced(t *testing.T) {
	provider, ctx := requireOpenRouter(t, "openai/gpt-4o")

	req := &ChatRequest{
		Turns: []Turn{
			UserTurn{Text: "Call the tap tool with position \"B3\"."},
		},
		Tools:      []Tool{tapTool()},
		ToolChoice: ToolChoice{Mode: ToolChoiceForce, Name: "tap"},
		MaxTokens:  32,
	}

	resp, err := provider.Chat(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, resp.ToolCalls, "expected a tool call when forced")
	require.Equal(t, "tap", resp.ToolCalls[0].Name)
	require.NotEmpty(t, resp.ToolCalls[0].Input, "tool call should include arguments")
}

func TestOpenRouter_ToolResultRoundTrip(t *testing.T) {
	provider, ctx := requireOpenRouter(t, "openai/gpt-4o")

	initial := &ChatRequest{
		Turns: []Turn{
			UserTurn{Text: "Use the tap tool to tap position \"B3\"."},
		},
		Tools:      []Tool{tapTool()},
		ToolChoice: ToolChoice{Mode: ToolChoiceForce, Name: "tap"},
		MaxTokens:  32,
	}

	firstResp, err := provider.Chat(ctx, initial)
	require.NoError(t, err)
	require.NotEmpty(t, firstResp.ToolCalls)

	toolCall := firstResp.ToolCalls[0]

	followUp := &ChatRequest{
		Turns: []Turn{
			UserTurn{Text: "Use the tap tool to tap position \"B3\"."},
			AssistantTurn{ToolCalls: []ToolCall{toolCall}},
			ToolResultTurn{CallID: toolCall.ID, Name: toolCall.Name, Text: "Tapped at (100, 260)"},
			UserTurn{Text: "Describe what just happened in one sentence."},
		},
		Tools:     []Tool{tapTool()},
		MaxTokens: 64,
	}

	resp, err := provider.Chat(ctx, followUp)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Content)
}

func TestOpenRouter_PlainChat(t *testing.T) {
	provider, ctx := requireOpenRouter(t, "openai/gpt-4o-mini")

	req := &ChatRequest{
		Turns: []Turn{
			UserTurn{Text: "Say hello in five words."},
		},
		MaxTokens: 32,
	}

	resp, err := provider.Chat(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Content)
	require.Empty(t, resp.ToolCalls)
}
