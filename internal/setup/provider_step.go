package setup

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shikhr/opdroid/internal/auth"
	"github.com/shikhr/opdroid/internal/llm"
)

// validateKey proves the entered key works by issuing a tiny chat
// request before anything is written to disk.
func (m WizardModel) validateKey() tea.Cmd {
	apiKey := m.apiKeyInput.Value()
	providerID := m.selectedProvider

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var (
			provider llm.Provider
			err      error
		)
		switch providerID {
		case llm.ProviderAnthropic:
			provider, err = llm.NewAnthropicProvider(apiKey, "")
		case llm.ProviderOpenAI:
			provider, err = llm.NewOpenAIProvider(apiKey, "", "")
		case llm.ProviderGemini:
			provider, err = llm.NewGeminiProvider(ctx, apiKey, "")
		case llm.ProviderOpenRouter:
			provider, err = llm.NewOpenRouterProvider(apiKey, "")
		default:
			err = fmt.Errorf("unknown provider: %s", providerID)
		}
		if err != nil {
			return keyValidatedMsg{err: err}
		}

		_, err = provider.Chat(ctx, &llm.ChatRequest{
			Turns:     []llm.Turn{llm.UserTurn{Text: "Say 'ok' and nothing else."}},
			MaxTokens: 10,
		})
		if gemini, ok := provider.(*llm.GeminiProvider); ok {
			_ = gemini.Close()
		}
		if err != nil {
			return keyValidatedMsg{err: fmt.Errorf("API test failed: %w", err)}
		}

		return keyValidatedMsg{success: true}
	}
}

// saveProviderKey writes the validated key to the auth store and makes
// the provider the default.
func (m WizardModel) saveProviderKey() error {
	authManager, err := auth.NewManager(m.dataDir)
	if err != nil {
		return fmt.Errorf("failed to create auth manager: %w", err)
	}

	if err := authManager.SetAPIKey(m.selectedProvider, m.apiKeyInput.Value()); err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}
	if err := authManager.SetDefaultProvider(m.selectedProvider); err != nil {
		return fmt.Errorf("failed to set default provider: %w", err)
	}
	return nil
}
