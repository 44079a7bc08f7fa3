package agent

import (
	"context"
	"fmt"

	"github.com/shikhr/opdroid/internal/auth"
	"github.com/shikhr/opdroid/internal/llm"
)

// CreateProvider builds a provider from stored or environment
// credentials. model overrides the provider default when non-empty.
func CreateProvider(ctx context.Context, authManager *auth.Manager, providerID llm.ProviderID, model string) (llm.Provider, error) {
	key, err := authManager.GetAPIKey(providerID)
	if err != nil {
		return nil, err
	}

	var provider llm.Provider
	switch providerID {
	case llm.ProviderAnthropic:
		provider, err = llm.NewAnthropicProvider(key, model)
	case llm.ProviderOpenAI:
		provider, err = llm.NewOpenAIProvider(key, model, "")
	case llm.ProviderGemini:
		provider, err = llm.NewGeminiProvider(ctx, key, model)
	case llm.ProviderOpenRouter:
		provider, err = llm.NewOpenRouterProvider(key, model)
	default:
		return nil, fmt.Errorf("unknown provider: %s", providerID)
	}
	if err != nil {
		return nil, err
	}

	if err := llm.EnsureVisionAndTools(ctx, provider, provider.DefaultModel(), key); err != nil {
		return nil, err
	}
	return provider, nil
}

// ResolveProvider picks a provider. An explicit ID is used as-is.
// Otherwise every connected provider is constructed into a registry,
// the stored default is preferred, and the first connected provider
// that came up wins as a fallback.
func ResolveProvider(ctx context.Context, authManager *auth.Manager, providerID llm.ProviderID, model string) (llm.Provider, error) {
	if providerID != "" {
		return CreateProvider(ctx, authManager, providerID, model)
	}

	connected := authManager.ListConnected()
	if len(connected) == 0 {
		return nil, fmt.Errorf("no LLM providers connected. Run 'opdroid auth connect <provider>' or set an API key environment variable")
	}

	registry := llm.NewProviderRegistry()
	var firstErr error
	for _, pid := range connected {
		p, err := CreateProvider(ctx, authManager, pid, model)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		registry.Register(p)
	}

	if err := registry.SetDefault(authManager.GetDefaultProvider()); err == nil {
		return registry.GetDefault()
	}
	// Default provider did not come up; fall back to connected order.
	for _, pid := range connected {
		if p, err := registry.Get(pid); err == nil {
			return p, nil
		}
	}
	return nil, fmt.Errorf("failed to initialize any LLM provider: %w", firstErr)
}
