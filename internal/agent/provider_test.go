package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shikhr/opdroid/internal/auth"
	"github.com/shikhr/opdroid/internal/llm"
	"github.com/shikhr/opdroid/internal/testutil"
)

func newAuthManager(t *testing.T) *auth.Manager {
	t.Helper()
	testutil.ClearProviderEnv(t)
	manager, err := auth.NewManager(testutil.TempDir(t))
	require.NoError(t, err)
	return manager
}

func TestCreateProvider(t *testing.T) {
	t.Run("builds the requested provider", func(t *testing.T) {
		manager := newAuthManager(t)
		require.NoError(t, manager.SetAPIKey(llm.ProviderAnthropic, "sk-ant-test"))

		provider, err := CreateProvider(context.Background(), manager, llm.ProviderAnthropic, "")
		require.NoError(t, err)
		assert.Equal(t, llm.ProviderAnthropic, provider.ID())
	})

	t.Run("honors a model override", func(t *testing.T) {
		manager := newAuthManager(t)
		require.NoError(t, manager.SetAPIKey(llm.ProviderOpenAI, "sk-test"))

		provider, err := CreateProvider(context.Background(), manager, llm.ProviderOpenAI, "gpt-4o-mini")
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o-mini", provider.DefaultModel())
	})

	t.Run("rejects a catalog model without vision", func(t *testing.T) {
		manager := newAuthManager(t)
		require.NoError(t, manager.SetAPIKey(llm.ProviderOpenAI, "sk-test"))

		_, err := CreateProvider(context.Background(), manager, llm.ProviderOpenAI, "gpt-3.5-turbo")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "vision")
	})

	t.Run("errors without a credential", func(t *testing.T) {
		manager := newAuthManager(t)

		_, err := CreateProvider(context.Background(), manager, llm.ProviderAnthropic, "")
		assert.Error(t, err)
	})
}

func TestResolveProvider(t *testing.T) {
	t.Run("explicit ID wins", func(t *testing.T) {
		manager := newAuthManager(t)
		require.NoError(t, manager.SetAPIKey(llm.ProviderAnthropic, "sk-ant-test"))
		require.NoError(t, manager.SetAPIKey(llm.ProviderOpenAI, "sk-test"))
		require.NoError(t, manager.SetDefaultProvider(llm.ProviderAnthropic))

		provider, err := ResolveProvider(context.Background(), manager, llm.ProviderOpenAI, "")
		require.NoError(t, err)
		assert.Equal(t, llm.ProviderOpenAI, provider.ID())
	})

	t.Run("empty ID resolves the stored default", func(t *testing.T) {
		manager := newAuthManager(t)
		require.NoError(t, manager.SetAPIKey(llm.ProviderAnthropic, "sk-ant-test"))
		require.NoError(t, manager.SetAPIKey(llm.ProviderOpenAI, "sk-test"))
		require.NoError(t, manager.SetDefaultProvider(llm.ProviderOpenAI))

		provider, err := ResolveProvider(context.Background(), manager, "", "")
		require.NoError(t, err)
		assert.Equal(t, llm.ProviderOpenAI, provider.ID())
	})

	t.Run("falls back when the default is not connected", func(t *testing.T) {
		manager := newAuthManager(t)
		require.NoError(t, manager.SetAPIKey(llm.ProviderOpenAI, "sk-test"))
		// Default stays anthropic, which has no credential.

		provider, err := ResolveProvider(context.Background(), manager, "", "")
		require.NoError(t, err)
		assert.Equal(t, llm.ProviderOpenAI, provider.ID())
	})

	t.Run("errors when nothing is connected", func(t *testing.T) {
		manager := newAuthManager(t)

		_, err := ResolveProvider(context.Background(), manager, "", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no LLM providers connected")
	})
}
