package auth

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shikhr/opdroid/internal/llm"
	"github.com/shikhr/opdroid/internal/testutil"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mgr, err := NewManager(testutil.TempDir(t))
	require.NoError(t, err)
	return mgr
}

func TestGetAPIKeyFromEnv(t *testing.T) {
	testutil.ClearProviderEnv(t)
	mgr := newTestManager(t)

	testutil.SetEnv(t, "ANTHROPIC_API_KEY", "sk-ant-env")

	key, err := mgr.GetAPIKey(llm.ProviderAnthropic)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-env", key)
}

func TestGetAPIKeyFromStore(t *testing.T) {
	testutil.ClearProviderEnv(t)
	mgr := newTestManager(t)

	require.NoError(t, mgr.SetAPIKey(llm.ProviderOpenAI, "sk-stored"))

	key, err := mgr.GetAPIKey(llm.ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, "sk-stored", key)
}

func TestGetAPIKeyEnvTakesPriority(t *testing.T) {
	testutil.ClearProviderEnv(t)
	mgr := newTestManager(t)

	require.NoError(t, mgr.SetAPIKey(llm.ProviderAnthropic, "sk-stored"))
	testutil.SetEnv(t, "ANTHROPIC_API_KEY", "sk-env")

	key, err := mgr.GetAPIKey(llm.ProviderAnthropic)
	require.NoError(t, err)
	assert.Equal(t, "sk-env", key)
}

func TestGetAPIKeyFromConfig(t *testing.T) {
	testutil.ClearProviderEnv(t)
	mgr := newTestManager(t)

	viper.Set("llm.providers.gemini.api_key", "config-key")
	t.Cleanup(func() { viper.Set("llm.providers.gemini.api_key", "") })

	key, err := mgr.GetAPIKey(llm.ProviderGemini)
	require.NoError(t, err)
	assert.Equal(t, "config-key", key)
}

func TestGetAPIKeyConfigEnvSubstitution(t *testing.T) {
	testutil.ClearProviderEnv(t)
	mgr := newTestManager(t)

	testutil.SetEnv(t, "MY_SECRET_KEY", "substituted")
	viper.Set("llm.providers.openrouter.api_key", "{env:MY_SECRET_KEY}")
	t.Cleanup(func() { viper.Set("llm.providers.openrouter.api_key", "") })

	key, err := mgr.GetAPIKey(llm.ProviderOpenRouter)
	require.NoError(t, err)
	assert.Equal(t, "substituted", key)
}

func TestGetAPIKeyMissing(t *testing.T) {
	testutil.ClearProviderEnv(t)
	mgr := newTestManager(t)

	_, err := mgr.GetAPIKey(llm.ProviderAnthropic)
	assert.Error(t, err)
	assert.False(t, mgr.HasCredential(llm.ProviderAnthropic))
}

func TestListConnected(t *testing.T) {
	testutil.ClearProviderEnv(t)
	mgr := newTestManager(t)

	assert.Empty(t, mgr.ListConnected())

	require.NoError(t, mgr.SetAPIKey(llm.ProviderGemini, "k1"))
	testutil.SetEnv(t, "OPENAI_API_KEY", "k2")

	connected := mgr.ListConnected()
	// Priority order is preserved.
	assert.Equal(t, []llm.ProviderID{llm.ProviderOpenAI, llm.ProviderGemini}, connected)
}

func TestRemoveCredential(t *testing.T) {
	testutil.ClearProviderEnv(t)
	mgr := newTestManager(t)

	require.NoError(t, mgr.SetAPIKey(llm.ProviderAnthropic, "k"))
	assert.True(t, mgr.HasCredential(llm.ProviderAnthropic))

	require.NoError(t, mgr.RemoveCredential(llm.ProviderAnthropic))
	assert.False(t, mgr.HasCredential(llm.ProviderAnthropic))
}

func TestDefaultProvider(t *testing.T) {
	mgr := newTestManager(t)

	assert.Equal(t, llm.ProviderAnthropic, mgr.GetDefaultProvider())
	require.NoError(t, mgr.SetDefaultProvider(llm.ProviderOpenRouter))
	assert.Equal(t, llm.ProviderOpenRouter, mgr.GetDefaultProvider())
}

func TestResolveEnvSubstitution(t *testing.T) {
	testutil.SetEnv(t, "SUBST_A", "alpha")

	assert.Equal(t, "plain", resolveEnvSubstitution("plain"))
	assert.Equal(t, "alpha", resolveEnvSubstitution("{env:SUBST_A}"))
	assert.Equal(t, "", resolveEnvSubstitution("{env:SUBST_MISSING}"))
}
