// Package auth stores and resolves LLM provider API keys.
package auth

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/shikhr/opdroid/internal/llm"
)

// Manager handles authentication for LLM providers.
type Manager struct {
	store *Store
}

// NewManager creates a new auth manager backed by dataDir/auth.json.
func NewManager(dataDir string) (*Manager, error) {
	store, err := NewStore(dataDir)
	if err != nil {
		return nil, err
	}
	return &Manager{store: store}, nil
}

// GetAPIKey returns the API key for a provider using priority
// resolution: environment variable, then config file (with env
// substitution), then the stored auth.json.
func (m *Manager) GetAPIKey(providerID llm.ProviderID) (string, error) {
	if envVar := llm.EnvVarForProvider(providerID); envVar != "" {
		if key := os.Getenv(envVar); key != "" {
			return key, nil
		}
	}

	configKey := fmt.Sprintf("llm.providers.%s.api_key", providerID)
	if key := viper.GetString(configKey); key != "" {
		if resolved := resolveEnvSubstitution(key); resolved != "" {
			return resolved, nil
		}
	}

	cred, err := m.store.GetCredential(providerID)
	if err == nil && cred.Key != "" {
		return cred.Key, nil
	}

	return "", fmt.Errorf("no API key found for provider: %s", providerID)
}

// SetAPIKey stores an API key for a provider.
func (m *Manager) SetAPIKey(providerID llm.ProviderID, key string) error {
	return m.store.SetCredential(providerID, Credential{Key: key})
}

// RemoveCredential removes stored credentials for a provider.
func (m *Manager) RemoveCredential(providerID llm.ProviderID) error {
	return m.store.RemoveCredential(providerID)
}

// HasCredential checks if a provider has a resolvable key anywhere.
func (m *Manager) HasCredential(providerID llm.ProviderID) bool {
	key, err := m.GetAPIKey(providerID)
	return err == nil && key != ""
}

// ListConnected returns all providers with credentials, in priority
// order.
func (m *Manager) ListConnected() []llm.ProviderID {
	connected := make([]llm.ProviderID, 0)
	for _, id := range llm.AllProviderIDs() {
		if m.HasCredential(id) {
			connected = append(connected, id)
		}
	}
	return connected
}

// GetDefaultProvider returns the default provider ID.
func (m *Manager) GetDefaultProvider() llm.ProviderID {
	return m.store.GetDefaultProvider()
}

// SetDefaultProvider sets the default provider.
func (m *Manager) SetDefaultProvider(providerID llm.ProviderID) error {
	return m.store.SetDefaultProvider(providerID)
}

var envSubstPattern = regexp.MustCompile(`\{env:([^}]+)\}`)

// resolveEnvSubstitution replaces {env:VAR_NAME} with environment
// variable values, so config files can reference keys without holding
// them.
func resolveEnvSubstitution(value string) string {
	if !strings.Contains(value, "{env:") {
		return value
	}
	return envSubstPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[5 : len(match)-1]
		return os.Getenv(varName)
	})
}
