// Package setup provides the first-run wizard: pick an LLM provider,
// store a key, and verify an Android device is reachable.
package setup

import (
	"os"

	"github.com/shikhr/opdroid/internal/auth"
	"github.com/shikhr/opdroid/internal/config"
	"github.com/shikhr/opdroid/internal/llm"
	"golang.org/x/term"
)

// SetupStatus represents the current setup state
type SetupStatus struct {
	HasProvider bool
	IsComplete  bool
	ProviderID  llm.ProviderID
}

// DetectSetupStatus checks the current setup state
func DetectSetupStatus(dataDir string) (*SetupStatus, error) {
	status := &SetupStatus{}

	authManager, err := auth.NewManager(dataDir)
	if err != nil {
		return status, nil // No auth setup yet
	}

	connected := authManager.ListConnected()
	if len(connected) > 0 {
		status.HasProvider = true
		status.ProviderID = authManager.GetDefaultProvider()
		if !authManager.HasCredential(status.ProviderID) {
			status.ProviderID = connected[0]
		}
	}

	// A device can come and go; only the provider gates setup.
	status.IsComplete = status.HasProvider

	return status, nil
}

// NeedsSetup returns true if interactive setup should run
func NeedsSetup(dataDir string) bool {
	status, _ := DetectSetupStatus(dataDir)
	return !status.IsComplete
}

// GetDataDir returns the opdroid data directory path
func GetDataDir() (string, error) {
	return config.DataDir()
}

// IsInteractive returns true if running in a terminal
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
