// Package testutil holds helpers shared by tests across packages.
package testutil

import (
	"os"
	"testing"

	"github.com/shikhr/opdroid/internal/llm"
)

// TempDir creates a temporary data directory for a test and registers
// cleanup. Used as a throwaway ~/.opdroid so tests never touch the real
// auth store or run ledger.
func TempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "opdroid-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})
	return dir
}

// SetEnv sets an environment variable and restores it after the test
func SetEnv(t *testing.T, key, value string) {
	t.Helper()
	old, hadOld := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env var %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadOld {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

// UnsetEnv unsets an environment variable and restores it after the test
func UnsetEnv(t *testing.T, key string) {
	t.Helper()
	old, hadOld := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env var %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadOld {
			_ = os.Setenv(key, old)
		}
	})
}

// ClearProviderEnv unsets every provider API key variable so key
// resolution tests see only what they store themselves.
func ClearProviderEnv(t *testing.T) {
	t.Helper()
	for _, id := range llm.AllProviderIDs() {
		UnsetEnv(t, llm.EnvVarForProvider(id))
	}
}
