package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/shikhr/opdroid/internal/auth"
	"github.com/shikhr/opdroid/internal/config"
	"github.com/shikhr/opdroid/internal/llm"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage LLM provider authentication",
	Long:  `Connect, disconnect, and manage API keys for LLM providers.`,
}

var authConnectCmd = &cobra.Command{
	Use:   "connect [provider]",
	Short: "Connect to an LLM provider",
	Long: `Connect to an LLM provider by providing an API key.

Supported providers:
  anthropic   - Anthropic Claude
  openai      - OpenAI GPT
  gemini      - Google Gemini
  openrouter  - OpenRouter (many models, one key)`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthConnect,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List connected providers",
	RunE:  runAuthList,
}

var authDisconnectCmd = &cobra.Command{
	Use:   "disconnect <provider>",
	Short: "Disconnect from a provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthDisconnect,
}

var authDefaultCmd = &cobra.Command{
	Use:   "default [provider]",
	Short: "Get or set the default provider",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthDefault,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authConnectCmd)
	authCmd.AddCommand(authListCmd)
	authCmd.AddCommand(authDisconnectCmd)
	authCmd.AddCommand(authDefaultCmd)

	authConnectCmd.Flags().String("key", "", "API key (will prompt if not provided)")
}

func getAuthManager() (*auth.Manager, error) {
	dataDir, err := config.DataDir()
	if err != nil {
		return nil, err
	}
	return auth.NewManager(dataDir)
}

func parseProviderID(arg string) (llm.ProviderID, error) {
	id := llm.ProviderID(strings.ToLower(arg))
	for _, p := range llm.AllProviderIDs() {
		if p == id {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown provider: %s", arg)
}

func runAuthConnect(cmd *cobra.Command, args []string) error {
	var providerID llm.ProviderID

	if len(args) == 0 {
		// Interactive provider selection
		fmt.Println("Select a provider to connect:")
		providers := llm.AllProviderIDs()
		for i, p := range providers {
			fmt.Printf("  %d. %s\n", i+1, p)
		}
		fmt.Print("\nEnter number: ")

		var choice int
		_, _ = fmt.Scanln(&choice)
		if choice < 1 || choice > len(providers) {
			return fmt.Errorf("invalid selection")
		}
		providerID = providers[choice-1]
	} else {
		var err error
		providerID, err = parseProviderID(args[0])
		if err != nil {
			return err
		}
	}

	manager, err := getAuthManager()
	if err != nil {
		return err
	}

	apiKey, _ := cmd.Flags().GetString("key")
	if apiKey == "" {
		if envVar := llm.EnvVarForProvider(providerID); envVar != "" {
			fmt.Printf("Tip: You can also set the %s environment variable\n\n", envVar)
		}

		fmt.Printf("Enter API key for %s: ", providerID)
		keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		apiKey = string(keyBytes)
	}

	if apiKey == "" {
		return fmt.Errorf("API key is required")
	}

	if err := manager.SetAPIKey(providerID, apiKey); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	fmt.Printf("✓ Successfully connected to %s\n", providerID)
	return nil
}

func runAuthList(cmd *cobra.Command, args []string) error {
	manager, err := getAuthManager()
	if err != nil {
		return err
	}

	connected := manager.ListConnected()
	defaultProvider := manager.GetDefaultProvider()

	if len(connected) == 0 {
		fmt.Println("No providers connected.")
		fmt.Println("\nUse 'opdroid auth connect <provider>' to connect a provider.")
		fmt.Println("Or set environment variables:")
		for _, id := range llm.AllProviderIDs() {
			if envVar := llm.EnvVarForProvider(id); envVar != "" {
				fmt.Printf("  %s=%s\n", envVar, id)
			}
		}
		return nil
	}

	fmt.Println("Connected providers:")
	for _, id := range connected {
		marker := "  "
		if id == defaultProvider {
			marker = "* "
		}
		fmt.Printf("%s%s\n", marker, id)
	}

	fmt.Printf("\n* = default provider\n")
	return nil
}

func runAuthDisconnect(cmd *cobra.Command, args []string) error {
	providerID, err := parseProviderID(args[0])
	if err != nil {
		return err
	}

	manager, err := getAuthManager()
	if err != nil {
		return err
	}

	if err := manager.RemoveCredential(providerID); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}

	fmt.Printf("Disconnected from %s\n", providerID)
	return nil
}

func runAuthDefault(cmd *cobra.Command, args []string) error {
	manager, err := getAuthManager()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		fmt.Printf("Default provider: %s\n", manager.GetDefaultProvider())
		return nil
	}

	providerID, err := parseProviderID(args[0])
	if err != nil {
		return err
	}

	if !manager.HasCredential(providerID) {
		return fmt.Errorf("provider %s is not connected. Connect it first with 'opdroid auth connect %s'", providerID, providerID)
	}

	if err := manager.SetDefaultProvider(providerID); err != nil {
		return fmt.Errorf("failed to set default provider: %w", err)
	}

	fmt.Printf("Default provider set to: %s\n", providerID)
	return nil
}
