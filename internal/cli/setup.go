package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shikhr/opdroid/internal/setup"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Run the setup wizard",
	Long: `Run the interactive setup wizard to configure opdroid.

This command guides you through:
  - Connecting an LLM provider (Anthropic, OpenAI, Gemini, OpenRouter)
  - Checking for a connected Android device

Use this command to reconfigure opdroid or switch providers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !setup.IsInteractive() {
			setup.PrintEnvInstructions()
			return fmt.Errorf("setup requires an interactive terminal")
		}

		result, err := setup.RunWizard()
		if err != nil {
			return fmt.Errorf("setup failed: %w", err)
		}

		if result == nil || result.Cancelled {
			return nil
		}

		fmt.Println("\nSetup complete! Run 'opdroid' to start.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
