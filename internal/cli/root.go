// Package cli wires the cobra command tree: the REPL on bare
// invocation, one-shot runs, device utilities, auth management, and the
// MCP server.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shikhr/opdroid/internal/config"
	"github.com/shikhr/opdroid/internal/observability"
	"github.com/shikhr/opdroid/internal/setup"
)

// Version is stamped by the build; "dev" for local builds.
var Version = "dev"

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "opdroid",
		Short: "Control an Android device with natural language",
		Long: `opdroid drives a real Android device from the terminal.

It screenshots the phone, overlays a coordinate grid, and asks a vision
LLM what to do next. The model taps, swipes, and types through adb until
your objective is done. It can also serve the same toolset to any MCP
client.`,
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, err := config.DataDir()
			if err != nil {
				return fmt.Errorf("failed to get data directory: %w", err)
			}

			if setup.NeedsSetup(dataDir) {
				if !setup.IsInteractive() {
					setup.PrintEnvInstructions()
					return fmt.Errorf("setup required: run opdroid interactively or set environment variables")
				}

				result, err := setup.RunWizard()
				if err != nil {
					return fmt.Errorf("setup failed: %w", err)
				}
				if result == nil || result.Cancelled {
					return nil
				}
			}

			return RunREPL()
		},
	}
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the opdroid version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("opdroid %s\n", Version)
	},
}

func Execute() error {
	defer observability.Sync()
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.opdroid/config.yaml)")
	rootCmd.PersistentFlags().StringP("device", "d", "", "device serial (default: the single connected device)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging to stderr")
	rootCmd.PersistentFlags().String("log-file", "", "also log to this file (rotated)")

	_ = viper.BindPFlag(config.KeyDeviceSerial, rootCmd.PersistentFlags().Lookup("device"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
}

func initConfig() {
	cobra.CheckErr(config.Load(cfgFile))

	observability.Initialize(observability.Config{
		Verbose: viper.GetBool("verbose"),
		LogFile: viper.GetString("log_file"),
	})
}

// deviceSerial returns the serial selected by flag, config, or env.
func deviceSerial() string {
	return viper.GetString(config.KeyDeviceSerial)
}
