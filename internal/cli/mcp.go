package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shikhr/opdroid/internal/adb"
	"github.com/shikhr/opdroid/internal/config"
	"github.com/shikhr/opdroid/internal/mcp"
	"github.com/shikhr/opdroid/internal/observability"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the device tools over the Model Context Protocol",
	Long: `Serve the device tool catalog over MCP on stdio.

Point any MCP client (Claude Desktop, editors, other agents) at this
command and it can observe and drive the connected Android device.
Logging goes to stderr; stdout carries only protocol frames.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.Logger()

		device := adb.NewClient(deviceSerial(), logger)

		// Device resolution is deferred to the first tool call; the
		// server should come up even before a phone is plugged in.
		server := mcp.NewServer(device, mcp.Options{
			ResizeMaxDim: viper.GetInt(config.KeyMCPResizeMax),
			CellSize:     viper.GetInt(config.KeyCellSize),
			Version:      Version,
			Logger:       logger,
		})

		return server.Serve(cmd.Context(), os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
