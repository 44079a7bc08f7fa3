package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/shikhr/opdroid/internal/adb"
	"github.com/shikhr/opdroid/internal/observability"
	"github.com/shikhr/opdroid/internal/ui"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List connected Android devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := adb.NewClient("", observability.Logger())
		devices, err := client.Devices(cmd.Context())
		if err != nil {
			return err
		}

		if len(devices) == 0 {
			fmt.Println("No Android devices connected.")
			fmt.Println("\nEnable USB debugging and plug in a device, or start an emulator.")
			return nil
		}

		serialStyle := lipgloss.NewStyle().Foreground(ui.ColorAccent)
		for _, d := range devices {
			state := d.State
			switch d.State {
			case "device":
				state = ui.ThinkingStyle.Render("ready")
			case "unauthorized":
				state = ui.ErrorStyle.Render("unauthorized (accept the prompt on the phone)")
			case "offline":
				state = ui.SystemStyle.Render("offline")
			}

			line := fmt.Sprintf("%s  %s", serialStyle.Render(fmt.Sprintf("%-22s", d.Serial)), state)
			if d.Model != "" {
				line += ui.SystemStyle.Render("  " + d.Model)
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
