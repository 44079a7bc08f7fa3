package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shikhr/opdroid/internal/adb"
	"github.com/shikhr/opdroid/internal/config"
	"github.com/shikhr/opdroid/internal/grid"
	"github.com/shikhr/opdroid/internal/observability"
	"github.com/shikhr/opdroid/internal/screenshot"
)

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Capture the device screen to a PNG file",
	Long: `Capture the device screen to a PNG file.

With --grid the image is resized and overlaid with the same labeled
coordinate grid the agent sees, which is useful for debugging cell
references.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		withGrid, _ := cmd.Flags().GetBool("grid")

		client := adb.NewClient(deviceSerial(), observability.Logger())
		if err := client.Resolve(cmd.Context()); err != nil {
			return err
		}

		img, err := client.Screenshot(cmd.Context())
		if err != nil {
			return err
		}

		if withGrid {
			resized := screenshot.Fit(img, viper.GetInt(config.KeyResizeMax))
			img = grid.Overlay(resized, viper.GetInt(config.KeyCellSize))
		}

		png, err := screenshot.EncodePNG(img)
		if err != nil {
			return err
		}

		if err := os.WriteFile(out, png, 0o644); err != nil {
			return err
		}

		b := img.Bounds()
		fmt.Printf("Saved %dx%d screenshot to %s\n", b.Dx(), b.Dy(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(screenshotCmd)

	screenshotCmd.Flags().StringP("output", "o", "screen.png", "output file path")
	screenshotCmd.Flags().Bool("grid", false, "resize and overlay the coordinate grid")
}
