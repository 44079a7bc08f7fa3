package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shikhr/opdroid/internal/adb"
	"github.com/shikhr/opdroid/internal/observability"
)

var appsCmd = &cobra.Command{
	Use:   "apps [filter]",
	Short: "List installed packages on the device",
	Long: `List installed package names, optionally filtered by substring.

Package names are what launch_app objectives need, e.g.
"Open com.android.settings".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := ""
		if len(args) == 1 {
			filter = args[0]
		}

		client := adb.NewClient(deviceSerial(), observability.Logger())
		if err := client.Resolve(cmd.Context()); err != nil {
			return err
		}

		packages, err := client.ListPackages(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if len(packages) == 0 {
			fmt.Println("No packages matched.")
			return nil
		}
		for _, pkg := range packages {
			fmt.Println(pkg)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(appsCmd)
}
