package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shikhr/opdroid/internal/agent"
	"github.com/shikhr/opdroid/internal/config"
	"github.com/shikhr/opdroid/internal/runs"
	"github.com/shikhr/opdroid/internal/ui"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent agent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		dataDir, err := config.DataDir()
		if err != nil {
			return err
		}

		store, err := runs.Open(dataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		list, err := store.List(limit)
		if err != nil {
			return err
		}

		if len(list) == 0 {
			fmt.Println("No runs recorded yet. Try: opdroid run \"open settings\"")
			return nil
		}

		for _, r := range list {
			status := r.Status
			switch agent.Status(r.Status) {
			case agent.StatusComplete:
				status = ui.ThinkingStyle.Render(ui.SymbolCheck + " complete")
			case agent.StatusImpossible:
				status = ui.ErrorStyle.Render(ui.SymbolCross + " impossible")
			case agent.StatusMaxIterations:
				status = ui.ActionStyle.Render("⏱ max iterations")
			}

			objective := r.Objective
			if len(objective) > 60 {
				objective = objective[:57] + "..."
			}

			fmt.Printf("%s  %-18s %s\n",
				ui.SystemStyle.Render(r.StartedAt.Local().Format("2006-01-02 15:04")),
				status,
				objective)
			detail := fmt.Sprintf("    %d iteration(s), %s", r.Iterations, r.Model)
			if r.Summary != "" {
				detail += " " + ui.SymbolTree + " " + firstLine(r.Summary)
			}
			fmt.Println(ui.SystemStyle.Render(detail))
		}
		return nil
	},
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().IntP("limit", "n", 20, "number of runs to show")
}
