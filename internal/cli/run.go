package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/shikhr/opdroid/internal/adb"
	"github.com/shikhr/opdroid/internal/agent"
	"github.com/shikhr/opdroid/internal/auth"
	"github.com/shikhr/opdroid/internal/config"
	"github.com/shikhr/opdroid/internal/llm"
	"github.com/shikhr/opdroid/internal/observability"
	"github.com/shikhr/opdroid/internal/runs"
	"github.com/shikhr/opdroid/internal/session"
)

var runCmd = &cobra.Command{
	Use:   "run <objective>",
	Short: "Run one objective against the device and exit",
	Long: `Run a single objective and print the agent's progress.

The agent observes the screen, decides on an action, executes it, and
repeats until the objective is complete, impossible, or the iteration
budget runs out.

Examples:
  opdroid run "Open Settings and enable dark mode"
  opdroid run "Launch YouTube and search for lo-fi beats" --model gpt-4o
  opdroid run "Send 'on my way' to Sam on WhatsApp" --max-iterations 30`,
	Args: cobra.ExactArgs(1),
	RunE: runObjective,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("provider", "p", "", "LLM provider (anthropic, openai, gemini, openrouter)")
	runCmd.Flags().StringP("model", "m", "", "model ID (provider default when empty)")
	runCmd.Flags().Int("max-iterations", 0, "observe-act cycles before giving up")
	runCmd.Flags().Int("max-images", 0, "screenshots kept in model context")

	_ = viper.BindPFlag(config.KeyProvider, runCmd.Flags().Lookup("provider"))
	_ = viper.BindPFlag(config.KeyModel, runCmd.Flags().Lookup("model"))
	_ = viper.BindPFlag(config.KeyMaxIterations, runCmd.Flags().Lookup("max-iterations"))
	_ = viper.BindPFlag(config.KeyMaxImages, runCmd.Flags().Lookup("max-images"))
}

func runObjective(cmd *cobra.Command, args []string) error {
	objective := args[0]
	logger := observability.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dataDir, err := config.DataDir()
	if err != nil {
		return err
	}

	ag, device, err := buildAgent(ctx, dataDir, logger, nil)
	if err != nil {
		return err
	}

	fmt.Printf("Device:    %s\n", device.Serial())
	fmt.Printf("Provider:  %s (%s)\n", ag.ProviderID(), ag.Model())
	fmt.Printf("Objective: %s\n\n", objective)

	transcript, err := session.NewWriter(dataDir)
	if err != nil {
		logger.Warn("transcript disabled", zap.Error(err))
		transcript = nil
	} else {
		defer transcript.Close()
		transcript.Write(session.Record{
			Type:      "run_start",
			Objective: objective,
			Provider:  string(ag.ProviderID()),
			Model:     ag.Model(),
		})
	}

	ag.SetOnEvent(func(e agent.Event) {
		fmt.Println(renderEvent(e))
		if transcript != nil {
			transcript.Write(session.Record{
				Type:      string(e.Kind),
				Iteration: e.Iteration,
				Tool:      e.Tool,
				Args:      e.Args,
				Text:      e.Text,
				IsError:   e.IsError,
			})
		}
	})

	started := time.Now()
	result, err := ag.Run(ctx, objective)
	if err != nil {
		if transcript != nil {
			transcript.Write(session.Record{Type: "run_error", Text: err.Error()})
		}
		return err
	}

	recordRun(dataDir, logger, runs.Run{
		ID:         transcriptID(transcript),
		StartedAt:  started,
		FinishedAt: time.Now(),
		Objective:  objective,
		Status:     string(result.Status),
		Summary:    result.Summary,
		Iterations: result.Iterations,
		Model:      ag.Model(),
		Serial:     device.Serial(),
	})

	if transcript != nil {
		transcript.Write(session.Record{
			Type:    "run_end",
			Status:  string(result.Status),
			Summary: result.Summary,
		})
	}

	fmt.Printf("\nFinished in %d iteration(s): %s\n", result.Iterations, result.Status)
	if result.Status == agent.StatusImpossible || result.Status == agent.StatusMaxIterations {
		os.Exit(1)
	}
	return nil
}

// buildAgent connects the device and provider. onEvent may be nil; the
// caller can attach a sink later through SetOnEvent.
func buildAgent(ctx context.Context, dataDir string, logger *zap.Logger, onEvent func(agent.Event)) (*agent.Agent, *adb.Client, error) {
	device := adb.NewClient(deviceSerial(), logger)
	if err := device.WaitForDevice(ctx); err != nil {
		return nil, nil, err
	}
	if err := device.Resolve(ctx); err != nil {
		return nil, nil, err
	}

	authManager, err := auth.NewManager(dataDir)
	if err != nil {
		return nil, nil, err
	}

	provider, err := agent.ResolveProvider(ctx, authManager,
		llm.ProviderID(viper.GetString(config.KeyProvider)),
		viper.GetString(config.KeyModel))
	if err != nil {
		return nil, nil, err
	}

	ag, err := agent.New(provider, device, logger, agent.Options{
		MaxIterations: viper.GetInt(config.KeyMaxIterations),
		MaxImages:     viper.GetInt(config.KeyMaxImages),
		ResizeMaxDim:  viper.GetInt(config.KeyResizeMax),
		CellSize:      viper.GetInt(config.KeyCellSize),
		MaxTokens:     viper.GetInt(config.KeyMaxTokens),
		OnEvent:       onEvent,
	})
	if err != nil {
		return nil, nil, err
	}
	return ag, device, nil
}

func transcriptID(w *session.Writer) string {
	if w == nil {
		return ""
	}
	return w.ID()
}

// recordRun appends to the run ledger. Ledger trouble is logged, never
// surfaced; the run already happened.
func recordRun(dataDir string, logger *zap.Logger, run runs.Run) {
	store, err := runs.Open(dataDir)
	if err != nil {
		logger.Warn("run ledger unavailable", zap.Error(err))
		return
	}
	defer store.Close()
	if _, err := store.Append(run); err != nil {
		logger.Warn("run ledger append failed", zap.Error(err))
	}
}
