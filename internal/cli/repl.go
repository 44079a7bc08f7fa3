package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/shikhr/opdroid/internal/agent"
	"github.com/shikhr/opdroid/internal/config"
	"github.com/shikhr/opdroid/internal/observability"
	"github.com/shikhr/opdroid/internal/setup"
	"github.com/shikhr/opdroid/internal/ui"
)

// model is the REPL state: a transcript viewport on top, an objective
// input below, and at most one run in flight.
type model struct {
	agent  *agent.Agent
	serial string

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	lines    []string
	running  bool
	cancel   context.CancelFunc
	width    int
	height   int
	ready    bool
	quitting bool
}

// eventMsg wraps a loop event forwarded from the run goroutine.
type eventMsg struct {
	event agent.Event
}

// runDoneMsg is sent when a run finishes or fails.
type runDoneMsg struct {
	result agent.Result
	err    error
}

func initialModel(ag *agent.Agent, serial string) model {
	ta := textarea.New()
	ta.Placeholder = "What should the phone do?"
	ta.Focus()
	ta.CharLimit = 500
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ui.TitleStyle

	welcome := ui.SystemStyle.Render(fmt.Sprintf(
		"Connected to %s. Type an objective and press Enter.\nUse /help for commands, /quit to exit.",
		serial))

	return model{
		agent:    ag,
		serial:   serial,
		textarea: ta,
		spinner:  sp,
		lines:    []string{welcome},
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.running && m.cancel != nil {
				// First Ctrl+C stops the run; the next one exits.
				m.cancel()
				m.appendLine(ui.SystemStyle.Render("Stopping run..."))
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit

		case tea.KeyEnter:
			if m.running {
				return m, nil
			}

			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			m.appendLine(ui.UserStyle.Render("You: ") + input)
			m.running = true
			ctx, cancel := context.WithCancel(context.Background())
			m.cancel = cancel
			return m, startRun(ctx, m.agent, input)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-8)
			m.viewport.YPosition = 0
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 8
		}
		m.textarea.SetWidth(msg.Width - 4)
		m.refreshViewport()

	case eventMsg:
		m.appendLine(renderEvent(msg.event))
		return m, nil

	case runDoneMsg:
		m.running = false
		m.cancel = nil
		if msg.err != nil {
			if errors.Is(msg.err, context.Canceled) {
				m.appendLine(ui.SystemStyle.Render("Run stopped."))
			} else {
				m.appendLine(ui.ErrorStyle.Render("Error: " + msg.err.Error()))
			}
		} else {
			m.appendLine(ui.SystemStyle.Render(fmt.Sprintf(
				"Run finished: %s after %d iteration(s).", msg.result.Status, msg.result.Iterations)))
		}
		return m, nil

	case spinner.TickMsg:
		var spCmd tea.Cmd
		m.spinner, spCmd = m.spinner.Update(msg)
		return m, spCmd
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

func (m model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if !m.ready {
		return "Initializing...\n"
	}

	var b strings.Builder

	b.WriteString(ui.TitleStyle.Render("  opdroid") +
		ui.SystemStyle.Render("  "+m.serial) + "\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.running {
		b.WriteString(fmt.Sprintf("\n  %s Working... (Ctrl+C to stop)\n\n", m.spinner.View()))
	} else {
		b.WriteString("\n")
		b.WriteString(m.textarea.View())
		b.WriteString("\n")
	}

	b.WriteString(ui.HelpStyle.Render("  /help • /model • /clear • /quit"))
	return b.String()
}

func (m *model) appendLine(line string) {
	m.lines = append(m.lines, line)
	m.refreshViewport()
	m.viewport.GotoBottom()
}

func (m *model) refreshViewport() {
	m.viewport.SetContent(strings.Join(m.lines, "\n\n"))
}

func (m model) handleCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.SplitN(strings.TrimSpace(input), " ", 2)
	cmd := strings.ToLower(parts[0])

	switch cmd {
	case "/quit", "/exit", "/q":
		m.quitting = true
		return m, tea.Quit

	case "/clear":
		m.lines = []string{ui.SystemStyle.Render("Transcript cleared.")}
		m.refreshViewport()
		return m, nil

	case "/model":
		m.appendLine(ui.SystemStyle.Render(fmt.Sprintf(
			"Provider: %s\nModel:    %s", m.agent.ProviderID(), m.agent.Model())))
		return m, nil

	case "/help", "/?":
		helpText := `Available commands:
  /help, /?       - Show this help
  /model          - Show the active provider and model
  /clear          - Clear the transcript
  /quit, /exit    - Exit opdroid

Example objectives:
  "Open Settings and turn on dark mode"
  "Launch YouTube and search for lo-fi beats"
  "Take me to the home screen"`
		m.appendLine(ui.SystemStyle.Render(helpText))
		return m, nil

	default:
		m.appendLine(ui.ErrorStyle.Render(
			fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)))
		return m, nil
	}
}

// startRun drives the agent in the command goroutine and blocks until
// the run ends. Events stream in via program.Send from the OnEvent hook
// installed in RunREPL.
func startRun(ctx context.Context, ag *agent.Agent, objective string) tea.Cmd {
	return func() tea.Msg {
		result, err := ag.Run(ctx, objective)
		return runDoneMsg{result: result, err: err}
	}
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start the interactive session (same as running opdroid bare)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunREPL()
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}

// RunREPL starts the interactive loop against the connected device.
func RunREPL() error {
	if !setup.IsInteractive() {
		return fmt.Errorf("the interactive session needs a terminal; use 'opdroid run \"<objective>\"' instead")
	}

	logger := observability.Logger()

	dataDir, err := config.DataDir()
	if err != nil {
		return err
	}

	ctx := context.Background()
	ag, device, err := buildAgent(ctx, dataDir, logger, nil)
	if err != nil {
		return err
	}

	p := tea.NewProgram(
		initialModel(ag, device.Serial()),
		tea.WithAltScreen(),
	)

	ag.SetOnEvent(func(e agent.Event) {
		p.Send(eventMsg{event: e})
	})

	_, err = p.Run()
	return err
}
