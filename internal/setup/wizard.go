package setup

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shikhr/opdroid/internal/adb"
	"github.com/shikhr/opdroid/internal/llm"
	"github.com/shikhr/opdroid/internal/ui"
)

// WizardStep is the wizard's current screen.
type WizardStep int

const (
	StepWelcome WizardStep = iota
	StepProviderSelect
	StepProviderKey
	StepDeviceCheck
	StepComplete
)

const totalSteps = 3 // provider, device, ready

// SetupResult is what the wizard hands back to the caller.
type SetupResult struct {
	ProviderID  llm.ProviderID
	DeviceCount int
	Cancelled   bool
}

// WizardModel drives the first-run flow: pick a provider, validate a
// key against a live API call, then look for a connected device.
type WizardModel struct {
	step     WizardStep
	status   *SetupStatus
	dataDir  string
	quitting bool

	// Provider step
	providerList     []providerItem
	providerSelector ui.Selector
	selectedProvider llm.ProviderID
	apiKeyInput      textinput.Model
	validatingKey    bool
	keyError         string
	envKeyDetected   bool
	envKeyProvider   llm.ProviderID

	// Device step
	checkingDevices bool
	devices         []adb.DeviceInfo
	deviceError     string

	spinner  spinner.Model
	progress progress.Model

	result *SetupResult
}

type providerItem struct {
	id          llm.ProviderID
	name        string
	description string
	recommended bool
}

type keyValidatedMsg struct {
	success bool
	err     error
}

type devicesCheckedMsg struct {
	devices []adb.DeviceInfo
	err     error
}

func providerSelectorItems(providers []providerItem) []ui.SelectorItem {
	items := make([]ui.SelectorItem, 0, len(providers))
	for _, p := range providers {
		desc := p.description
		if p.recommended {
			desc = "recommended - " + desc
		}
		items = append(items, ui.SelectorItem{
			ID:          string(p.id),
			Label:       p.name,
			Description: desc,
		})
	}
	return items
}

func NewWizard(dataDir string) *WizardModel {
	status, _ := DetectSetupStatus(dataDir)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 40

	apiInput := textinput.New()
	apiInput.Prompt = ""
	apiInput.Placeholder = "Paste your API key here..."
	apiInput.EchoMode = textinput.EchoPassword
	apiInput.EchoCharacter = '•'
	apiInput.CharLimit = 200
	apiInput.Width = 50

	providers := []providerItem{
		{id: llm.ProviderAnthropic, name: "Anthropic (Claude)", description: "Best vision & tool use", recommended: true},
		{id: llm.ProviderOpenAI, name: "OpenAI (GPT-4o)", description: "Fast responses, widely used"},
		{id: llm.ProviderGemini, name: "Google (Gemini)", description: "1M token context window"},
		{id: llm.ProviderOpenRouter, name: "OpenRouter", description: "Access 100+ models with one key"},
	}

	providerSelector := ui.NewSelector("Choose an LLM provider", providerSelectorItems(providers))

	m := &WizardModel{
		step:             StepWelcome,
		status:           status,
		dataDir:          dataDir,
		providerList:     providers,
		providerSelector: providerSelector,
		spinner:          sp,
		progress:         prog,
		apiKeyInput:      apiInput,
	}

	m.detectEnvKeys()

	// A stored credential skips straight to the device check.
	if status.HasProvider {
		m.selectedProvider = status.ProviderID
		m.step = StepDeviceCheck
		m.checkingDevices = true
	}

	return m
}

// detectEnvKeys records the first provider whose API key variable is
// already set in the environment.
func (m *WizardModel) detectEnvKeys() {
	for _, p := range m.providerList {
		envVar := llm.EnvVarForProvider(p.id)
		if envVar != "" && os.Getenv(envVar) != "" {
			m.envKeyDetected = true
			m.envKeyProvider = p.id
			return
		}
	}
}

func (m WizardModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, textinput.Blink}
	if m.step == StepDeviceCheck {
		cmds = append(cmds, m.checkDevices())
	}
	return tea.Batch(cmds...)
}

func (m WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Ctrl+C cancels from anywhere; Esc stays step-local.
		switch msg.Type {
		case tea.KeyCtrlC:
			m.result = &SetupResult{Cancelled: true}
			m.quitting = true
			return m, tea.Quit
		}

		switch m.step {
		case StepWelcome:
			if msg.Type == tea.KeyEnter {
				if m.envKeyDetected {
					m.selectedProvider = m.envKeyProvider
					m.checkingDevices = true
					m.step = StepDeviceCheck
					return m, m.checkDevices()
				}
				m.step = StepProviderSelect
			}
			return m, nil

		case StepProviderSelect:
			return m.updateProviderSelect(msg)

		case StepProviderKey:
			if msg.Type == tea.KeyEsc {
				m.apiKeyInput.Blur()
				m.apiKeyInput.Reset()
				m.keyError = ""
				m.step = StepProviderSelect
				return m, nil
			}
			if msg.Type == tea.KeyEnter {
				return m.updateProviderKey(msg)
			}
		// Other keys fall through to the text input below.

		case StepDeviceCheck:
			if m.checkingDevices {
				return m, nil
			}
			switch msg.String() {
			case "enter":
				m.step = StepComplete
				return m, nil
			case "r":
				m.checkingDevices = true
				m.deviceError = ""
				return m, m.checkDevices()
			}
			return m, nil

		case StepComplete:
			if msg.Type == tea.KeyEnter {
				m.result = &SetupResult{
					ProviderID:  m.selectedProvider,
					DeviceCount: len(m.devices),
				}
				m.quitting = true
				return m, tea.Quit
			}
		}

	case tea.WindowSizeMsg:
		m.progress.Width = min(40, msg.Width-20)
		m.providerSelector.SetWidth(msg.Width)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case keyValidatedMsg:
		m.validatingKey = false
		if msg.success {
			m.keyError = ""
			if err := m.saveProviderKey(); err != nil {
				m.keyError = fmt.Sprintf("Failed to save: %v", err)
			} else {
				m.checkingDevices = true
				m.step = StepDeviceCheck
				return m, m.checkDevices()
			}
		} else {
			m.keyError = formatKeyError(msg.err, m.selectedProvider)
		}
		return m, nil

	case devicesCheckedMsg:
		m.checkingDevices = false
		if msg.err != nil {
			m.deviceError = msg.err.Error()
		} else {
			m.devices = msg.devices
		}
		return m, nil
	}

	if m.step == StepProviderKey && !m.validatingKey {
		var cmd tea.Cmd
		m.apiKeyInput, cmd = m.apiKeyInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// formatKeyError turns a validation failure into a short actionable
// line for the key screen.
func formatKeyError(err error, provider llm.ProviderID) string {
	if err == nil {
		return "Invalid API key. Please try again."
	}

	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "timeout") {
		return "Connection failed. Check your internet and try again."
	}

	if strings.Contains(errStr, "401") || strings.Contains(errStr, "unauthorized") {
		switch provider {
		case llm.ProviderAnthropic:
			return "Invalid key. Verify at console.anthropic.com"
		case llm.ProviderOpenAI:
			return "Invalid key. Verify at platform.openai.com"
		case llm.ProviderGemini:
			return "Invalid key. Verify at aistudio.google.com"
		default:
			return "Authentication failed. Check your API key."
		}
	}

	if strings.Contains(errStr, "429") || strings.Contains(errStr, "rate") {
		return "Rate limited. Wait a moment and try again."
	}

	if len(errStr) > 60 {
		return errStr[:57] + "..."
	}

	return errStr
}

func (m WizardModel) updateProviderSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	_, cmd := m.providerSelector.Update(msg)
	if cmd != nil {
		return m, cmd
	}

	if m.providerSelector.Active() {
		return m, nil
	}

	if m.providerSelector.Cancelled() {
		m.step = StepWelcome
		m.providerSelector = ui.NewSelector("Choose an LLM provider", providerSelectorItems(m.providerList))
		return m, nil
	}

	m.selectedProvider = llm.ProviderID(m.providerSelector.Selected())
	m.apiKeyInput.Focus()
	m.step = StepProviderKey
	return m, nil
}

func (m WizardModel) updateProviderKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.validatingKey {
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEnter:
		key := m.apiKeyInput.Value()
		if key == "" {
			m.keyError = "API key is required"
			return m, nil
		}
		m.validatingKey = true
		m.keyError = ""
		return m, m.validateKey()
	}
	return m, nil
}

func (m WizardModel) View() string {
	if m.quitting {
		if m.result != nil && m.result.Cancelled {
			return DimStyle.Render("\n  Setup cancelled.\n\n")
		}
		return ""
	}

	var b strings.Builder

	// The welcome and completion boxes stand alone; the steps between
	// them share the progress bar.
	if m.step > StepWelcome && m.step < StepComplete {
		b.WriteString("\n")
		b.WriteString(m.renderProgress())
		b.WriteString("\n")
	}

	switch m.step {
	case StepWelcome:
		b.WriteString(m.viewWelcome())
	case StepProviderSelect:
		b.WriteString(m.viewProviderSelect())
	case StepProviderKey:
		b.WriteString(m.viewProviderKey())
	case StepDeviceCheck:
		b.WriteString(m.viewDeviceCheck())
	case StepComplete:
		b.WriteString(m.viewComplete())
	}

	return b.String()
}

func (m WizardModel) renderProgress() string {
	var currentStep int
	switch m.step {
	case StepProviderSelect, StepProviderKey:
		currentStep = 1
	case StepDeviceCheck:
		currentStep = 2
	case StepComplete:
		currentStep = 3
	}

	percent := float64(currentStep) / float64(totalSteps)
	bar := m.progress.ViewAs(percent)

	labels := "  Provider      Device       Ready"
	return fmt.Sprintf("  %s\n%s", bar, DimStyle.Render(labels))
}

func (m WizardModel) viewWelcome() string {
	var b strings.Builder
	b.WriteString("\n\n")

	if m.envKeyDetected {
		envVar := llm.EnvVarForProvider(m.envKeyProvider)
		providerName := m.providerName(m.envKeyProvider)

		box := BoxStyle.Render(
			TitleStyle.Render("Welcome to opdroid") + "\n" +
				SubtitleStyle.Render("Talk to your Android phone from the terminal") + "\n\n" +
				SuccessStyle.Render(fmt.Sprintf("✓ Found %s in environment!", envVar)) + "\n" +
				fmt.Sprintf("  Using: %s", providerName),
		)
		b.WriteString(box)
		b.WriteString("\n\n")
		b.WriteString(HelpStyle.Render("  Press Enter to continue with detected key..."))
	} else {
		box := BoxStyle.Render(
			TitleStyle.Render("Welcome to opdroid") + "\n" +
				SubtitleStyle.Render("Talk to your Android phone from the terminal") + "\n\n" +
				"Let's get you set up in about 2 minutes.",
		)
		b.WriteString(box)
		b.WriteString("\n\n")
		b.WriteString(HelpStyle.Render("  Press Enter to continue..."))
	}

	return b.String()
}

func (m WizardModel) viewProviderSelect() string {
	return "\n" + m.providerSelector.View()
}

func (m WizardModel) viewProviderKey() string {
	var b strings.Builder
	b.WriteString("\n")

	providerName := m.providerName(m.selectedProvider)

	b.WriteString(TitleStyle.Render(fmt.Sprintf("  Enter %s API Key", providerName)))
	b.WriteString("\n\n")

	var apiUrl string
	switch m.selectedProvider {
	case llm.ProviderAnthropic:
		apiUrl = "console.anthropic.com"
	case llm.ProviderOpenAI:
		apiUrl = "platform.openai.com/api-keys"
	case llm.ProviderGemini:
		apiUrl = "aistudio.google.com/apikey"
	case llm.ProviderOpenRouter:
		apiUrl = "openrouter.ai/settings/keys"
	}
	b.WriteString(SubtitleStyle.Render(fmt.Sprintf("  Get your key at: %s\n\n", apiUrl)))

	b.WriteString("  ")
	b.WriteString(m.apiKeyInput.View())
	b.WriteString("\n")

	if m.validatingKey {
		b.WriteString(fmt.Sprintf("\n  %s Testing connection...\n", m.spinner.View()))
	} else if m.keyError != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", ErrorStyle.Render("✗ "+m.keyError)))
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("  Enter to validate • Esc back"))
	return b.String()
}

func (m WizardModel) viewDeviceCheck() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(TitleStyle.Render("  Android Device"))
	b.WriteString("\n\n")

	if m.checkingDevices {
		b.WriteString(fmt.Sprintf("  %s Looking for connected devices...\n", m.spinner.View()))
		return b.String()
	}

	switch {
	case m.deviceError != "":
		b.WriteString(ErrorStyle.Render("  ✗ adb not reachable: " + m.deviceError))
		b.WriteString("\n\n")
		b.WriteString(DimStyle.Render("  Install platform-tools and start the adb server.\n"))
	case len(m.devices) == 0:
		b.WriteString(DimStyle.Render("  No devices found.\n\n"))
		b.WriteString(DimStyle.Render("  Enable USB debugging on your phone and plug it in,\n"))
		b.WriteString(DimStyle.Render("  or start an emulator. You can also do this later.\n"))
	default:
		b.WriteString(SuccessStyle.Render(fmt.Sprintf("  ✓ Found %d device(s):\n", len(m.devices))))
		for _, d := range m.devices {
			line := "    " + ui.SymbolBullet + " " + d.Serial
			if d.Model != "" {
				line += DimStyle.Render("  " + d.Model)
			}
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("  Enter to continue • r to re-scan"))
	return b.String()
}

func (m WizardModel) viewComplete() string {
	var b strings.Builder
	b.WriteString("\n\n")

	providerName := m.providerName(m.selectedProvider)

	deviceInfo := DimStyle.Render("None connected")
	if len(m.devices) > 0 {
		deviceInfo = fmt.Sprintf("%d connected", len(m.devices))
	}

	content := fmt.Sprintf(
		"%s\n\n"+
			"Provider: %s\n"+
			"Devices:  %s\n\n"+
			"%s\n"+
			"  %s\n"+
			"  %s\n"+
			"  %s",
		TitleStyle.Render("✨ You're all set!"),
		providerName,
		deviceInfo,
		DimStyle.Render("Try these:"),
		"\"Open Settings and turn on dark mode\"",
		"\"Launch YouTube and search for lo-fi beats\"",
		"opdroid run \"take a screenshot of the home screen\"",
	)

	b.WriteString(BoxStyle.Render(content))
	b.WriteString("\n\n")
	b.WriteString(HelpStyle.Render("  Press Enter to start opdroid..."))
	return b.String()
}

func (m WizardModel) providerName(id llm.ProviderID) string {
	for _, p := range m.providerList {
		if p.id == id {
			return p.name
		}
	}
	return string(id)
}

// RunWizard runs the full-screen setup flow and returns what the user
// chose, or a cancelled result.
func RunWizard() (*SetupResult, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	m := NewWizard(dataDir)

	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}

	result := finalModel.(WizardModel).result
	return result, nil
}

// PrintEnvInstructions is the non-interactive fallback when setup is
// needed but stdin is not a terminal (CI, pipes).
func PrintEnvInstructions() {
	fmt.Println("opdroid requires an LLM provider to function.")
	fmt.Println("")
	fmt.Println("Set one of these environment variables:")
	fmt.Println("  ANTHROPIC_API_KEY=sk-ant-...")
	fmt.Println("  OPENAI_API_KEY=sk-...")
	fmt.Println("  GOOGLE_API_KEY=...")
	fmt.Println("  OPENROUTER_API_KEY=...")
	fmt.Println("")
	fmt.Println("Or run opdroid interactively to complete guided setup.")
}
