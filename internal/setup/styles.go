package setup

import "github.com/charmbracelet/lipgloss"

// The wizard reuses the Android-green palette from internal/ui but keeps
// its own style set: its screens are boxed full-screen panes rather than
// transcript lines.
var (
	primaryColor = lipgloss.Color("41")  // Android green
	successColor = lipgloss.Color("35")  // Green
	dimColor     = lipgloss.Color("241") // Gray
	borderColor  = lipgloss.Color("62")  // Purple

	// BoxStyle frames the welcome and completion screens.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(1, 2)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	DimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // Red

	HelpStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(primaryColor)
)
