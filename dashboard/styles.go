package dashboard

import "github.com/charmbracelet/lipgloss"

// Color palette and text styles, carried over from the teacher's
// terminal dashboard so a user moving between tools sees a familiar
// look and feel.
var (
	colorRed     = lipgloss.Color("#FF5555")
	colorYellow  = lipgloss.Color("#F1FA8C")
	colorGreen   = lipgloss.Color("#50FA7B")
	colorCyan    = lipgloss.Color("#8BE9FD")
	colorMagenta = lipgloss.Color("#FF79C6")
	colorOrange  = lipgloss.Color("#FFB86C")
	colorWhite   = lipgloss.Color("#F8F8F2")
	colorGray    = lipgloss.Color("#6272A4")
	colorPanel   = lipgloss.Color("#44475A")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	headerStyle   = lipgloss.NewStyle().Foreground(colorMagenta).Bold(true)
	labelStyle    = lipgloss.NewStyle().Foreground(colorGray)
	valueStyle    = lipgloss.NewStyle().Foreground(colorWhite)
	warnStyle     = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	critStyle     = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(colorGreen)
	dimStyle      = lipgloss.NewStyle().Foreground(colorGray)
	selectedStyle = lipgloss.NewStyle().Background(colorPanel).Foreground(colorWhite)
	orangeStyle   = lipgloss.NewStyle().Foreground(colorOrange)
)

// scoreStyle colors an efficiency score: low scores (the jobs most
// worth looking at) read as critical, mid scores as a warning.
func scoreStyle(score float64) lipgloss.Style {
	switch {
	case score < 40:
		return critStyle
	case score < 70:
		return warnStyle
	default:
		return okStyle
	}
}

func labelStyleFor(label string) lipgloss.Style {
	switch label {
	case "IdleHeavy", "IdleHeavySwitching":
		return critStyle
	case "IoBoundIntensive", "MixedIntensive":
		return warnStyle
	case "CpuBound", "Balanced":
		return okStyle
	default:
		return orangeStyle
	}
}
