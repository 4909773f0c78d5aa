package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#2563eb")
	colorText    = lipgloss.Color("#e2e8f0")
	colorTextDim = lipgloss.Color("#94a3b8")
	colorBorder  = lipgloss.Color("#475569")
	colorError   = lipgloss.Color("#ef4444")
	colorSuccess = lipgloss.Color("#22c55e")
)

var (
	headerStyle   lipgloss.Style
	titleStyle    lipgloss.Style
	subtitleStyle lipgloss.Style
	hintStyle     lipgloss.Style

	userLabelStyle       lipgloss.Style
	userBubbleStyle      lipgloss.Style
	assistantLabelStyle  lipgloss.Style
	assistantBubbleStyle lipgloss.Style

	inputPanelStyle     lipgloss.Style
	recordingPanelStyle lipgloss.Style
	thinkingStyle       lipgloss.Style

	statusBarStyle  lipgloss.Style
	statusKeyStyle  lipgloss.Style
	statusDescStyle lipgloss.Style

	noticeStyle lipgloss.Style
	errorStyle  lipgloss.Style
	footerStyle lipgloss.Style
)

func init() {
	buildStyles()
}

func buildStyles() {
	headerStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 2).
		Align(lipgloss.Center)
	titleStyle = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	subtitleStyle = lipgloss.NewStyle().Foreground(colorTextDim)
	hintStyle = lipgloss.NewStyle().Foreground(colorTextDim)

	// User turns are right-aligned blue bubbles, answers sit in a bordered box.
	userLabelStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	userBubbleStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ffffff")).
		Background(colorPrimary).
		Padding(0, 1)
	assistantLabelStyle = lipgloss.NewStyle().Foreground(colorTextDim).Bold(true)
	assistantBubbleStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)

	inputPanelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorPrimary).
		Padding(0, 1)
	recordingPanelStyle = inputPanelStyle.BorderForeground(colorError)
	thinkingStyle = lipgloss.NewStyle().Foreground(colorTextDim)

	statusBarStyle = lipgloss.NewStyle().Foreground(colorTextDim)
	statusKeyStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	statusDescStyle = lipgloss.NewStyle().Foreground(colorTextDim)

	noticeStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	errorStyle = lipgloss.NewStyle().Foreground(colorError)
	footerStyle = lipgloss.NewStyle().Foreground(colorTextDim).Italic(true)
}
