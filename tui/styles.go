package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent  = lipgloss.AdaptiveColor{Light: "#FFB800", Dark: "#FFDD2D"}
	muted   = lipgloss.AdaptiveColor{Light: "#6B6B6B", Dark: "#9A9A9A"}
	danger  = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF6B6B"}
	linkFg  = lipgloss.AdaptiveColor{Light: "#1565C0", Dark: "#64B5F6"}
	border  = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#3A3A3A"}
	surface = lipgloss.AdaptiveColor{Light: "#F4F4F4", Dark: "#262626"}
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#333333")).
			Background(accent).
			Padding(0, 1)

	headerInfoStyle = lipgloss.NewStyle().
			Foreground(muted).
			Padding(0, 1)

	sidebarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(border)

	sidebarFocusedStyle = sidebarStyle.
				BorderForeground(accent)

	inputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1)

	inputFocusedStyle = inputStyle.
				BorderForeground(accent)

	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent)

	assistantLabelStyle = lipgloss.NewStyle().
				Bold(true)

	timeStyle = lipgloss.NewStyle().
			Foreground(muted)

	userBubbleStyle = lipgloss.NewStyle().
			Background(surface).
			Padding(0, 1)

	errorBubbleStyle = lipgloss.NewStyle().
				Foreground(danger).
				BorderStyle(lipgloss.NormalBorder()).
				BorderLeft(true).
				BorderForeground(danger).
				PaddingLeft(1)

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true)

	boldStyle = lipgloss.NewStyle().
			Bold(true)

	linkStyle = lipgloss.NewStyle().
			Foreground(linkFg).
			Underline(true)

	welcomeTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(accent).
				MarginBottom(1)

	suggestionStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(muted)

	noticeStyle = lipgloss.NewStyle().
			Foreground(danger)
)

// applyTheme pins the background detection for "dark" and "light"; "auto"
// leaves it to the terminal query.
func applyTheme(theme string) {
	switch theme {
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	case "light":
		lipgloss.SetHasDarkBackground(false)
	}
}
