package tui

import "github.com/charmbracelet/lipgloss"

var (
	concealedStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Background(lipgloss.Color("238")).
			Foreground(lipgloss.Color("250"))

	tokenStyle = func(hex string) lipgloss.Style {
		return lipgloss.NewStyle().
			Padding(0, 1).
			Background(lipgloss.Color(hex)).
			Foreground(lipgloss.Color("0"))
	}

	// Cursor keeps the cell colour and adds emphasis.
	cursorStyle = func(base lipgloss.Style) lipgloss.Style {
		return base.Bold(true).Underline(true)
	}

	gapStyle = lipgloss.NewStyle().Width(1)

	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Margin(1, 0, 0, 0)

	mistakeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4500")).Bold(true)

	boxStyle = func(border string) lipgloss.Style {
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 2).
			BorderForeground(lipgloss.Color(border))
	}

	titleStyle = lipgloss.NewStyle().Bold(true).Align(lipgloss.Center)
)
