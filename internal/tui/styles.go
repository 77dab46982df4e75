package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	face     lipgloss.Style
	heart    lipgloss.Style
	headline lipgloss.Style
	question lipgloss.Style
	prompt   lipgloss.Style
	yes      lipgloss.Style
	no       lipgloss.Style
	help     lipgloss.Style
}

func defaultStyles() styles {
	pink := lipgloss.Color("#ec4899")
	rose := lipgloss.Color("#db2777")
	white := lipgloss.Color("#ffffff")

	return styles{
		face: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#f9a8d4")).
			Padding(1, 3),
		heart:    lipgloss.NewStyle().Bold(true),
		headline: lipgloss.NewStyle().Foreground(lipgloss.Color("#be185d")).Bold(true),
		question: lipgloss.NewStyle().Foreground(rose).Bold(true),
		prompt:   lipgloss.NewStyle().Foreground(rose),
		yes: lipgloss.NewStyle().
			Foreground(white).
			Background(pink).
			Bold(true).
			Padding(0, 2),
		no: lipgloss.NewStyle().
			Foreground(white).
			Background(lipgloss.Color("#9ca3af")).
			Padding(0, 2),
		help: lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280")),
	}
}
