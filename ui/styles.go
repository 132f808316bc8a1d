package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Accent marks attribute names and tree labels.
	Accent = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA"))

	// Muted is for record ids and other secondary info.
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))

	Bold = lipgloss.NewStyle().Bold(true)
)
