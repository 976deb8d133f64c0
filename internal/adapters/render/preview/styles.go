package preview

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	date    lipgloss.Style
	repo    lipgloss.Style
	kind    lipgloss.Style
	item    lipgloss.Style
	url     lipgloss.Style
	section lipgloss.Style
	empty   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		header:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		date:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		repo:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("252")).PaddingLeft(2),
		kind:    lipgloss.NewStyle().Foreground(lipgloss.Color("250")).PaddingLeft(4),
		item:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")).PaddingLeft(6),
		url:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		section: lipgloss.NewStyle().MarginTop(1),
		empty:   lipgloss.NewStyle().Faint(true),
	}
}
