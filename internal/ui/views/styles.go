package views

import (
	"github.com/Cyclone1070/polish/internal/config"
	"github.com/charmbracelet/lipgloss"
)

// Styles are the lipgloss styles of the progress view.
type Styles struct {
	Title    lipgloss.Style
	Running  lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Muted    lipgloss.Style
	Preview  lipgloss.Style
	Progress lipgloss.Style
}

// NewStyles builds styles from the configured colors.
func NewStyles(cfg config.UIConfig) Styles {
	primary := lipgloss.Color(cfg.ColorPrimary)
	muted := lipgloss.Color(cfg.ColorMuted)
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(primary),
		Running:  lipgloss.NewStyle().Foreground(primary),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.ColorSuccess)),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.ColorError)).Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(muted),
		Preview:  lipgloss.NewStyle().Foreground(muted).Italic(true).PaddingLeft(2),
		Progress: lipgloss.NewStyle().Foreground(primary).Bold(true),
	}
}

// DefaultStyles uses the default UI colors.
func DefaultStyles() Styles {
	return NewStyles(config.DefaultConfig().UI)
}
