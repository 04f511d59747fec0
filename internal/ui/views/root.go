// Package views renders the progress UI.
package views

import (
	"fmt"

	"github.com/Cyclone1070/polish/internal/ui/models"
	"github.com/charmbracelet/lipgloss"
)

// RenderRoot renders the complete UI layout
func RenderRoot(s models.State, st Styles) string {
	header := st.Title.Render(s.Title)
	if s.Title == "" {
		header = st.Title.Render("Improving...")
	}
	if s.Model != "" {
		header += "  " + st.Muted.Render(s.Model)
	}

	sections := []string{header}
	if progress := RenderProgress(s, st); progress != "" {
		sections = append(sections, progress)
	}
	if len(s.Selections) > 1 {
		sections = append(sections, RenderSelections(s, st))
	}
	if s.Phase == models.PhaseRunning && s.Preview != "" {
		sections = append(sections, st.Preview.Render(s.Preview))
	}
	sections = append(sections, RenderStatus(s, st))

	if s.Usage.TotalTokens > 0 {
		sections = append(sections, st.Muted.Render(fmt.Sprintf("%d tokens · $%.4f", s.Usage.TotalTokens, s.Usage.EstimatedCost)))
	}
	if s.Phase == models.PhaseRunning || s.Phase == models.PhaseStarting {
		sections = append(sections, st.Muted.Render("esc/ctrl+c: cancel"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
