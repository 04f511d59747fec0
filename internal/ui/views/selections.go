package views

import (
	"fmt"
	"strings"

	"github.com/Cyclone1070/polish/internal/ui/models"
)

// RenderSelections renders one line per selection.
func RenderSelections(s models.State, st Styles) string {
	lines := make([]string, 0, len(s.Selections))
	for i, status := range s.Selections {
		label := fmt.Sprintf("%d/%d", i+1, len(s.Selections))
		lines = append(lines, renderSelection(label, status, s, st))
	}
	return strings.Join(lines, "\n")
}

func renderSelection(label string, status models.SelectionStatus, s models.State, st Styles) string {
	switch status {
	case models.StatusRunning:
		return st.Running.Render(fmt.Sprintf("%s %s", s.Spinner.View(), label))
	case models.StatusApplied:
		return st.Success.Render("✔ " + label)
	case models.StatusDiscarded:
		return st.Muted.Render("○ " + label + " unchanged (unusable response)")
	case models.StatusSkipped:
		return st.Muted.Render("- " + label + " skipped")
	case models.StatusFailed:
		return st.Error.Render("✘ " + label)
	case models.StatusCancelled:
		return st.Muted.Render("■ " + label + " cancelled")
	default:
		return st.Muted.Render("· " + label)
	}
}

// RenderProgress renders "finished/total" with a bar.
func RenderProgress(s models.State, st Styles) string {
	total := len(s.Selections)
	if total == 0 {
		return ""
	}
	const width = 20
	filled := s.Finished() * width / total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return st.Progress.Render(bar) + " " + st.Muted.Render(fmt.Sprintf("%d/%d", s.Finished(), total))
}
