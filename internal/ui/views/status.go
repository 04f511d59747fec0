package views

import (
	"fmt"
	"strings"

	"github.com/Cyclone1070/polish/internal/ui/models"
)

// RenderStatus renders the status line.
func RenderStatus(s models.State, st Styles) string {
	switch s.Phase {
	case models.PhaseRunning:
		dots := strings.Repeat(".", s.DotCount)
		line := st.Running.Render(fmt.Sprintf("%s Generating%s", s.Spinner.View(), dots))
		if s.Received > 0 {
			line += "  " + st.Muted.Render(formatBytes(s.Received))
		}
		return line
	case models.PhaseCancelling:
		return st.Muted.Render(fmt.Sprintf("%s Cancelling...", s.Spinner.View()))
	case models.PhaseCancelled:
		return st.Muted.Render(fmt.Sprintf("■ Cancelled after %d of %d", s.Finished(), len(s.Selections)))
	case models.PhaseFailed:
		msg := "✘ Failed"
		if s.ErrText != "" {
			msg += ": " + s.ErrText
		}
		return st.Error.Render(msg)
	case models.PhaseDone:
		return st.Success.Render("✔ Done")
	default:
		return st.Muted.Render(fmt.Sprintf("%s Starting", s.Spinner.View()))
	}
}

func formatBytes(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.1f KB", float64(n)/1024)
}
