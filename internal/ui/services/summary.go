package services

import (
	"fmt"
	"strings"

	"github.com/Cyclone1070/polish/internal/orchestrator"
)

// FormatSummary describes a finished run in one line.
func FormatSummary(s *orchestrator.Summary) string {
	if s == nil {
		return ""
	}

	var sb strings.Builder
	switch s.Phase {
	case orchestrator.PhaseCancelled:
		fmt.Fprintf(&sb, "Cancelled: %d of %d selection(s) improved", s.Applied, s.Total)
	case orchestrator.PhaseFailed:
		fmt.Fprintf(&sb, "Failed: %d of %d selection(s) improved before the error", s.Applied, s.Total)
	default:
		fmt.Fprintf(&sb, "Improved %d of %d selection(s)", s.Applied, s.Total)
	}

	var extra []string
	if s.Discarded > 0 {
		extra = append(extra, fmt.Sprintf("%d unchanged", s.Discarded))
	}
	if s.Skipped > 0 {
		extra = append(extra, fmt.Sprintf("%d skipped", s.Skipped))
	}
	if len(extra) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(extra, ", "))
	}

	if s.Usage.TotalTokens > 0 {
		fmt.Fprintf(&sb, " · %d tokens · $%.4f", s.Usage.TotalTokens, s.Usage.EstimatedCost)
	}
	return sb.String()
}
