package orchestrator

import (
	"github.com/Cyclone1070/polish/internal/document"
	"github.com/Cyclone1070/polish/internal/pricing"
	provider "github.com/Cyclone1070/polish/internal/provider/models"
)

// Phase is the state of a run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseCancelled
	PhaseFailed
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseCancelled:
		return "cancelled"
	case PhaseFailed:
		return "failed"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// SelectionResult records one selection whose stream completed.
type SelectionResult struct {
	Index   int
	ID      int
	Range   document.Range
	Applied bool
	Usage   *pricing.UsageInfo

	// FinishReason is set when the service stopped generating early.
	FinishReason provider.FinishReason
}

// Summary describes a finished run.
type Summary struct {
	Phase Phase
	Model string

	// Total is the number of targets; Current the index of the last one
	// started.
	Total   int
	Current int

	Applied   int
	Discarded int
	Skipped   int

	Results []SelectionResult
	Usage   pricing.UsageInfo
}
