// Package models holds the state rendered by the progress view.
package models

import (
	"github.com/Cyclone1070/polish/internal/pricing"
	"github.com/charmbracelet/bubbles/spinner"
)

// SelectionStatus is the progress of one selection.
type SelectionStatus int

const (
	StatusPending SelectionStatus = iota
	StatusRunning
	StatusApplied
	StatusDiscarded
	StatusSkipped
	StatusFailed
	StatusCancelled
)

// Phase of the whole run as shown to the user.
const (
	PhaseStarting   = "starting"
	PhaseRunning    = "running"
	PhaseCancelling = "cancelling"
	PhaseCancelled  = "cancelled"
	PhaseFailed     = "failed"
	PhaseDone       = "done"
)

// State is everything the view needs.
type State struct {
	Title string
	Model string

	Phase      string
	Selections []SelectionStatus
	Current    int

	// Received counts response bytes of the current selection; Preview holds
	// its most recent text.
	Received int64
	Preview  string

	Usage   pricing.UsageInfo
	ErrText string

	Spinner  spinner.Model
	DotCount int
	Width    int
}

// Count returns how many selections have status s.
func (s State) Count(status SelectionStatus) int {
	n := 0
	for _, st := range s.Selections {
		if st == status {
			n++
		}
	}
	return n
}

// Finished reports how many selections are no longer pending or running.
func (s State) Finished() int {
	return len(s.Selections) - s.Count(StatusPending) - s.Count(StatusRunning)
}
