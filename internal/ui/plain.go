package ui

import (
	"fmt"
	"io"

	"github.com/Cyclone1070/polish/internal/ui/models"
	"github.com/Cyclone1070/polish/internal/workflow"
)

// Reporter writes workflow events as plain lines, for non-interactive output.
type Reporter struct {
	w     io.Writer
	state models.State
}

// NewReporter creates a Reporter writing to w.
func NewReporter(w io.Writer) *Reporter {
	if w == nil {
		panic("writer is required")
	}
	return &Reporter{w: w}
}

// Run handles events until the channel is closed.
func (r *Reporter) Run(events <-chan workflow.Event) {
	for ev := range events {
		r.Handle(ev)
	}
}

// Handle writes the line for one event, if it has one.
func (r *Reporter) Handle(ev workflow.Event) {
	r.state = Apply(r.state, ev)
	total := len(r.state.Selections)

	switch ev := ev.(type) {
	case workflow.RunStartEvent:
		fmt.Fprintf(r.w, "%s (%s)\n", ev.Title, ev.Model)
	case workflow.SelectionStartEvent:
		fmt.Fprintf(r.w, "[%d/%d] lines %d-%d\n", ev.Index+1, ev.Total, ev.Range.Start.Line+1, ev.Range.End.Line+1)
	case workflow.SelectionSkippedEvent:
		fmt.Fprintf(r.w, "[%d/%d] skipped (%s)\n", ev.Index+1, total, ev.Reason)
	case workflow.SelectionDoneEvent:
		if ev.Applied {
			fmt.Fprintf(r.w, "[%d/%d] applied\n", ev.Index+1, total)
		} else {
			fmt.Fprintf(r.w, "[%d/%d] unchanged: response had no usable text\n", ev.Index+1, total)
		}
	case workflow.CancelledEvent:
		fmt.Fprintf(r.w, "cancelled after %d of %d\n", ev.Completed, ev.Total)
	case workflow.FailedEvent:
		fmt.Fprintf(r.w, "[%d/%d] failed: %v\n", ev.Index+1, total, ev.Err)
	}
}

// State returns the accumulated view state.
func (r *Reporter) State() models.State {
	return r.state
}
