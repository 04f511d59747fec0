// Package workflow defines the progress events an improve run reports.
package workflow

import (
	"github.com/Cyclone1070/polish/internal/document"
	"github.com/Cyclone1070/polish/internal/pricing"
)

// Event is the interface for all workflow events.
// UI handles events via type switch.
type Event interface {
	isEvent()
}

// RunStartEvent is emitted once the targets are known.
type RunStartEvent struct {
	Title string // e.g., "Improving 2 selection(s)..."
	Total int
	Model string
}

func (RunStartEvent) isEvent() {}

// SelectionStartEvent is emitted before a selection's request is sent.
type SelectionStartEvent struct {
	Index int
	Total int
	Range document.Range
}

func (SelectionStartEvent) isEvent() {}

// ChunkEvent is emitted for every streamed chunk of the active selection.
type ChunkEvent struct {
	Index    int
	Delta    string
	Received int64 // bytes received so far for this selection
}

func (ChunkEvent) isEvent() {}

// SelectionSkippedEvent is emitted when a selection is not sent.
type SelectionSkippedEvent struct {
	Index  int
	Reason string
}

func (SelectionSkippedEvent) isEvent() {}

// SelectionDoneEvent is emitted when a selection's stream has completed.
// Applied is false when the response held no usable payload.
type SelectionDoneEvent struct {
	Index   int
	Applied bool
	Usage   *pricing.UsageInfo
}

func (SelectionDoneEvent) isEvent() {}

// CancelledEvent is emitted when the run stops on user request.
type CancelledEvent struct {
	Completed int
	Total     int
}

func (CancelledEvent) isEvent() {}

// FailedEvent is emitted when a selection fails and the run aborts.
type FailedEvent struct {
	Index int
	Err   error
}

func (FailedEvent) isEvent() {}

// DoneEvent is emitted last, whatever the outcome.
type DoneEvent struct{}

func (DoneEvent) isEvent() {}
