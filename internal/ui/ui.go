// Package ui shows the progress of an improve run and lets the user cancel it.
package ui

import (
	"io"
	"time"

	"github.com/Cyclone1070/polish/internal/config"
	"github.com/Cyclone1070/polish/internal/ui/views"
	"github.com/Cyclone1070/polish/internal/workflow"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// UI renders workflow events with Bubble Tea.
type UI struct {
	program *tea.Program
	events  <-chan workflow.Event
}

// Options configures a UI.
type Options struct {
	Config         config.UIConfig
	SpinnerFactory SpinnerFactory
	Input          io.Reader
	Output         io.Writer
}

// NewUI creates a UI reading events until DoneEvent or until events is
// closed. cancel is called when the user asks to stop.
func NewUI(events <-chan workflow.Event, cancel func(), opts Options) *UI {
	if events == nil {
		panic("events is required")
	}
	styles := views.NewStyles(opts.Config)
	factory := opts.SpinnerFactory
	if factory == nil {
		factory = func() spinner.Model {
			return spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Running))
		}
	}
	tickEvery := time.Duration(opts.Config.TickIntervalMs) * time.Millisecond
	if tickEvery <= 0 {
		tickEvery = 100 * time.Millisecond
	}

	model := newBubbleTeaModel(events, cancel, styles, factory, tickEvery)

	var progOpts []tea.ProgramOption
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}
	// Bubble Tea owns SIGINT; ctrl+c arrives as a key press.
	return &UI{program: tea.NewProgram(model, progOpts...), events: events}
}

// Start runs the UI until the run finishes. Events arriving after the
// program quits are drained so the sender never blocks.
func (u *UI) Start() error {
	_, err := u.program.Run()
	for range u.events {
	}
	return err
}
