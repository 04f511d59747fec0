package ui

import (
	"strings"
	"time"

	"github.com/Cyclone1070/polish/internal/ui/models"
	"github.com/Cyclone1070/polish/internal/ui/views"
	"github.com/Cyclone1070/polish/internal/workflow"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// previewRunes is how much of the streamed response the view shows.
const previewRunes = 120

// SpinnerFactory creates a new spinner
type SpinnerFactory func() spinner.Model

// BubbleTeaModel implements tea.Model
type BubbleTeaModel struct {
	state  models.State
	styles views.Styles

	events    <-chan workflow.Event
	cancel    func()
	tickEvery time.Duration
}

// newBubbleTeaModel creates a new Bubble Tea model
func newBubbleTeaModel(events <-chan workflow.Event, cancel func(), styles views.Styles, spinnerFactory SpinnerFactory, tickEvery time.Duration) BubbleTeaModel {
	return BubbleTeaModel{
		state: models.State{
			Phase:   models.PhaseStarting,
			Spinner: spinnerFactory(),
		},
		styles:    styles,
		events:    events,
		cancel:    cancel,
		tickEvery: tickEvery,
	}
}

// Internal messages
type tickMsg time.Time
type eventMsg struct{ event workflow.Event }
type eventsClosedMsg struct{}

// Init initializes the model
func (m BubbleTeaModel) Init() tea.Cmd {
	return tea.Batch(
		m.state.Spinner.Tick,
		m.tick(),
		listenForEvents(m.events),
	)
}

// Update handles messages
func (m BubbleTeaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.state.Width = msg.Width
		return m, nil

	case tickMsg:
		m.state.DotCount = (m.state.DotCount + 1) % 4
		return m, m.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.state.Spinner, cmd = m.state.Spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m.state = Apply(m.state, msg.event)
		if _, ok := msg.event.(workflow.DoneEvent); ok {
			return m, tea.Quit
		}
		return m, listenForEvents(m.events)

	case eventsClosedMsg:
		return m, tea.Quit
	}

	return m, nil
}

// handleKeyPress handles keyboard input. The first ctrl+c or esc asks the run
// to stop and waits for it; a second ctrl+c leaves at once.
func (m BubbleTeaModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		if m.state.Phase == models.PhaseCancelling {
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		}
		if m.state.Phase == models.PhaseStarting || m.state.Phase == models.PhaseRunning {
			m.state.Phase = models.PhaseCancelling
			if m.cancel != nil {
				m.cancel()
			}
		}
	}
	return m, nil
}

// View renders the UI
func (m BubbleTeaModel) View() string {
	return views.RenderRoot(m.state, m.styles) + "\n"
}

// Apply folds one workflow event into the view state.
func Apply(s models.State, ev workflow.Event) models.State {
	switch ev := ev.(type) {
	case workflow.RunStartEvent:
		s.Title = ev.Title
		s.Model = ev.Model
		s.Selections = make([]models.SelectionStatus, ev.Total)
		if s.Phase != models.PhaseCancelling {
			s.Phase = models.PhaseRunning
		}

	case workflow.SelectionStartEvent:
		s.Current = ev.Index
		s.Received = 0
		s.Preview = ""
		setStatus(&s, ev.Index, models.StatusRunning)

	case workflow.ChunkEvent:
		s.Received = ev.Received
		s.Preview = tail(s.Preview+strings.ReplaceAll(ev.Delta, "\n", " "), previewRunes)

	case workflow.SelectionSkippedEvent:
		setStatus(&s, ev.Index, models.StatusSkipped)

	case workflow.SelectionDoneEvent:
		if ev.Applied {
			setStatus(&s, ev.Index, models.StatusApplied)
		} else {
			setStatus(&s, ev.Index, models.StatusDiscarded)
		}
		if ev.Usage != nil {
			s.Usage = s.Usage.Add(*ev.Usage)
		}
		s.Preview = ""

	case workflow.CancelledEvent:
		s.Phase = models.PhaseCancelled
		for i, st := range s.Selections {
			if st == models.StatusRunning {
				s.Selections[i] = models.StatusCancelled
			}
		}

	case workflow.FailedEvent:
		s.Phase = models.PhaseFailed
		setStatus(&s, ev.Index, models.StatusFailed)
		if ev.Err != nil {
			s.ErrText = ev.Err.Error()
		}

	case workflow.DoneEvent:
		if s.Phase == models.PhaseRunning || s.Phase == models.PhaseStarting {
			s.Phase = models.PhaseDone
		}
	}
	return s
}

func setStatus(s *models.State, i int, status models.SelectionStatus) {
	if i >= 0 && i < len(s.Selections) {
		s.Selections[i] = status
	}
}

// tail keeps the last n runes of text.
func tail(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[len(r)-n:])
}

func listenForEvents(ch <-chan workflow.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{event: ev}
	}
}

func (m BubbleTeaModel) tick() tea.Cmd {
	return tea.Tick(m.tickEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
