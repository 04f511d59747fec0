package ui

import (
	"errors"
	"testing"
	"time"

	"github.com/Cyclone1070/polish/internal/document"
	"github.com/Cyclone1070/polish/internal/pricing"
	"github.com/Cyclone1070/polish/internal/ui/models"
	"github.com/Cyclone1070/polish/internal/ui/views"
	"github.com/Cyclone1070/polish/internal/workflow"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockSpinnerFactory() spinner.Model {
	return spinner.New()
}

func createTestModel(events chan workflow.Event, cancel func()) BubbleTeaModel {
	return newBubbleTeaModel(events, cancel, views.DefaultStyles(), mockSpinnerFactory, 10*time.Millisecond)
}

func update(t *testing.T, m BubbleTeaModel, msg tea.Msg) (BubbleTeaModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(BubbleTeaModel), cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestInit_ReturnsCommands(t *testing.T) {
	model := createTestModel(make(chan workflow.Event), nil)
	assert.NotNil(t, model.Init())
}

func TestUpdate_EventsDriveState(t *testing.T) {
	events := make(chan workflow.Event, 1)
	m := createTestModel(events, nil)

	m, _ = update(t, m, eventMsg{workflow.RunStartEvent{Title: "Improving 2 selection(s)...", Total: 2, Model: "gpt-4o"}})
	assert.Equal(t, models.PhaseRunning, m.state.Phase)
	assert.Equal(t, "gpt-4o", m.state.Model)
	require.Len(t, m.state.Selections, 2)

	m, _ = update(t, m, eventMsg{workflow.SelectionStartEvent{Index: 0, Total: 2}})
	assert.Equal(t, models.StatusRunning, m.state.Selections[0])

	m, _ = update(t, m, eventMsg{workflow.ChunkEvent{Index: 0, Delta: "{\"improved\":\n\"Hi", Received: 16}})
	assert.Equal(t, int64(16), m.state.Received)
	assert.Equal(t, `{"improved": "Hi`, m.state.Preview)

	usage := pricing.UsageInfo{TotalTokens: 50}
	m, _ = update(t, m, eventMsg{workflow.SelectionDoneEvent{Index: 0, Applied: true, Usage: &usage}})
	assert.Equal(t, models.StatusApplied, m.state.Selections[0])
	assert.Equal(t, int64(50), m.state.Usage.TotalTokens)
	assert.Empty(t, m.state.Preview)

	m, _ = update(t, m, eventMsg{workflow.SelectionSkippedEvent{Index: 1, Reason: "blank"}})
	assert.Equal(t, models.StatusSkipped, m.state.Selections[1])

	m, cmd := update(t, m, eventMsg{workflow.DoneEvent{}})
	assert.Equal(t, models.PhaseDone, m.state.Phase)
	assert.True(t, isQuit(cmd))
}

func TestUpdate_NonFinalEventListensAgain(t *testing.T) {
	events := make(chan workflow.Event, 1)
	m := createTestModel(events, nil)

	_, cmd := update(t, m, eventMsg{workflow.RunStartEvent{Total: 1}})
	require.NotNil(t, cmd)

	events <- workflow.DoneEvent{}
	msg := cmd()
	assert.Equal(t, eventMsg{event: workflow.DoneEvent{}}, msg)
}

func TestUpdate_ClosedChannelQuits(t *testing.T) {
	events := make(chan workflow.Event)
	close(events)
	m := createTestModel(events, nil)

	msg := listenForEvents(events)()
	assert.Equal(t, eventsClosedMsg{}, msg)

	_, cmd := update(t, m, msg)
	assert.True(t, isQuit(cmd))
}

func TestUpdate_CancelKeys(t *testing.T) {
	for _, key := range []tea.KeyMsg{{Type: tea.KeyCtrlC}, {Type: tea.KeyEsc}} {
		t.Run(key.String(), func(t *testing.T) {
			var cancelled int
			m := createTestModel(make(chan workflow.Event), func() { cancelled++ })
			m, _ = update(t, m, eventMsg{workflow.RunStartEvent{Total: 1}})

			m, cmd := update(t, m, key)

			assert.Equal(t, 1, cancelled)
			assert.Equal(t, models.PhaseCancelling, m.state.Phase)
			assert.False(t, isQuit(cmd), "waits for the run to stop")
		})
	}
}

func TestUpdate_SecondCtrlCQuits(t *testing.T) {
	var cancelled int
	m := createTestModel(make(chan workflow.Event), func() { cancelled++ })

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, isQuit(cmd))
	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.True(t, isQuit(cmd))
	assert.Equal(t, 1, cancelled)
}

func TestUpdate_CancelAfterDoneIgnored(t *testing.T) {
	var cancelled int
	m := createTestModel(make(chan workflow.Event), func() { cancelled++ })
	m.state.Phase = models.PhaseDone

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.Zero(t, cancelled)
	assert.Equal(t, models.PhaseDone, m.state.Phase)
}

func TestUpdate_Tick(t *testing.T) {
	m := createTestModel(make(chan workflow.Event), nil)
	m.state.DotCount = 3

	m, cmd := update(t, m, tickMsg(time.Now()))

	assert.Equal(t, 0, m.state.DotCount)
	assert.NotNil(t, cmd)
}

func TestUpdate_WindowSize(t *testing.T) {
	m := createTestModel(make(chan workflow.Event), nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, m.state.Width)
}

func TestApply_Cancelled(t *testing.T) {
	s := models.State{Phase: models.PhaseCancelling}
	s = Apply(s, workflow.RunStartEvent{Total: 3})
	assert.Equal(t, models.PhaseCancelling, s.Phase, "start does not undo a pending cancel")

	s = Apply(s, workflow.SelectionStartEvent{Index: 0})
	s = Apply(s, workflow.CancelledEvent{Completed: 0, Total: 3})
	s = Apply(s, workflow.DoneEvent{})

	assert.Equal(t, models.PhaseCancelled, s.Phase)
	assert.Equal(t, models.StatusCancelled, s.Selections[0])
	assert.Equal(t, models.StatusPending, s.Selections[1])
}

func TestApply_Failed(t *testing.T) {
	s := Apply(models.State{}, workflow.RunStartEvent{Total: 2})
	s = Apply(s, workflow.SelectionStartEvent{Index: 0, Range: document.Range{}})
	s = Apply(s, workflow.FailedEvent{Index: 0, Err: errors.New("rate limited")})
	s = Apply(s, workflow.DoneEvent{})

	assert.Equal(t, models.PhaseFailed, s.Phase)
	assert.Equal(t, models.StatusFailed, s.Selections[0])
	assert.Equal(t, "rate limited", s.ErrText)
}

func TestApply_OutOfRangeIndexIgnored(t *testing.T) {
	s := Apply(models.State{}, workflow.RunStartEvent{Total: 1})
	s = Apply(s, workflow.SelectionDoneEvent{Index: 5, Applied: true})
	assert.Equal(t, []models.SelectionStatus{models.StatusPending}, s.Selections)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "abc", tail("abc", 5))
	assert.Equal(t, "éf", tail("abcdéf", 2))
}

func TestView_RendersState(t *testing.T) {
	m := createTestModel(make(chan workflow.Event), nil)
	m, _ = update(t, m, eventMsg{workflow.RunStartEvent{Title: "Improving 1 line(s)...", Total: 1}})

	assert.Contains(t, m.View(), "Improving 1 line(s)...")
}
