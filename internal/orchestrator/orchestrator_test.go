package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Cyclone1070/polish/internal/document"
	provider "github.com/Cyclone1070/polish/internal/provider/models"
	"github.com/Cyclone1070/polish/internal/testing/testhelpers"
	"github.com/Cyclone1070/polish/internal/workflow"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

type fakeTokens struct {
	EstimateChatFunc func(model, systemPrompt, userPrompt string) int64
}

func (f *fakeTokens) EstimateChat(model, systemPrompt, userPrompt string) int64 {
	return f.EstimateChatFunc(model, systemPrompt, userPrompt)
}

func improved(text string) func(ctx context.Context) provider.ResponseStream {
	return func(context.Context) provider.ResponseStream {
		return testhelpers.PayloadStream(text, 4)
	}
}

func cursors(t *testing.T, text string, lines ...int) *document.Buffer {
	t.Helper()
	buf := document.NewBuffer(text)
	for _, l := range lines {
		_, err := buf.AddSelection(pos(l, 0), pos(l, 0))
		require.NoError(t, err)
	}
	return buf
}

func drain(events chan workflow.Event) []workflow.Event {
	close(events)
	var out []workflow.Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestNew_PanicsWithoutDependencies(t *testing.T) {
	assert.Panics(t, func() { New(Dependencies{Provider: testhelpers.NewMockProvider()}) })
	assert.Panics(t, func() { New(Dependencies{Document: document.NewBuffer("")}) })
}

func TestRun_ImprovesEverySelectionInOrder(t *testing.T) {
	buf := cursors(t, "first line\nsecond line\nthird line", 2, 0, 1)
	mock := testhelpers.NewMockProvider(
		improved("First line."),
		improved("Second line, improved."),
		improved("Third line."),
	)
	events := make(chan workflow.Event, 256)

	o := New(Dependencies{Document: buf, Provider: mock, Events: events})
	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "First line.\nSecond line, improved.\nThird line.", buf.FullText())
	assert.Equal(t, PhaseDone, summary.Phase)
	assert.Equal(t, PhaseDone, o.Phase())
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Applied)
	assert.Zero(t, summary.Discarded)
	assert.Zero(t, summary.Skipped)
	require.Len(t, summary.Results, 3)
	assert.Equal(t, int64(360), summary.Usage.TotalTokens)
	assert.Equal(t, 3, buf.UndoDepth(), "each selection is its own undo step")

	reqs := mock.Requests()
	require.Len(t, reqs, 3)
	assert.Contains(t, reqs[0].UserPrompt, "first line")
	assert.Contains(t, reqs[1].UserPrompt, "second line")
	assert.Contains(t, reqs[2].UserPrompt, "third line")
	for _, r := range reqs {
		assert.True(t, r.JSONMode)
		assert.Contains(t, r.SystemPrompt, "first line\nsecond line\nthird line")
	}

	got := drain(events)
	require.NotEmpty(t, got)
	start, ok := got[0].(workflow.RunStartEvent)
	require.True(t, ok)
	assert.Equal(t, "Improving 3 line(s)...", start.Title)
	assert.Equal(t, 3, start.Total)
	assert.Equal(t, "gpt-4o-mini", start.Model)
	assert.IsType(t, workflow.DoneEvent{}, got[len(got)-1])

	var done int
	for _, ev := range got {
		if d, ok := ev.(workflow.SelectionDoneEvent); ok {
			assert.Equal(t, done, d.Index)
			assert.True(t, d.Applied)
			require.NotNil(t, d.Usage)
			done++
		}
	}
	assert.Equal(t, 3, done)
}

func TestRun_EventOrderForOneSelection(t *testing.T) {
	buf := cursors(t, "hello", 0)
	mock := testhelpers.NewMockProvider(improved("Hello."))
	events := make(chan workflow.Event, 64)

	_, err := New(Dependencies{Document: buf, Provider: mock, Events: events}).Run(context.Background())
	require.NoError(t, err)

	got := drain(events)
	require.GreaterOrEqual(t, len(got), 5)
	assert.IsType(t, workflow.RunStartEvent{}, got[0])
	assert.IsType(t, workflow.SelectionStartEvent{}, got[1])
	for _, ev := range got[2 : len(got)-2] {
		assert.IsType(t, workflow.ChunkEvent{}, ev)
	}
	assert.IsType(t, workflow.SelectionDoneEvent{}, got[len(got)-2])
	assert.IsType(t, workflow.DoneEvent{}, got[len(got)-1])

	last := got[len(got)-3].(workflow.ChunkEvent)
	assert.Equal(t, int64(len(`{"improved":"Hello."}`)), last.Received)
}

func TestRun_RestoresIndentation(t *testing.T) {
	buf := document.NewBuffer("def f():\n  line1\n  line2\n    line3\n")
	_, err := buf.AddSelection(pos(1, 0), pos(3, 9))
	require.NoError(t, err)
	mock := testhelpers.NewMockProvider(improved("Line One\nLine Two\n  Line Three"))

	_, err = New(Dependencies{Document: buf, Provider: mock}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "def f():\n  Line One\n  Line Two\n    Line Three\n", buf.FullText())
	require.Len(t, mock.Requests(), 1)
	assert.Contains(t, mock.Requests()[0].UserPrompt, "line1\nline2\n  line3")
}

func TestRun_FailureStopsRemainingSelections(t *testing.T) {
	buf := cursors(t, "first\nsecond\nthird", 0, 1, 2)
	boom := errors.New("stream reset")
	mock := testhelpers.NewMockProvider(
		improved("First."),
		func(context.Context) provider.ResponseStream {
			return testhelpers.FailingStream(boom, `{"impro`)
		},
		improved("Third."),
	)
	events := make(chan workflow.Event, 256)

	o := New(Dependencies{Document: buf, Provider: mock, Events: events})
	summary, err := o.Run(context.Background())

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "selection 2/3")
	assert.Equal(t, PhaseFailed, summary.Phase)
	assert.Equal(t, PhaseFailed, o.Phase())
	assert.Equal(t, 1, summary.Applied)
	assert.Len(t, mock.Requests(), 2, "third selection is never requested")
	assert.Equal(t, "First.\nsecond\nthird", buf.FullText(), "earlier edit stays")

	got := drain(events)
	var failed *workflow.FailedEvent
	for _, ev := range got {
		if f, ok := ev.(workflow.FailedEvent); ok {
			failed = &f
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, 1, failed.Index)
	assert.IsType(t, workflow.DoneEvent{}, got[len(got)-1])
}

func TestRun_StreamOpenErrorFails(t *testing.T) {
	buf := cursors(t, "text", 0)
	mock := &testhelpers.MockProvider{
		ModelName: "gpt-4o-mini",
		StreamFunc: func(context.Context, int, *provider.Request) (provider.ResponseStream, error) {
			return nil, &provider.ProviderError{Code: provider.ErrorCodeAuth, Message: "bad key"}
		},
	}

	summary, err := New(Dependencies{Document: buf, Provider: mock}).Run(context.Background())

	var perr *provider.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, provider.ErrorCodeAuth, perr.Code)
	assert.Equal(t, PhaseFailed, summary.Phase)
	assert.Equal(t, "text", buf.FullText())
}

func TestRun_CancelMidStream(t *testing.T) {
	buf := cursors(t, "first\nsecond\nthird", 0, 1, 2)
	var o *Orchestrator
	mock := testhelpers.NewMockProvider(
		improved("First."),
		func(ctx context.Context) provider.ResponseStream {
			return testhelpers.NewBlockingStream(ctx, func() { o.Cancel() }, `{"improved":"Sec`)
		},
		improved("Third."),
	)
	events := make(chan workflow.Event, 256)
	o = New(Dependencies{Document: buf, Provider: mock, Events: events})

	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PhaseCancelled, summary.Phase)
	assert.Equal(t, PhaseCancelled, o.Phase())
	assert.Equal(t, 1, summary.Applied)
	assert.Len(t, mock.Requests(), 2)
	assert.Equal(t, "First.\nsecond\nthird", buf.FullText(), "partial response is not applied")

	got := drain(events)
	require.GreaterOrEqual(t, len(got), 2)
	cancelled, ok := got[len(got)-2].(workflow.CancelledEvent)
	require.True(t, ok)
	assert.Equal(t, 1, cancelled.Completed)
	assert.Equal(t, 3, cancelled.Total)
	assert.IsType(t, workflow.DoneEvent{}, got[len(got)-1])
}

func TestRun_ContextCancelled(t *testing.T) {
	buf := cursors(t, "first\nsecond", 0, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mock := testhelpers.NewMockProvider(
		func(streamCtx context.Context) provider.ResponseStream {
			return testhelpers.NewBlockingStream(streamCtx, cancel)
		},
	)

	summary, err := New(Dependencies{Document: buf, Provider: mock}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, PhaseCancelled, summary.Phase)
	assert.Len(t, mock.Requests(), 1)
	assert.Equal(t, "first\nsecond", buf.FullText())
}

func TestRun_CancelBeforeRun(t *testing.T) {
	buf := cursors(t, "text", 0)
	mock := testhelpers.NewMockProvider(improved("Text."))
	events := make(chan workflow.Event, 16)
	o := New(Dependencies{Document: buf, Provider: mock, Events: events})

	o.Cancel()
	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PhaseCancelled, summary.Phase)
	assert.Empty(t, mock.Requests())
	assert.Equal(t, "text", buf.FullText())

	got := drain(events)
	assert.IsType(t, workflow.RunStartEvent{}, got[0])
	assert.IsType(t, workflow.CancelledEvent{}, got[1])
	assert.IsType(t, workflow.DoneEvent{}, got[2])
}

func TestRun_NoContent(t *testing.T) {
	tests := []struct {
		name string
		buf  func(t *testing.T) *document.Buffer
	}{
		{
			name: "no selections",
			buf:  func(*testing.T) *document.Buffer { return document.NewBuffer("text") },
		},
		{
			name: "only whitespace",
			buf:  func(t *testing.T) *document.Buffer { return cursors(t, "   \n\t\ntext", 0, 1) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testhelpers.NewMockProvider()
			events := make(chan workflow.Event, 4)

			o := New(Dependencies{Document: tt.buf(t), Provider: mock, Events: events})
			_, err := o.Run(context.Background())

			require.ErrorIs(t, err, ErrNoContent)
			assert.Empty(t, mock.Requests())
			assert.Equal(t, PhaseIdle, o.Phase())
			assert.Equal(t, []workflow.Event{workflow.DoneEvent{}}, drain(events))
		})
	}
}

func TestRun_SkipsBlankSelections(t *testing.T) {
	buf := cursors(t, "hello\n   \nworld", 0, 1, 2)
	mock := testhelpers.NewMockProvider(improved("Hello."), improved("World."))
	events := make(chan workflow.Event, 256)

	summary, err := New(Dependencies{Document: buf, Provider: mock, Events: events}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Hello.\n   \nWorld.", buf.FullText())
	assert.Equal(t, 2, summary.Applied)
	assert.Equal(t, 1, summary.Skipped)
	assert.Len(t, mock.Requests(), 2)

	var skipped []workflow.SelectionSkippedEvent
	for _, ev := range drain(events) {
		if s, ok := ev.(workflow.SelectionSkippedEvent); ok {
			skipped = append(skipped, s)
		}
	}
	require.Len(t, skipped, 1)
	assert.Equal(t, 1, skipped[0].Index)
	assert.Equal(t, "blank", skipped[0].Reason)
}

func TestRun_SkipsRemovedSelection(t *testing.T) {
	buf := document.NewBuffer("one\ntwo")
	first, err := buf.AddSelection(pos(0, 0), pos(0, 0))
	require.NoError(t, err)
	second, err := buf.AddSelection(pos(1, 0), pos(1, 0))
	require.NoError(t, err)

	mock := &testhelpers.MockProvider{
		ModelName: "gpt-4o-mini",
		StreamFunc: func(context.Context, int, *provider.Request) (provider.ResponseStream, error) {
			require.NoError(t, buf.RemoveSelection(second.ID))
			return testhelpers.PayloadStream("One.", 3), nil
		},
	}

	summary, err := New(Dependencies{Document: buf, Provider: mock}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "One.\ntwo", buf.FullText())
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, first.ID, summary.Results[0].ID)
	assert.Len(t, mock.Requests(), 1)
}

func TestRun_MalformedResponseIsDiscarded(t *testing.T) {
	buf := cursors(t, "first\nsecond", 0, 1)
	mock := testhelpers.NewMockProvider(
		func(context.Context) provider.ResponseStream {
			return testhelpers.TextStream(nil, "Sure! Here is ", "the improved text.")
		},
		improved("Second."),
	)
	var logs bytes.Buffer
	ctx := zerolog.New(&logs).WithContext(context.Background())

	summary, err := New(Dependencies{Document: buf, Provider: mock}).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, "first\nSecond.", buf.FullText())
	assert.Equal(t, PhaseDone, summary.Phase)
	assert.Equal(t, 1, summary.Applied)
	assert.Equal(t, 1, summary.Discarded)
	assert.False(t, summary.Results[0].Applied)
	assert.Nil(t, summary.Results[0].Usage)
	assert.Contains(t, logs.String(), `"level":"warn"`)
}

func TestRun_ResponseTooLarge(t *testing.T) {
	buf := cursors(t, "text", 0)
	mock := testhelpers.NewMockProvider(improved("a very long improvement of the text"))

	summary, err := New(Dependencies{Document: buf, Provider: mock, MaxResponseBytes: 16}).Run(context.Background())

	require.ErrorIs(t, err, ErrResponseTooLarge)
	assert.Equal(t, PhaseFailed, summary.Phase)
	assert.Equal(t, "text", buf.FullText())
}

func TestRun_PassesGenerateConfig(t *testing.T) {
	temp := float32(0.2)
	maxTokens := 512
	cfg := &provider.GenerateConfig{Temperature: &temp, MaxOutputTokens: &maxTokens}
	mock := testhelpers.NewMockProvider(improved("Text."))

	_, err := New(Dependencies{Document: cursors(t, "text", 0), Provider: mock, GenerateConfig: cfg}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, mock.Requests(), 1)
	assert.Same(t, cfg, mock.Requests()[0].Config)
}

func TestRun_ReplaceErrorFails(t *testing.T) {
	buf := cursors(t, "text", 0)
	conflict := errors.New("disk changed")
	doc := &failingEditor{Buffer: buf, err: conflict}
	mock := testhelpers.NewMockProvider(improved("Text."))

	summary, err := New(Dependencies{Document: doc, Provider: mock}).Run(context.Background())
	require.ErrorIs(t, err, conflict)
	assert.Equal(t, PhaseFailed, summary.Phase)
}

type failingEditor struct {
	*document.Buffer
	err error
}

func (f *failingEditor) Replace(context.Context, document.Range, string, document.ReplaceOptions) error {
	return f.err
}

func TestRun_PreflightWarnsButSends(t *testing.T) {
	buf := cursors(t, "text", 0)
	mock := testhelpers.NewMockProvider(improved("Text."))
	var seen []string
	tokens := &fakeTokens{EstimateChatFunc: func(model, _, user string) int64 {
		seen = append(seen, model)
		return 1 << 40
	}}
	var logs bytes.Buffer
	ctx := zerolog.New(&logs).WithContext(context.Background())

	summary, err := New(Dependencies{Document: buf, Provider: mock, Tokens: tokens}).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Applied)
	assert.Equal(t, []string{"gpt-4o-mini"}, seen)
	assert.Contains(t, logs.String(), "prompt may exceed the model's context window")
}

func TestRun_LogsUsage(t *testing.T) {
	buf := cursors(t, "text", 0)
	mock := testhelpers.NewMockProvider(improved("Text."))
	var logs bytes.Buffer
	ctx := zerolog.New(&logs).WithContext(context.Background())

	_, err := New(Dependencies{Document: buf, Provider: mock}).Run(ctx)
	require.NoError(t, err)

	var found bool
	for _, line := range bytes.Split(logs.Bytes(), []byte("\n")) {
		var entry map[string]any
		if json.Unmarshal(line, &entry) != nil || entry["message"] != "usage" {
			continue
		}
		found = true
		assert.EqualValues(t, 100, entry["input_tokens"])
		assert.EqualValues(t, 20, entry["output_tokens"])
		assert.EqualValues(t, 1, entry["selection"])
	}
	assert.True(t, found)
}

// logEntry returns the first JSON log line with the given message.
func logEntry(t *testing.T, logs *bytes.Buffer, message string) map[string]any {
	t.Helper()
	for _, line := range bytes.Split(logs.Bytes(), []byte("\n")) {
		var entry map[string]any
		if json.Unmarshal(line, &entry) == nil && entry["message"] == message {
			return entry
		}
	}
	t.Fatalf("no %q log entry in:\n%s", message, logs.String())
	return nil
}

func TestRun_TruncatedResponseIsDiscardedAndRunContinues(t *testing.T) {
	buf := cursors(t, "first\nsecond", 0, 1)
	mock := testhelpers.NewMockProvider(
		func(context.Context) provider.ResponseStream {
			return &testhelpers.ScriptedStream{Chunks: []provider.StreamChunk{
				{Delta: `{"improved":"Fir`},
				{Done: true, FinishReason: provider.FinishReasonMaxTokens},
			}}
		},
		improved("Second."),
	)
	var logs bytes.Buffer
	ctx := zerolog.New(&logs).WithContext(context.Background())

	summary, err := New(Dependencies{Document: buf, Provider: mock}).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, "first\nSecond.", buf.FullText())
	assert.Len(t, mock.Requests(), 2)
	assert.Equal(t, PhaseDone, summary.Phase)
	assert.Equal(t, 1, summary.Discarded)
	assert.Equal(t, 1, summary.Applied)
	assert.Equal(t, provider.FinishReasonMaxTokens, summary.Results[0].FinishReason)
	assert.Equal(t, provider.FinishReasonNone, summary.Results[1].FinishReason)

	entry := logEntry(t, &logs, "response stopped early")
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "max_tokens", entry["finish_reason"])
}

func TestRun_FailureLogsRetryable(t *testing.T) {
	retryAfter := 3 * time.Second
	mock := &testhelpers.MockProvider{
		ModelName: "gpt-4o-mini",
		StreamFunc: func(context.Context, int, *provider.Request) (provider.ResponseStream, error) {
			return nil, &provider.ProviderError{Code: provider.ErrorCodeRateLimit, Message: "slow down", Retryable: true, RetryAfter: &retryAfter}
		},
	}
	var logs bytes.Buffer
	ctx := zerolog.New(&logs).WithContext(context.Background())

	_, err := New(Dependencies{Document: cursors(t, "text", 0), Provider: mock}).Run(ctx)
	require.Error(t, err)

	entry := logEntry(t, &logs, "selection failed")
	assert.Equal(t, true, entry["retryable"])
	assert.EqualValues(t, 3000, entry["retry_after"])
}

func TestRun_LogsProviderName(t *testing.T) {
	var logs bytes.Buffer
	ctx := zerolog.New(&logs).WithContext(context.Background())

	_, err := New(Dependencies{Document: cursors(t, "text", 0), Provider: testhelpers.NewMockProvider(improved("Text."))}).Run(ctx)
	require.NoError(t, err)

	entry := logEntry(t, &logs, "processing selections")
	assert.Equal(t, "mock", entry["provider"])
	assert.Equal(t, "gpt-4o-mini", entry["model"])
}
