// Package orchestrator improves each selection of a document in turn:
// one streamed request per selection, top to bottom, never two at once.
package orchestrator

import (
	"context"
	"io"
	"sync"

	"github.com/Cyclone1070/polish/internal/document"
	"github.com/Cyclone1070/polish/internal/pricing"
	"github.com/Cyclone1070/polish/internal/prompt"
	provider "github.com/Cyclone1070/polish/internal/provider/models"
	"github.com/Cyclone1070/polish/internal/stream"
	"github.com/Cyclone1070/polish/internal/structure"
	"github.com/Cyclone1070/polish/internal/workflow"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// editor is the document surface a run reads and edits.
type editor interface {
	selectionSource
	stream.Replacer
	Selection(id int) (document.Selection, bool)
	FullText() string
}

// completionProvider streams completions from one model.
type completionProvider interface {
	Stream(ctx context.Context, req *provider.Request) (provider.ResponseStream, error)
	Name() string
	Model() string
}

// tokenEstimator estimates prompt sizes.
type tokenEstimator interface {
	EstimateChat(model, systemPrompt, userPrompt string) int64
}

// Dependencies configures an Orchestrator. Document and Provider are required.
type Dependencies struct {
	Document editor
	Provider completionProvider

	// Tokens enables the context window check before each request.
	Tokens tokenEstimator

	// Events receives progress events. A nil channel disables them.
	Events chan<- workflow.Event

	// MaxResponseBytes aborts a selection whose response grows past it.
	// Zero means no limit.
	MaxResponseBytes int64

	// GenerateConfig is passed through to every request.
	GenerateConfig *provider.GenerateConfig
}

// Orchestrator runs one improve command.
type Orchestrator struct {
	doc      editor
	provider completionProvider
	tokens   tokenEstimator
	events   chan<- workflow.Event
	maxBytes int64
	genCfg   *provider.GenerateConfig

	mu              sync.Mutex
	cancel          context.CancelFunc
	cancelRequested bool
	phase           Phase
}

// New creates an Orchestrator.
func New(deps Dependencies) *Orchestrator {
	if deps.Document == nil {
		panic("document is required")
	}
	if deps.Provider == nil {
		panic("provider is required")
	}
	return &Orchestrator{
		doc:      deps.Document,
		provider: deps.Provider,
		tokens:   deps.Tokens,
		events:   deps.Events,
		maxBytes: deps.MaxResponseBytes,
		genCfg:   deps.GenerateConfig,
		phase:    PhaseIdle,
	}
}

// Cancel stops the run. The active request is aborted, remaining selections
// are skipped and edits already applied stay. Safe to call from any
// goroutine, before or during Run.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancelRequested = true
	if o.cancel != nil {
		o.cancel()
	}
}

// Phase returns the current state of the run.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phase = p
}

func (o *Orchestrator) emit(ev workflow.Event) {
	if o.events != nil {
		o.events <- ev
	}
}

// Run improves every selection in order. Cancellation, through ctx or
// Cancel, ends the run with a nil error and PhaseCancelled. Any other
// failure of a selection aborts the run and is returned.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	logger := zerolog.Ctx(ctx)
	defer o.emit(workflow.DoneEvent{})

	targets, err := CollectTargets(o.doc)
	if err != nil {
		o.setPhase(PhaseFailed)
		return &Summary{Phase: PhaseFailed, Model: o.provider.Model()}, err
	}
	summary := &Summary{Phase: PhaseIdle, Model: o.provider.Model(), Total: len(targets)}
	if !hasContent(targets) {
		return summary, ErrNoContent
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.mu.Lock()
	o.cancel = cancel
	if o.cancelRequested {
		cancel()
	}
	o.mu.Unlock()

	systemPrompt, err := prompt.BuildSystemPrompt(o.doc.FullText())
	if err != nil {
		o.setPhase(PhaseFailed)
		summary.Phase = PhaseFailed
		return summary, err
	}
	logger.Debug().Str("system_prompt", systemPrompt).Msg("system prompt")
	logger.Info().
		Int("selections", len(targets)).
		Str("provider", o.provider.Name()).
		Str("model", summary.Model).
		Msg("processing selections")

	o.emit(workflow.RunStartEvent{Title: Title(targets), Total: len(targets), Model: summary.Model})

	for i, target := range targets {
		if ctx.Err() != nil {
			break
		}
		o.setPhase(PhaseRunning)
		summary.Phase = PhaseRunning
		summary.Current = i

		rng, ok := o.resolve(ctx, i, target)
		if !ok {
			summary.Skipped++
			continue
		}

		result, err := o.process(ctx, i, len(targets), target, rng, systemPrompt)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info().Int("selection", i+1).Msg("operation cancelled by user")
				break
			}
			o.setPhase(PhaseFailed)
			summary.Phase = PhaseFailed
			failure := logger.Error().Err(err).Int("selection", i+1).Bool("retryable", provider.IsRetryable(err))
			if after := provider.GetRetryAfter(err); after != nil {
				failure = failure.Dur("retry_after", *after)
			}
			failure.Msg("selection failed")
			o.emit(workflow.FailedEvent{Index: i, Err: err})
			return summary, errors.Errorf("selection %d/%d: %w", i+1, len(targets), err)
		}

		summary.Results = append(summary.Results, result)
		if result.Applied {
			summary.Applied++
		} else {
			summary.Discarded++
		}
		if result.Usage != nil {
			summary.Usage = summary.Usage.Add(*result.Usage)
		}
		o.emit(workflow.SelectionDoneEvent{Index: i, Applied: result.Applied, Usage: result.Usage})
	}

	if ctx.Err() != nil {
		o.setPhase(PhaseCancelled)
		summary.Phase = PhaseCancelled
		o.emit(workflow.CancelledEvent{Completed: len(summary.Results), Total: len(targets)})
		return summary, nil
	}

	o.setPhase(PhaseDone)
	summary.Phase = PhaseDone
	return summary, nil
}

// resolve re-reads the live range of a target. Earlier edits may have moved
// it, so it is looked up by selection ID rather than reused.
func (o *Orchestrator) resolve(ctx context.Context, i int, target SelectionTarget) (document.Range, bool) {
	logger := zerolog.Ctx(ctx)
	skip := func(reason string) (document.Range, bool) {
		logger.Debug().Int("selection", i+1).Str("reason", reason).Msg("skipping selection")
		o.emit(workflow.SelectionSkippedEvent{Index: i, Reason: reason})
		return document.Range{}, false
	}

	sel, ok := o.doc.Selection(target.ID)
	if !ok {
		return skip("selection no longer exists")
	}
	rng, err := document.TargetRange(o.doc, sel)
	if err != nil {
		return skip(err.Error())
	}
	text, err := o.doc.Text(rng)
	if err != nil {
		return skip(err.Error())
	}
	if structure.IsBlank(text) {
		return skip("blank")
	}
	return rng, true
}

// process streams one completion into a fresh accumulator and applies it.
func (o *Orchestrator) process(ctx context.Context, i, total int, target SelectionTarget, rng document.Range, systemPrompt string) (SelectionResult, error) {
	logger := zerolog.Ctx(ctx).With().Int("selection", i+1).Int("of", total).Logger()
	ctx = logger.WithContext(ctx)
	model := o.provider.Model()

	logger.Info().Stringer("range", rng).Msg("target range")
	logger.Debug().Str("content", target.Structure.Content).Msg("content")

	userPrompt, err := prompt.BuildUserPrompt(target.Structure.Content)
	if err != nil {
		return SelectionResult{}, err
	}
	logger.Debug().Str("user_prompt", userPrompt).Msg("user prompt")
	o.preflight(logger, model, systemPrompt, userPrompt)

	o.emit(workflow.SelectionStartEvent{Index: i, Total: total, Range: rng})

	acc := stream.NewAccumulator(o.doc, rng, target.Structure)
	s, err := o.provider.Stream(ctx, &provider.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		JSONMode:     true,
		Config:       o.genCfg,
	})
	if err != nil {
		return SelectionResult{}, err
	}
	defer s.Close()

	var usage *provider.Usage
	var finish provider.FinishReason
	var received int64
	for {
		chunk, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return SelectionResult{}, err
		}

		if chunk.Delta != "" {
			received += int64(len(chunk.Delta))
			if o.maxBytes > 0 && received > o.maxBytes {
				return SelectionResult{}, errors.Errorf("%d bytes exceeds limit of %d: %w", received, o.maxBytes, ErrResponseTooLarge)
			}
			acc.OnChunk(chunk.Delta)
			o.emit(workflow.ChunkEvent{Index: i, Delta: chunk.Delta, Received: received})
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
		if chunk.Done {
			finish = chunk.FinishReason
			break
		}
	}

	if finish != provider.FinishReasonNone {
		logger.Warn().Str("finish_reason", string(finish)).Msg("response stopped early")
	}
	if err := acc.Finalize(ctx); err != nil {
		return SelectionResult{}, err
	}

	logger.Debug().Str("output", acc.AccumulatedText()).Msg("output (raw from model)")
	logger.Debug().Str("output", acc.FinalText()).Msg("output (with structure restored)")

	result := SelectionResult{
		Index:        i,
		ID:           target.ID,
		Range:        rng,
		Applied:      acc.State() == stream.Applied,
		FinishReason: finish,
	}
	if usage != nil {
		info := pricing.NewUsageInfo(model, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
		result.Usage = &info
		logger.Info().
			Int64("input_tokens", info.PromptTokens).
			Int64("output_tokens", info.CompletionTokens).
			Int64("total_tokens", info.TotalTokens).
			Int64("context_window", info.ContextWindow).
			Float64("context_usage_percent", info.ContextUsagePercent).
			Float64("estimated_cost", info.EstimatedCost).
			Msg("usage")
	}
	return result, nil
}

// preflight warns when the prompt alone is estimated to overflow the model's
// context window. The request is still sent.
func (o *Orchestrator) preflight(logger zerolog.Logger, model, systemPrompt, userPrompt string) {
	if o.tokens == nil {
		return
	}
	estimated := o.tokens.EstimateChat(model, systemPrompt, userPrompt)
	window := pricing.ContextWindow(model)
	if estimated > window {
		logger.Warn().
			Int64("estimated_tokens", estimated).
			Int64("context_window", window).
			Msg("prompt may exceed the model's context window")
		return
	}
	logger.Debug().Int64("estimated_tokens", estimated).Int64("context_window", window).Msg("prompt size")
}
