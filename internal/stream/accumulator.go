// Package stream buffers one streamed completion and applies its result to
// the document once the stream has finished.
package stream

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/Cyclone1070/polish/internal/document"
	"github.com/Cyclone1070/polish/internal/structure"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrAlreadyFinalized is returned by a second call to Finalize.
var ErrAlreadyFinalized = errors.New("accumulator already finalized")

// State is the lifecycle of an Accumulator.
type State int

const (
	Accumulating State = iota
	Finalizing
	Applied
	Discarded
)

func (s State) String() string {
	switch s {
	case Accumulating:
		return "accumulating"
	case Finalizing:
		return "finalizing"
	case Applied:
		return "applied"
	case Discarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Replacer applies an edit to the document.
type Replacer interface {
	Replace(ctx context.Context, r document.Range, text string, opts document.ReplaceOptions) error
}

// payload is the object the completion service returns.
type payload struct {
	Improved *string `mapstructure:"improved"`
}

// Accumulator collects the chunks of one response for one selection.
// OnChunk and Finalize are called from the goroutine reading the stream;
// the accessors may be called from anywhere.
type Accumulator struct {
	mu        sync.Mutex
	doc       Replacer
	rng       document.Range
	structure structure.TextStructure
	buf       strings.Builder
	state     State
}

// NewAccumulator returns an Accumulator that will replace rng in doc.
func NewAccumulator(doc Replacer, rng document.Range, s structure.TextStructure) *Accumulator {
	if doc == nil {
		panic("doc is required")
	}
	return &Accumulator{doc: doc, rng: rng, structure: s}
}

// OnChunk appends text to the buffer. Chunks arriving after Finalize are
// dropped.
func (a *Accumulator) OnChunk(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != Accumulating {
		return
	}
	a.buf.WriteString(text)
}

// Finalize parses the buffered payload and, if it holds an improved text,
// restores its structure and replaces the range as one undo step.
// A payload that does not parse leaves the document untouched and returns
// nil. Only a failing document replace is returned as an error.
func (a *Accumulator) Finalize(ctx context.Context) error {
	a.mu.Lock()
	if a.state != Accumulating {
		a.mu.Unlock()
		return ErrAlreadyFinalized
	}
	a.state = Finalizing
	raw := a.buf.String()
	a.mu.Unlock()

	logger := zerolog.Ctx(ctx)
	improved, err := decodePayload(raw)
	if err != nil {
		logger.Warn().Err(err).Int("bytes", len(raw)).Msg("discarding malformed payload")
		a.setState(Discarded)
		return nil
	}

	final := structure.Restore(improved, a.structure)
	logger.Debug().Str("raw", improved).Str("restored", final).Msg("applying improved text")

	if err := a.doc.Replace(ctx, a.rng, final, document.ReplaceOptions{GroupWithUndo: true}); err != nil {
		a.setState(Discarded)
		return errors.Errorf("replacing %s: %w", a.rng, err)
	}
	a.setState(Applied)
	return nil
}

func (a *Accumulator) setState(s State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
}

// State returns the current lifecycle state.
func (a *Accumulator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Len returns the number of buffered bytes.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.Len()
}

// AccumulatedText returns the improved text before its structure is
// restored, or "" if the buffer does not hold a valid payload yet.
func (a *Accumulator) AccumulatedText() string {
	a.mu.Lock()
	raw := a.buf.String()
	a.mu.Unlock()

	improved, err := decodePayload(raw)
	if err != nil {
		return ""
	}
	return improved
}

// FinalText returns the improved text with its structure restored, or ""
// if the buffer does not hold a valid payload.
func (a *Accumulator) FinalText() string {
	a.mu.Lock()
	raw := a.buf.String()
	a.mu.Unlock()

	improved, err := decodePayload(raw)
	if err != nil {
		return ""
	}
	return structure.Restore(improved, a.structure)
}

var (
	errNotObject       = errors.New("payload is not a JSON object")
	errMissingImproved = errors.New(`payload has no string field "improved"`)
)

// decodePayload extracts the improved field from a raw response.
func decodePayload(raw string) (string, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return "", errors.Errorf("parsing payload: %w", err)
	}
	if obj == nil {
		return "", errNotObject
	}

	var p payload
	if err := mapstructure.Decode(obj, &p); err != nil {
		return "", errors.Errorf("decoding payload: %w", err)
	}
	if p.Improved == nil {
		return "", errMissingImproved
	}
	return *p.Improved, nil
}
