// Package testhelpers provides a scriptable completion provider for tests
package testhelpers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/Cyclone1070/polish/internal/provider/models"
)

// MockProvider is a controllable provider that records every request.
type MockProvider struct {
	ModelName string

	// StreamFunc answers the n-th request (zero-based).
	StreamFunc func(ctx context.Context, n int, req *models.Request) (models.ResponseStream, error)

	mu       sync.Mutex
	requests []*models.Request
}

// NewMockProvider returns a provider that answers request n with
// responses[n] and fails once they run out.
func NewMockProvider(responses ...func(ctx context.Context) models.ResponseStream) *MockProvider {
	return &MockProvider{
		ModelName: "gpt-4o-mini",
		StreamFunc: func(ctx context.Context, n int, _ *models.Request) (models.ResponseStream, error) {
			if n >= len(responses) {
				return nil, errors.New("unexpected request")
			}
			return responses[n](ctx), nil
		},
	}
}

// Stream records req and delegates to StreamFunc.
func (m *MockProvider) Stream(ctx context.Context, req *models.Request) (models.ResponseStream, error) {
	m.mu.Lock()
	n := len(m.requests)
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.StreamFunc(ctx, n, req)
}

// Name returns "mock".
func (m *MockProvider) Name() string {
	return "mock"
}

// Model returns ModelName.
func (m *MockProvider) Model() string {
	return m.ModelName
}

// Requests returns the requests received so far.
func (m *MockProvider) Requests() []*models.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Request(nil), m.requests...)
}

// ScriptedStream replays chunks, then returns Err (or io.EOF when nil).
type ScriptedStream struct {
	Chunks []models.StreamChunk
	Err    error

	mu     sync.Mutex
	pos    int
	closed bool
}

// Next returns the next scripted chunk.
func (s *ScriptedStream) Next() (*models.StreamChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos < len(s.Chunks) {
		c := s.Chunks[s.pos]
		s.pos++
		return &c, nil
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return nil, io.EOF
}

// Close marks the stream closed.
func (s *ScriptedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *ScriptedStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// TextStream streams deltas followed by a done chunk carrying usage.
func TextStream(usage *models.Usage, deltas ...string) *ScriptedStream {
	s := &ScriptedStream{}
	for _, d := range deltas {
		s.Chunks = append(s.Chunks, models.StreamChunk{Delta: d})
	}
	s.Chunks = append(s.Chunks, models.StreamChunk{Done: true, Usage: usage})
	return s
}

// PayloadStream streams {"improved": improved} split into chunkSize pieces.
func PayloadStream(improved string, chunkSize int) *ScriptedStream {
	data, _ := json.Marshal(map[string]string{"improved": improved})
	return TextStream(&models.Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120}, Split(string(data), chunkSize)...)
}

// FailingStream streams deltas and then fails with err.
func FailingStream(err error, deltas ...string) *ScriptedStream {
	s := &ScriptedStream{Err: err}
	for _, d := range deltas {
		s.Chunks = append(s.Chunks, models.StreamChunk{Delta: d})
	}
	return s
}

// Split cuts text into pieces of at most n bytes.
func Split(text string, n int) []string {
	if n <= 0 {
		return []string{text}
	}
	var out []string
	for len(text) > n {
		out = append(out, text[:n])
		text = text[n:]
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}

// BlockingStream returns its deltas, then calls onBlock and blocks until ctx
// is cancelled, returning ctx.Err(). It behaves like a transport aborted by
// cancellation.
type BlockingStream struct {
	ctx     context.Context
	deltas  []string
	onBlock func()
}

// NewBlockingStream creates a BlockingStream bound to ctx.
func NewBlockingStream(ctx context.Context, onBlock func(), deltas ...string) *BlockingStream {
	return &BlockingStream{ctx: ctx, deltas: deltas, onBlock: onBlock}
}

// Next returns the next delta or blocks until cancellation.
func (s *BlockingStream) Next() (*models.StreamChunk, error) {
	if len(s.deltas) > 0 {
		d := s.deltas[0]
		s.deltas = s.deltas[1:]
		return &models.StreamChunk{Delta: d}, nil
	}
	if s.onBlock != nil {
		s.onBlock()
		s.onBlock = nil
	}
	<-s.ctx.Done()
	return nil, s.ctx.Err()
}

// Close is a no-op.
func (s *BlockingStream) Close() error {
	return nil
}
