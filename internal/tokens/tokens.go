// Package tokens estimates prompt sizes before a request is sent.
package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// tokensPerMessage is the chat framing overhead of one message, and
// replyPriming the overhead of the assistant reply header.
const (
	tokensPerMessage = 3
	replyPriming     = 3
)

// encoder turns text into tokens.
type encoder interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
}

// Estimator counts tokens for chat messages. It caches one encoder per model.
// When no encoder can be loaded it falls back to four bytes per token.
type Estimator struct {
	mu         sync.RWMutex
	cache      map[string]encoder
	loadFailed map[string]bool
	load       func(model string) (encoder, error)
}

// NewEstimator returns an Estimator backed by tiktoken.
func NewEstimator() *Estimator {
	return &Estimator{
		cache:      make(map[string]encoder),
		loadFailed: make(map[string]bool),
		load:       loadTiktoken,
	}
}

func loadTiktoken(model string) (encoder, error) {
	tkm, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Fall back to cl100k_base for models tiktoken does not know
		tkm, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	return tkm, nil
}

func (e *Estimator) encoderFor(model string) encoder {
	e.mu.RLock()
	enc, ok := e.cache[model]
	failed := e.loadFailed[model]
	e.mu.RUnlock()
	if ok || failed {
		return enc
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if enc, ok := e.cache[model]; ok {
		return enc
	}
	if e.loadFailed[model] {
		return nil
	}

	enc, err := e.load(model)
	if err != nil {
		e.loadFailed[model] = true
		return nil
	}
	e.cache[model] = enc
	return enc
}

// Count returns the number of tokens in text for model.
func (e *Estimator) Count(model, text string) int {
	enc := e.encoderFor(model)
	if enc == nil {
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// EstimateChat estimates the prompt tokens of a system plus user message
// exchange, including chat framing.
func (e *Estimator) EstimateChat(model, systemPrompt, userPrompt string) int64 {
	n := 0
	for _, msg := range []struct{ role, content string }{
		{"system", systemPrompt},
		{"user", userPrompt},
	} {
		n += tokensPerMessage
		n += e.Count(model, msg.role)
		n += e.Count(model, msg.content)
	}
	return int64(n + replyPriming)
}
