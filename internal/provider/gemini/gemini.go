// Package gemini adapts the Google Gemini API to the streaming Provider
// interface.
package gemini

import (
	"context"
	"io"
	"iter"

	provider "github.com/Cyclone1070/polish/internal/provider/models"
	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	client    GeminiClient
	modelName string
}

// New creates a new GeminiProvider with the specified client and model.
func New(client GeminiClient, modelName string) *GeminiProvider {
	if client == nil {
		panic("client is required")
	}
	return &GeminiProvider{
		client:    client,
		modelName: modelName,
	}
}

// Name returns "gemini".
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Model returns the model requests are sent to.
func (p *GeminiProvider) Model() string {
	return p.modelName
}

// Stream starts a streaming generation. The request is only sent once Next
// is first called.
func (p *GeminiProvider) Stream(ctx context.Context, req *provider.Request) (provider.ResponseStream, error) {
	contents := toGeminiContents(req)
	config := toGeminiConfig(req)

	next, stop := iter.Pull2(p.client.GenerateContentStream(ctx, p.modelName, contents, config))
	return &stream{ctx: ctx, next: next, stop: stop}, nil
}

// stream turns the SDK's push iterator into a pull-based ResponseStream.
type stream struct {
	ctx    context.Context
	next   func() (*genai.GenerateContentResponse, error, bool)
	stop   func()
	usage  *provider.Usage
	finish provider.FinishReason
	done   bool
}

// Next returns the next text delta. After the SDK iterator is exhausted it
// returns one chunk with Done set, then io.EOF. A safety or max-tokens stop
// ends the stream normally with FinishReason set on the Done chunk.
func (s *stream) Next() (*provider.StreamChunk, error) {
	for {
		if s.done {
			return nil, io.EOF
		}

		resp, err, ok := s.next()
		if !ok {
			s.done = true
			return &provider.StreamChunk{Done: true, Usage: s.usage, FinishReason: s.finish}, nil
		}
		if err != nil {
			s.done = true
			if ctxErr := s.ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, mapGeminiError(err)
		}
		if resp == nil {
			continue
		}

		if resp.UsageMetadata != nil {
			s.usage = fromGeminiUsage(resp.UsageMetadata)
		}

		delta, finish := deltaFromResponse(resp)
		if finish != provider.FinishReasonNone {
			s.finish = finish
		}
		if delta == "" {
			continue
		}
		return &provider.StreamChunk{Delta: delta}, nil
	}
}

// Close stops the underlying iterator.
func (s *stream) Close() error {
	s.done = true
	s.stop()
	return nil
}
