// Package openai adapts OpenAI-compatible chat completion endpoints to the
// streaming Provider interface.
package openai

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	provider "github.com/Cyclone1070/polish/internal/provider/models"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"
	"gitlab.com/tozd/go/errors"
)

// OpenAIProvider implements the Provider interface for chat completions.
type OpenAIProvider struct {
	client    ChatClient
	modelName string
}

// New creates a new OpenAIProvider with the specified client and model.
func New(client ChatClient, modelName string) *OpenAIProvider {
	if client == nil {
		panic("client is required")
	}
	return &OpenAIProvider{client: client, modelName: modelName}
}

// Name returns "openai".
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Model returns the model requests are sent to.
func (p *OpenAIProvider) Model() string {
	return p.modelName
}

// Stream starts a streaming chat completion.
func (p *OpenAIProvider) Stream(ctx context.Context, req *provider.Request) (provider.ResponseStream, error) {
	s := p.client.NewStreaming(ctx, toChatParams(p.modelName, req))
	if s == nil {
		return nil, &provider.ProviderError{
			Code:    provider.ErrorCodeUnavailable,
			Message: "chat completions streaming not available",
		}
	}
	return &stream{ctx: ctx, src: s}, nil
}

// toChatParams builds the SDK request.
func toChatParams(model string, req *provider.Request) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: messages,
	}
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: param.NewOpt(true),
	}
	if req.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	if req.Config != nil {
		if req.Config.Temperature != nil {
			params.Temperature = openai.Float(float64(*req.Config.Temperature))
		}
		if req.Config.MaxOutputTokens != nil {
			params.MaxCompletionTokens = openai.Int(int64(*req.Config.MaxOutputTokens))
		}
	}
	return params
}

// stream converts SDK chunks into provider chunks.
type stream struct {
	ctx    context.Context
	src    ChunkStream
	usage  *provider.Usage
	finish provider.FinishReason
	done   bool
}

// Next returns the next content delta, then one chunk with Done set and the
// reported usage, then io.EOF. A "length" or "content_filter" finish ends the
// stream normally with FinishReason set on the Done chunk.
func (s *stream) Next() (*provider.StreamChunk, error) {
	for {
		if s.done {
			return nil, io.EOF
		}

		if !s.src.Next() {
			s.done = true
			if err := s.src.Err(); err != nil {
				if ctxErr := s.ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				return nil, mapOpenAIError(err)
			}
			return &provider.StreamChunk{Done: true, Usage: s.usage, FinishReason: s.finish}, nil
		}

		chunk := s.src.Current()
		if chunk.Usage.TotalTokens > 0 || chunk.Usage.PromptTokens > 0 || chunk.Usage.CompletionTokens > 0 {
			s.usage = &provider.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}

		var delta string
		for _, choice := range chunk.Choices {
			delta += choice.Delta.Content
			switch choice.FinishReason {
			case "length":
				s.finish = provider.FinishReasonMaxTokens
			case "content_filter":
				s.finish = provider.FinishReasonBlocked
			}
		}
		if delta == "" {
			continue
		}
		return &provider.StreamChunk{Delta: delta}, nil
	}
}

// Close closes the underlying SSE stream.
func (s *stream) Close() error {
	s.done = true
	return s.src.Close()
}

// mapOpenAIError maps SDK errors to provider errors.
func mapOpenAIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		perr := provider.ErrorFromStatus(apiErr.StatusCode, apiErr.Message, err)
		if apiErr.Response != nil {
			perr.RetryAfter = retryAfter(apiErr.Response.Header)
		}
		return perr
	}

	return &provider.ProviderError{
		Code:       provider.ErrorCodeNetwork,
		Message:    "network error: " + err.Error(),
		Underlying: err,
		Retryable:  true,
	}
}

// retryAfter reads a Retry-After header given in seconds.
func retryAfter(h http.Header) *time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return nil
	}
	d := time.Duration(secs) * time.Second
	return &d
}
