package openai

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ChunkStream is the subset of the SDK's server-sent event stream the
// provider reads.
type ChunkStream interface {
	Next() bool
	Current() openai.ChatCompletionChunk
	Err() error
	Close() error
}

// ChatClient starts streaming chat completions.
type ChatClient interface {
	NewStreaming(ctx context.Context, params openai.ChatCompletionNewParams) ChunkStream
}

// RealChatClient wraps the official SDK client to satisfy ChatClient.
type RealChatClient struct {
	client openai.Client
}

// NewClient builds an SDK client for an OpenAI-compatible endpoint.
// An empty baseURL uses the SDK default; timeout <= 0 disables the
// per-request timeout.
func NewClient(apiKey, baseURL string, timeout time.Duration) *RealChatClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	return &RealChatClient{client: openai.NewClient(opts...)}
}

// NewStreaming calls the SDK's Chat.Completions.NewStreaming method.
func (c *RealChatClient) NewStreaming(ctx context.Context, params openai.ChatCompletionNewParams) ChunkStream {
	return c.client.Chat.Completions.NewStreaming(ctx, params)
}
