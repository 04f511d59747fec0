package models

import "context"

// Provider defines the interface for completion backends.
type Provider interface {
	// Stream sends the request and returns a stream of response chunks.
	// Cancelling ctx aborts the underlying transport; the stream then
	// reports ctx.Err().
	Stream(ctx context.Context, req *Request) (ResponseStream, error)

	// Name identifies the backend, e.g. "openai".
	Name() string

	// Model returns the model requests are sent to.
	Model() string
}
