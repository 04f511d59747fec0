package models

// Request is one completion request: a system prompt carrying the document
// context and the output contract, plus the user prompt with the fragment.
type Request struct {
	SystemPrompt string
	UserPrompt   string

	// JSONMode asks the service to emit a single JSON object.
	JSONMode bool

	// Config contains optional generation parameters
	Config *GenerateConfig
}

// GenerateConfig contains optional generation parameters.
// All fields are pointers to distinguish between "not set" and "zero value".
type GenerateConfig struct {
	Temperature     *float32
	MaxOutputTokens *int
}

// Usage is the token accounting reported at the end of a stream.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

// ResponseStream provides access to streaming response chunks.
type ResponseStream interface {
	// Next returns the next chunk, or io.EOF when done
	Next() (*StreamChunk, error)

	// Close releases resources
	Close() error
}

// StreamChunk represents a single chunk in a streaming response.
type StreamChunk struct {
	// Delta is the incremental text
	Delta string

	// Done indicates this is the final chunk
	Done bool

	// Usage is set on the final chunk when the service reports it
	Usage *Usage

	// FinishReason is set on the final chunk when generation stopped early.
	// The text streamed so far is still delivered.
	FinishReason FinishReason
}

// FinishReason explains why a service stopped generating before completing
// its answer. The zero value means it finished normally.
type FinishReason string

const (
	FinishReasonNone      FinishReason = ""
	FinishReasonMaxTokens FinishReason = "max_tokens"
	FinishReasonBlocked   FinishReason = "content_blocked"
)
