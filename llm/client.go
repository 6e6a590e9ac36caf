package llm

import (
	"context"

	"github.com/schemaloop/schemaloop/types"
)

// FinishReason reports why the model stopped generating.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishToolCalls FinishReason = "tool_calls"

	// FinishLength means the model hit a token or length limit
	// mid-generation. Responses finished this way are truncated and
	// must never feed a reask loop.
	FinishLength FinishReason = "length"

	FinishContentFilter FinishReason = "content_filter"
)

// Request is one completion request for one attempt.
type Request struct {
	Model     string                 `json:"model,omitempty"`
	Messages  []types.Message        `json:"messages"`
	Schema    types.SchemaDescriptor `json:"schema"`
	Mode      types.Mode             `json:"mode"`
	MaxTokens int                    `json:"max_tokens,omitempty"`
}

// Response is the normalized provider response for one attempt.
// It is owned by the attempt that produced it; the final result keeps
// a reference for diagnostics only.
type Response struct {
	ID           string           `json:"id,omitempty"`
	Model        string           `json:"model,omitempty"`
	Content      string           `json:"content,omitempty"`
	ToolCalls    []types.ToolCall `json:"tool_calls,omitempty"`
	FinishReason FinishReason     `json:"finish_reason,omitempty"`
	Usage        types.TokenUsage `json:"usage,omitempty"`
}

// Truncated reports whether the provider signaled a length limit.
func (r *Response) Truncated() bool {
	return r != nil && r.FinishReason == FinishLength
}

// Chunk is one incremental unit of a streamed response.
type Chunk struct {
	Delta        string            `json:"delta,omitempty"`
	FinishReason FinishReason      `json:"finish_reason,omitempty"`
	Usage        *types.TokenUsage `json:"usage,omitempty"` // final chunk may carry usage
	Err          error             `json:"-"`
}

// Client is the provider-call collaborator consumed by the retry loop.
//
// Complete blocks for a full response. Stream returns a channel of
// chunks which the collaborator closes at end of stream; when ctx is
// cancelled the collaborator must stop sending and release the
// underlying connection.
type Client interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
	Stream(ctx context.Context, req *Request) (<-chan Chunk, error)
}
