package schemaloop

import (
	"time"

	"github.com/schemaloop/schemaloop/llm"
	"github.com/schemaloop/schemaloop/schema"
	"github.com/schemaloop/schemaloop/types"
)

// AttemptRecord is the diagnostic snapshot of one attempt. Records are
// immutable once appended; Index is 1-based.
type AttemptRecord struct {
	Index    int
	Response *llm.Response
	Outcome  schema.Outcome
	Usage    types.TokenUsage
	Duration time.Duration
}

// Result carries the final value of a successful call together with
// its full diagnostic history.
type Result[T any] struct {
	// Value is the decoded result. For parallel tool-call modes it is
	// the first of Values.
	Value *T

	// Values holds every decoded candidate, one for single-candidate
	// modes, several for parallel modes, in response order.
	Values []*T

	// Attempts is the complete per-attempt history.
	Attempts []AttemptRecord

	// Usage is the cumulative token usage across all attempts.
	Usage types.TokenUsage

	// Conversation is the final conversation, including any reask
	// turns appended along the way.
	Conversation []types.Message

	// CallID identifies this top-level call in logs and traces.
	CallID string

	// FromCache marks a result served by the result cache without a
	// provider call.
	FromCache bool
}
