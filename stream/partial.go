package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/schemaloop/schemaloop/extract"
	"github.com/schemaloop/schemaloop/llm"
	"github.com/schemaloop/schemaloop/schema"
	"github.com/schemaloop/schemaloop/types"
)

// Partial is one relaxed snapshot of the growing object. Seq is
// 1-based and increases with every emission.
type Partial struct {
	Seq int
	Raw json.RawMessage
}

// FieldStream reconstructs a single growing object from a chunk
// stream. Partial snapshots arrive on Partials; Wait blocks until the
// stream ends and returns the strictly validated final outcome.
type FieldStream struct {
	partials chan Partial
	done     chan struct{}

	outcome schema.Outcome
	usage   types.TokenUsage
	err     error
}

// Fields starts consuming chunks against the contract. The returned
// stream owns the chunk channel: it stops pulling as soon as ctx is
// canceled or a terminal chunk arrives.
func Fields(ctx context.Context, chunks <-chan llm.Chunk, contract *schema.Contract, logger *zap.Logger) *FieldStream {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &FieldStream{
		partials: make(chan Partial),
		done:     make(chan struct{}),
	}
	go s.run(ctx, chunks, contract, logger)
	return s
}

// Partials returns the snapshot channel. It is closed when the stream
// ends, after which Wait returns immediately.
func (s *FieldStream) Partials() <-chan Partial { return s.partials }

// Wait blocks until the stream has ended and returns the final
// outcome, the accumulated usage, and any terminal error. On error
// the outcome is zero-valued.
func (s *FieldStream) Wait() (schema.Outcome, types.TokenUsage, error) {
	<-s.done
	return s.outcome, s.usage, s.err
}

func (s *FieldStream) run(ctx context.Context, chunks <-chan llm.Chunk, contract *schema.Contract, logger *zap.Logger) {
	defer close(s.done)
	defer close(s.partials)

	var buf bytes.Buffer
	var lastEmitted []byte
	seq := 0

	for {
		select {
		case <-ctx.Done():
			s.err = ctx.Err()
			return
		case chunk, ok := <-chunks:
			if !ok {
				s.finish(buf.Bytes(), contract, logger)
				return
			}
			if chunk.Err != nil {
				s.err = types.NewError(types.ErrProviderCall, "chunk stream failed").WithCause(chunk.Err)
				return
			}
			if chunk.Usage != nil {
				s.usage.Add(*chunk.Usage)
			}
			if chunk.FinishReason == llm.FinishLength {
				s.err = extract.ErrTruncated
				return
			}
			if chunk.Delta == "" {
				continue
			}
			buf.WriteString(chunk.Delta)

			snapshot, ok2 := completePartial(buf.Bytes())
			if !ok2 || !gjson.ValidBytes(snapshot) {
				continue
			}
			if bytes.Equal(snapshot, lastEmitted) {
				continue
			}
			lastEmitted = append(lastEmitted[:0], snapshot...)
			seq++

			select {
			case s.partials <- Partial{Seq: seq, Raw: json.RawMessage(snapshot)}:
			case <-ctx.Done():
				s.err = ctx.Err()
				return
			}
		}
	}
}

// finish runs the one strict validation of the full accumulated text.
func (s *FieldStream) finish(full []byte, contract *schema.Contract, logger *zap.Logger) {
	body := strings.TrimSpace(string(full))
	if body == "" {
		s.err = extract.ErrNoCandidate
		return
	}
	s.outcome = contract.Validate([]byte(body))
	if !s.outcome.Valid {
		logger.Debug("stream final validation failed",
			zap.String("schema", contract.Name()),
			zap.Int("errors", len(s.outcome.Errors.Errors)))
	}
}
