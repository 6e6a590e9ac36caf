package stream

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/schemaloop/schemaloop/extract"
	"github.com/schemaloop/schemaloop/llm"
	"github.com/schemaloop/schemaloop/schema"
	"github.com/schemaloop/schemaloop/types"
)

// Item is one complete object pulled out of a multi-item stream.
// Outcome carries the strict validation result against the single-item
// contract; Raw is the item's exact source span.
type Item struct {
	Index   int
	Raw     json.RawMessage
	Outcome schema.Outcome
}

// ItemStream reconstructs a sequence of independent complete objects
// from a chunk stream. There is no partial-item concept: an item is
// emitted only once its closing boundary has arrived, validated at
// emission time.
type ItemStream struct {
	items chan Item
	done  chan struct{}

	usage types.TokenUsage
	err   error
}

// Items starts consuming chunks, emitting each complete top-level
// object as it closes. The stream stops pulling chunks as soon as ctx
// is canceled or a terminal chunk arrives.
func Items(ctx context.Context, chunks <-chan llm.Chunk, contract *schema.Contract, logger *zap.Logger) *ItemStream {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ItemStream{
		items: make(chan Item),
		done:  make(chan struct{}),
	}
	go s.run(ctx, chunks, contract, logger)
	return s
}

// Items returns the emission channel. It is closed when the stream
// ends.
func (s *ItemStream) Items() <-chan Item { return s.items }

// Wait blocks until the stream has ended and returns accumulated usage
// and any terminal error. An incomplete trailing item is not an error;
// it is simply never emitted.
func (s *ItemStream) Wait() (types.TokenUsage, error) {
	<-s.done
	return s.usage, s.err
}

func (s *ItemStream) run(ctx context.Context, chunks <-chan llm.Chunk, contract *schema.Contract, logger *zap.Logger) {
	defer close(s.done)
	defer close(s.items)

	scanner := newItemScanner()
	index := 0

	for {
		select {
		case <-ctx.Done():
			s.err = ctx.Err()
			return
		case chunk, ok := <-chunks:
			if !ok {
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

			for _, span := range scanner.feed(chunk.Delta) {
				index++
				item := Item{
					Index:   index,
					Raw:     json.RawMessage(span),
					Outcome: contract.Validate([]byte(span)),
				}
				if !item.Outcome.Valid {
					logger.Debug("stream item failed validation",
						zap.String("schema", contract.Name()),
						zap.Int("index", index))
				}
				select {
				case s.items <- item:
				case <-ctx.Done():
					s.err = ctx.Err()
					return
				}
			}
		}
	}
}

// itemScanner finds balanced top-level object boundaries in an
// accumulating buffer. Scanning resumes where the previous feed left
// off, so each byte is examined once.
type itemScanner struct {
	buf strings.Builder

	pos      int
	depth    int
	start    int
	inString bool
	escaped  bool
	inItem   bool
}

func newItemScanner() *itemScanner {
	return &itemScanner{}
}

// feed appends delta to the buffer and returns the source spans of any
// items completed by it, in order.
func (sc *itemScanner) feed(delta string) []string {
	sc.buf.WriteString(delta)
	s := sc.buf.String()

	var spans []string
	for ; sc.pos < len(s); sc.pos++ {
		ch := s[sc.pos]

		if sc.inString {
			switch {
			case sc.escaped:
				sc.escaped = false
			case ch == '\\':
				sc.escaped = true
			case ch == '"':
				sc.inString = false
			}
			continue
		}

		switch ch {
		case '"':
			// Strings are skipped at any depth; a top-level string may
			// contain braces that must not open an item.
			sc.inString = true
		case '{':
			if !sc.inItem {
				sc.inItem = true
				sc.start = sc.pos
			}
			sc.depth++
		case '}':
			if !sc.inItem {
				continue
			}
			sc.depth--
			if sc.depth == 0 {
				spans = append(spans, s[sc.start:sc.pos+1])
				sc.inItem = false
			}
		}
	}
	return spans
}
