package stream

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaloop/schemaloop/extract"
	"github.com/schemaloop/schemaloop/llm"
	"github.com/schemaloop/schemaloop/schema"
	"github.com/schemaloop/schemaloop/types"
)

type person struct {
	Name string `json:"name" jsonschema:"required"`
}

func chunkSource(deltas ...string) <-chan llm.Chunk {
	ch := make(chan llm.Chunk, len(deltas))
	for _, d := range deltas {
		ch <- llm.Chunk{Delta: d}
	}
	close(ch)
	return ch
}

func collectPartials(s *FieldStream) []Partial {
	var got []Partial
	for p := range s.Partials() {
		got = append(got, p)
	}
	return got
}

func TestFieldsGrowingObject(t *testing.T) {
	c, err := schema.For[person]("person")
	require.NoError(t, err)

	chunks := chunkSource(`{"na`, `me": "Jo`, `hn"}`)
	s := Fields(context.Background(), chunks, c, nil)

	got := collectPartials(s)
	outcome, _, err := s.Wait()
	require.NoError(t, err)

	// The first chunk yields an empty snapshot (key cut mid-token),
	// the second changes nothing visible, the third completes the
	// object. Exactly two distinct snapshots.
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Seq)
	assert.JSONEq(t, `{}`, string(got[0].Raw))
	assert.Equal(t, 2, got[1].Seq)
	assert.JSONEq(t, `{"name": "John"}`, string(got[1].Raw))

	require.True(t, outcome.Valid)
	decoded, err := schema.Decode[person](outcome)
	require.NoError(t, err)
	assert.Equal(t, "John", decoded.Name)
}

func TestFieldsMonotonicSnapshots(t *testing.T) {
	type record struct {
		Name string   `json:"name"`
		Age  int      `json:"age"`
		Tags []string `json:"tags"`
	}
	c, err := schema.For[record]("record")
	require.NoError(t, err)

	full := `{"name": "Ann", "age": 41, "tags": ["x", "y", "z"]}`

	// Feed one byte at a time; every populated field must survive into
	// every later snapshot.
	var deltas []string
	for i := 0; i < len(full); i++ {
		deltas = append(deltas, full[i:i+1])
	}

	s := Fields(context.Background(), chunkSource(deltas...), c, nil)

	var prev map[string]any
	for p := range s.Partials() {
		var cur map[string]any
		require.NoError(t, json.Unmarshal(p.Raw, &cur))
		for k := range prev {
			_, still := cur[k]
			assert.True(t, still, "field %q vanished between snapshots", k)
		}
		prev = cur
	}

	outcome, _, err := s.Wait()
	require.NoError(t, err)
	require.True(t, outcome.Valid)
}

func TestFieldsFinalValidationFails(t *testing.T) {
	type aged struct {
		Age int `json:"age" jsonschema:"required,minimum=0"`
	}
	c, err := schema.For[aged]("aged")
	require.NoError(t, err)

	s := Fields(context.Background(), chunkSource(`{"age": `, `-5}`), c, nil)
	collectPartials(s)

	outcome, _, err := s.Wait()
	require.NoError(t, err)
	require.False(t, outcome.Valid)
	assert.Equal(t, "age", outcome.Errors.Errors[0].Path)
}

func TestFieldsTruncated(t *testing.T) {
	c, err := schema.For[person]("person")
	require.NoError(t, err)

	ch := make(chan llm.Chunk, 2)
	ch <- llm.Chunk{Delta: `{"name": "Jo`}
	ch <- llm.Chunk{FinishReason: llm.FinishLength}
	close(ch)

	s := Fields(context.Background(), ch, c, nil)
	collectPartials(s)

	_, _, err = s.Wait()
	assert.ErrorIs(t, err, extract.ErrTruncated)
}

func TestFieldsEmptyStream(t *testing.T) {
	c, err := schema.For[person]("person")
	require.NoError(t, err)

	s := Fields(context.Background(), chunkSource(), c, nil)
	collectPartials(s)

	_, _, err = s.Wait()
	assert.ErrorIs(t, err, extract.ErrNoCandidate)
}

func TestFieldsChunkError(t *testing.T) {
	c, err := schema.For[person]("person")
	require.NoError(t, err)

	ch := make(chan llm.Chunk, 1)
	ch <- llm.Chunk{Err: assert.AnError}
	close(ch)

	s := Fields(context.Background(), ch, c, nil)
	collectPartials(s)

	_, _, err = s.Wait()
	require.Error(t, err)
	assert.Equal(t, types.ErrProviderCall, types.GetErrorCode(err))
}

func TestFieldsUsageAccumulates(t *testing.T) {
	c, err := schema.For[person]("person")
	require.NoError(t, err)

	ch := make(chan llm.Chunk, 3)
	ch <- llm.Chunk{Delta: `{"name": `}
	ch <- llm.Chunk{Delta: `"Ann"}`}
	ch <- llm.Chunk{Usage: &types.TokenUsage{PromptTokens: 10, CompletionTokens: 6, TotalTokens: 16}}
	close(ch)

	s := Fields(context.Background(), ch, c, nil)
	collectPartials(s)

	_, usage, err := s.Wait()
	require.NoError(t, err)
	assert.Equal(t, 16, usage.TotalTokens)
}

func TestFieldsCancellation(t *testing.T) {
	c, err := schema.For[person]("person")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	// Unbuffered source that never closes: cancellation is the only
	// way out, and the stream must stop pulling.
	ch := make(chan llm.Chunk)
	s := Fields(ctx, ch, c, nil)
	cancel()

	done := make(chan struct{})
	go func() {
		collectPartials(s)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not release after cancellation")
	}

	_, _, err = s.Wait()
	assert.ErrorIs(t, err, context.Canceled)
}
