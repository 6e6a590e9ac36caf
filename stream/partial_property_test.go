package stream

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/schemaloop/schemaloop/schema"
)

// Feeding any chunking of a valid document must yield monotonic
// snapshots and a final outcome equal to validating the whole
// document at once.
func TestFieldsChunkingInvariance(t *testing.T) {
	type record struct {
		Name   string   `json:"name"`
		Age    int      `json:"age" jsonschema:"minimum=0"`
		Email  string   `json:"email"`
		Tags   []string `json:"tags"`
		Active bool     `json:"active"`
	}
	c, err := schema.For[record]("record")
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		doc := record{
			Name:   rapid.StringMatching(`[a-zA-Z ]{1,20}`).Draw(t, "name"),
			Age:    rapid.IntRange(0, 120).Draw(t, "age"),
			Email:  rapid.StringMatching(`[a-z]{1,8}@[a-z]{1,8}\.com`).Draw(t, "email"),
			Tags:   rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,6}`), 1, 4).Draw(t, "tags"),
			Active: rapid.Bool().Draw(t, "active"),
		}
		raw, err := json.Marshal(doc)
		require.NoError(t, err)

		// Split the document at random cut points.
		var deltas []string
		rest := string(raw)
		for len(rest) > 0 {
			n := rapid.IntRange(1, len(rest)).Draw(t, "cut")
			deltas = append(deltas, rest[:n])
			rest = rest[n:]
		}

		s := Fields(context.Background(), chunkSource(deltas...), c, nil)

		var prev map[string]json.RawMessage
		for p := range s.Partials() {
			var cur map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(p.Raw, &cur))
			for k := range prev {
				if _, still := cur[k]; !still {
					t.Fatalf("field %q vanished between snapshots", k)
				}
			}
			prev = cur
		}

		outcome, _, err := s.Wait()
		require.NoError(t, err)
		require.True(t, outcome.Valid)

		direct := c.Validate(raw)
		require.True(t, direct.Valid)
		require.JSONEq(t, string(direct.Value), string(outcome.Value))
	})
}
