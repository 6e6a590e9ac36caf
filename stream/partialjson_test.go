package stream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletePartial(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{
			name:   "key cut mid-token",
			input:  `{"na`,
			want:   `{}`,
			wantOK: true,
		},
		{
			name:   "string value unterminated",
			input:  `{"name": "Jo`,
			want:   `{}`,
			wantOK: true,
		},
		{
			name:   "complete object",
			input:  `{"name": "John"}`,
			want:   `{"name": "John"}`,
			wantOK: true,
		},
		{
			name:   "number at buffer edge is unset",
			input:  `{"age": 2`,
			want:   `{}`,
			wantOK: true,
		},
		{
			name:   "number sealed by comma",
			input:  `{"age": 25,`,
			want:   `{"age": 25}`,
			wantOK: true,
		},
		{
			name:   "first field kept when second cut",
			input:  `{"name": "John", "age": 2`,
			want:   `{"name": "John"}`,
			wantOK: true,
		},
		{
			name:   "half-spelled literal is unset",
			input:  `{"ok": tru`,
			want:   `{}`,
			wantOK: true,
		},
		{
			name:   "full literal at edge is complete",
			input:  `{"ok": true`,
			want:   `{"ok": true}`,
			wantOK: true,
		},
		{
			name:   "null at edge is complete",
			input:  `{"x": null`,
			want:   `{"x": null}`,
			wantOK: true,
		},
		{
			name:   "nested object closed around complete members",
			input:  `{"person": {"name": "Ann", "age": 3`,
			want:   `{"person":{"name": "Ann"}}`,
			wantOK: true,
		},
		{
			name:   "array keeps complete elements",
			input:  `{"tags": ["a", "b", "c`,
			want:   `{"tags":["a", "b"]}`,
			wantOK: true,
		},
		{
			name:   "top-level array",
			input:  `[{"a": 1}, {"b": 2`,
			want:   `[{"a": 1}]`,
			wantOK: true,
		},
		{
			name:   "escaped quote does not close string",
			input:  `{"s": "he said \"hi`,
			want:   `{}`,
			wantOK: true,
		},
		{
			name:   "escaped quote then complete",
			input:  `{"s": "he said \"hi\""}`,
			want:   `{"s": "he said \"hi\""}`,
			wantOK: true,
		},
		{
			name:   "colon pending drops key",
			input:  `{"name":`,
			want:   `{}`,
			wantOK: true,
		},
		{
			name:   "whitespace only",
			input:  "  \n\t",
			wantOK: false,
		},
		{
			name:   "empty",
			input:  "",
			wantOK: false,
		},
		{
			name:   "malformed literal",
			input:  `{"ok": trun}`,
			wantOK: false,
		},
		{
			name:   "missing colon",
			input:  `{"a" 1}`,
			wantOK: false,
		},
		{
			name:   "bare string value incomplete",
			input:  `"hel`,
			wantOK: false,
		},
		{
			name:   "empty object prefix",
			input:  `{`,
			want:   `{}`,
			wantOK: true,
		},
		{
			name:   "empty array prefix",
			input:  `[`,
			want:   `[]`,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := completePartial([]byte(tt.input))
			if !tt.wantOK {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, string(got))
			assert.True(t, json.Valid(got), "completion must be valid JSON: %s", got)
		})
	}
}

func TestCompletePartialEveryPrefix(t *testing.T) {
	// Every prefix of a valid document must either complete to valid
	// JSON or report not-ok, never produce garbage.
	doc := `{"name": "Jo\"hn", "age": 25, "tags": ["a", "b"], "addr": {"city": "x", "zip": null}, "ok": true}`
	for i := 0; i <= len(doc); i++ {
		got, ok := completePartial([]byte(doc[:i]))
		if !ok {
			continue
		}
		assert.True(t, json.Valid(got), "prefix %d: %q completed to invalid %q", i, doc[:i], got)
	}
}
