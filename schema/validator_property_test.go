package schema

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// Validation must be deterministic: running the same candidate through
// the same contract twice yields byte-identical outcomes.
func TestProperty_Validator_Deterministic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		fieldName := rapid.StringMatching(`[a-z]{3,10}`).Draw(rt, "fieldName")
		min := rapid.Float64Range(-100, 0).Draw(rt, "min")
		max := rapid.Float64Range(1, 100).Draw(rt, "max")

		s := NewObject().
			AddProperty(fieldName, NewNumber().WithMinimum(min).WithMaximum(max)).
			AddRequired(fieldName)

		val := rapid.Float64Range(-200, 200).Draw(rt, "val")
		candidate, err := json.Marshal(map[string]any{fieldName: val})
		require.NoError(rt, err)

		v := NewValidator()
		norm1, err1 := v.Validate(candidate, s)
		norm2, err2 := v.Validate(candidate, s)

		if err1 == nil {
			require.NoError(rt, err2)
			assert.Equal(rt, string(norm1), string(norm2))
		} else {
			require.Error(rt, err2)
			assert.Equal(rt, err1.Error(), err2.Error())
		}
	})
}

// Every validation error must carry the violating field's path so the
// reask turn can point the model at the exact field.
func TestProperty_Validator_ErrorPathLocalization(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		fieldName := rapid.StringMatching(`[a-z]{3,10}`).Draw(rt, "fieldName")
		s := NewObject().
			AddProperty(fieldName, NewString()).
			AddRequired(fieldName)

		_, err := NewValidator().Validate([]byte(`{}`), s)
		require.Error(rt, err)

		verrs, ok := err.(*ValidationErrors)
		require.True(rt, ok)
		require.NotEmpty(rt, verrs.Errors)

		found := false
		for _, e := range verrs.Errors {
			if strings.Contains(e.Path, fieldName) {
				found = true
				assert.NotEmpty(rt, e.Message)
			}
		}
		assert.True(rt, found, "error should name the violating field: %s", fieldName)
	})
}

// Numeric string coercion must agree with validating the plain number.
func TestProperty_Validator_CoercionEquivalence(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.Int64Range(-1000, 1000).Draw(rt, "n")
		s := NewObject().
			AddProperty("n", NewInteger().WithMinimum(0)).
			AddRequired("n")

		raw := strconv.FormatInt(n, 10)
		v := NewValidator()
		plain, err1 := v.Validate([]byte(`{"n": `+raw+`}`), s)
		quoted, err2 := v.Validate([]byte(`{"n": "`+raw+`"}`), s)

		if err1 == nil {
			require.NoError(rt, err2)
			var a, b map[string]any
			require.NoError(rt, json.Unmarshal(plain, &a))
			require.NoError(rt, json.Unmarshal(quoted, &b))
			assert.Equal(rt, a["n"], b["n"])
		} else {
			assert.Error(rt, err2)
		}
	})
}

