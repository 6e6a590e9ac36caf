package schema

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type user struct {
	Name string `json:"name"`
	Age  int    `json:"age" jsonschema:"required,minimum=0"`
}

func TestContract_For(t *testing.T) {
	c, err := For[user]("user")
	require.NoError(t, err)

	assert.Equal(t, "user", c.Name())
	assert.Equal(t, TypeObject, c.Schema().Type)

	desc := c.Describe()
	assert.Equal(t, "user", desc.Name)
	assert.NotEmpty(t, desc.Parameters)
}

func TestContract_DescribeStable(t *testing.T) {
	c, err := For[user]("user", WithDescription("a user record"))
	require.NoError(t, err)

	first := c.Describe()
	second := c.Describe()
	assert.Equal(t, first, second)
	assert.Equal(t, string(first.Parameters), string(second.Parameters))
	assert.Equal(t, "a user record", first.Description)
}

func TestContract_Validate(t *testing.T) {
	c, err := For[user]("user")
	require.NoError(t, err)

	out := c.Validate([]byte(`{"name": "Jason", "age": 25}`))
	require.True(t, out.Valid)

	decoded, err := Decode[user](out)
	require.NoError(t, err)
	assert.Equal(t, "Jason", decoded.Name)
	assert.Equal(t, 25, decoded.Age)
}

func TestContract_ValidateInvalid(t *testing.T) {
	c, err := For[user]("user")
	require.NoError(t, err)

	out := c.Validate([]byte(`{"name": "Jason", "age": -5}`))
	require.False(t, out.Valid)
	require.NotNil(t, out.Errors)
	require.Len(t, out.Errors.Errors, 1)
	assert.Equal(t, "age", out.Errors.Errors[0].Path)
	assert.Equal(t, "must be >= 0", out.Errors.Errors[0].Message)

	_, err = Decode[user](out)
	assert.Error(t, err)
}

func TestContract_EmptyCandidate(t *testing.T) {
	c, err := For[user]("user")
	require.NoError(t, err)

	for _, candidate := range []string{"", "   ", "\n\t"} {
		out := c.Validate([]byte(candidate))
		require.False(t, out.Valid)
		require.Len(t, out.Errors.Errors, 1)
		assert.Equal(t, RootPath, out.Errors.Errors[0].Path)
	}
}

func TestContract_CrossFieldRule(t *testing.T) {
	type window struct {
		Start int `json:"start"`
		End   int `json:"end"`
	}

	c, err := For[window]("window", WithRule("start before end", func(obj map[string]any) error {
		start, _ := obj["start"].(float64)
		end, _ := obj["end"].(float64)
		if start >= end {
			return fmt.Errorf("start %v must be before end %v", start, end)
		}
		return nil
	}))
	require.NoError(t, err)

	out := c.Validate([]byte(`{"start": 1, "end": 10}`))
	assert.True(t, out.Valid)

	out = c.Validate([]byte(`{"start": 10, "end": 1}`))
	require.False(t, out.Valid)
	assert.Contains(t, out.Errors.Error(), "start before end")
}

func TestContract_CrossFieldRulesRunOnlyAfterFieldsPass(t *testing.T) {
	type window struct {
		Start int `json:"start" jsonschema:"required,minimum=0"`
		End   int `json:"end" jsonschema:"required,minimum=0"`
	}

	called := false
	c, err := For[window]("window", WithRule("ordering", func(obj map[string]any) error {
		called = true
		return nil
	}))
	require.NoError(t, err)

	out := c.Validate([]byte(`{"start": -1, "end": 5}`))
	require.False(t, out.Valid)
	assert.False(t, called, "object-level rule must not run while field errors exist")
}

func TestContract_Strict(t *testing.T) {
	c, err := For[user]("user", WithStrict())
	require.NoError(t, err)

	out := c.Validate([]byte(`{"name": "Jason", "age": 25, "extra": true}`))
	require.False(t, out.Valid)
	assert.Contains(t, out.Errors.Error(), "unknown field")
	assert.True(t, c.Describe().Strict)
}

func TestContract_FromSchemaErrors(t *testing.T) {
	_, err := FromSchema("", NewObject())
	assert.Error(t, err)

	_, err = FromSchema("thing", nil)
	assert.Error(t, err)
}
