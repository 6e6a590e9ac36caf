package schema

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type person struct {
	Name    string   `json:"name"`
	Age     int      `json:"age" jsonschema:"required,minimum=0,maximum=150"`
	Email   string   `json:"email,omitempty" jsonschema:"format=email"`
	Tags    []string `json:"tags,omitempty" jsonschema:"maxItems=5"`
	Country string   `json:"country,omitempty" jsonschema:"default=US"`
	hidden  string
	Skip    string   `json:"-"`
}

func TestGenerator_Struct(t *testing.T) {
	g := NewGenerator()

	s, err := g.Generate(reflect.TypeOf(person{}))
	require.NoError(t, err)
	require.Equal(t, TypeObject, s.Type)

	assert.Equal(t, []string{"name", "age", "email", "tags", "country"}, s.OrderedProperties())
	assert.True(t, s.IsRequired("name"))
	assert.True(t, s.IsRequired("age"))
	assert.False(t, s.IsRequired("email"))
	assert.False(t, s.IsRequired("country"))
	assert.Nil(t, s.GetProperty("hidden"))
	assert.Nil(t, s.GetProperty("Skip"))

	age := s.GetProperty("age")
	require.NotNil(t, age)
	assert.Equal(t, TypeInteger, age.Type)
	require.NotNil(t, age.Minimum)
	assert.Equal(t, 0.0, *age.Minimum)
	require.NotNil(t, age.Maximum)
	assert.Equal(t, 150.0, *age.Maximum)

	email := s.GetProperty("email")
	require.NotNil(t, email)
	assert.Equal(t, FormatEmail, email.Format)

	tags := s.GetProperty("tags")
	require.NotNil(t, tags)
	assert.Equal(t, TypeArray, tags.Type)
	require.NotNil(t, tags.Items)
	assert.Equal(t, TypeString, tags.Items.Type)
	require.NotNil(t, tags.MaxItems)
	assert.Equal(t, 5, *tags.MaxItems)

	country := s.GetProperty("country")
	require.NotNil(t, country)
	assert.Equal(t, "US", country.Default)
}

func TestGenerator_BasicTypes(t *testing.T) {
	g := NewGenerator()

	tests := []struct {
		name string
		val  any
		want Type
	}{
		{"string", "", TypeString},
		{"bool", false, TypeBoolean},
		{"int", 0, TypeInteger},
		{"uint16", uint16(0), TypeInteger},
		{"float64", 0.0, TypeNumber},
		{"slice", []int{}, TypeArray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := g.GenerateFromValue(tt.val)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Type)
		})
	}
}

func TestGenerator_NestedStruct(t *testing.T) {
	type address struct {
		City string `json:"city"`
	}
	type customer struct {
		Name    string   `json:"name"`
		Address *address `json:"address,omitempty"`
	}

	s, err := NewGenerator().Generate(reflect.TypeOf(customer{}))
	require.NoError(t, err)

	addr := s.GetProperty("address")
	require.NotNil(t, addr)
	assert.Equal(t, TypeObject, addr.Type)
	assert.Equal(t, TypeString, addr.GetProperty("city").Type)
	assert.False(t, s.IsRequired("address"))
}

func TestGenerator_RecursiveType(t *testing.T) {
	type node struct {
		Value    int     `json:"value"`
		Children []*node `json:"children,omitempty"`
	}

	s, err := NewGenerator().Generate(reflect.TypeOf(node{}))
	require.NoError(t, err)

	children := s.GetProperty("children")
	require.NotNil(t, children)
	assert.Equal(t, TypeArray, children.Type)
	// The recursive reference degrades to a bare object placeholder.
	assert.Equal(t, TypeObject, children.Items.Type)
}

func TestGenerator_Map(t *testing.T) {
	s, err := NewGenerator().GenerateFromValue(map[string]int{})
	require.NoError(t, err)
	assert.Equal(t, TypeObject, s.Type)
	require.NotNil(t, s.AdditionalProperties)
	assert.True(t, *s.AdditionalProperties)
}

func TestParseTagOptions(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		want map[string]string
	}{
		{
			name: "empty",
			tag:  "",
			want: map[string]string{},
		},
		{
			name: "required only",
			tag:  "required",
			want: map[string]string{"required": ""},
		},
		{
			name: "key values",
			tag:  "minimum=0,maximum=100",
			want: map[string]string{"minimum": "0", "maximum": "100"},
		},
		{
			name: "enum keeps embedded commas",
			tag:  "enum=a,b,c,required",
			want: map[string]string{"enum": "a,b,c", "required": ""},
		},
		{
			name: "enum followed by option",
			tag:  "required,enum=red,green,blue,minimum=1",
			want: map[string]string{"required": "", "enum": "red,green,blue", "minimum": "1"},
		},
		{
			name: "description with comma",
			tag:  "description=age in years, at last birthday",
			want: map[string]string{"description": "age in years, at last birthday"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseTagOptions(tt.tag))
		})
	}
}

func TestGenerator_EnumTagTyped(t *testing.T) {
	type rating struct {
		Stars int `json:"stars" jsonschema:"required,enum=1,2,3,4,5"`
	}

	s, err := NewGenerator().Generate(reflect.TypeOf(rating{}))
	require.NoError(t, err)

	stars := s.GetProperty("stars")
	require.NotNil(t, stars)
	require.Len(t, stars.Enum, 5)
	assert.Equal(t, int64(1), stars.Enum[0])
	assert.Equal(t, int64(5), stars.Enum[4])

	// The generated enum validates real candidates.
	v := NewValidator()
	_, err = v.Validate([]byte(`{"stars": 3}`), s)
	assert.NoError(t, err)
	_, err = v.Validate([]byte(`{"stars": 6}`), s)
	assert.Error(t, err)
}
