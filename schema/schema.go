package schema

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Type represents JSON Schema types.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeNull    Type = "null"
	TypeObject  Type = "object"
	TypeArray   Type = "array"
)

// StringFormat represents common string format constraints.
type StringFormat string

const (
	FormatDateTime StringFormat = "date-time"
	FormatDate     StringFormat = "date"
	FormatTime     StringFormat = "time"
	FormatEmail    StringFormat = "email"
	FormatURI      StringFormat = "uri"
	FormatUUID     StringFormat = "uuid"
	FormatIPv4     StringFormat = "ipv4"
	FormatIPv6     StringFormat = "ipv6"
)

// JSONSchema represents a JSON Schema definition.
// It supports nested objects, arrays, enums, and the validation
// constraints enforced by Validator.
type JSONSchema struct {
	Schema      string `json:"$schema,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	Type Type `json:"type,omitempty"`

	// Object properties. PropertyOrder preserves the declaration order
	// of properties; validation and error reporting follow it since Go
	// map iteration order is unspecified.
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	PropertyOrder        []string               `json:"-"`
	Required             []string               `json:"required,omitempty"`
	AdditionalProperties *bool                  `json:"additionalProperties,omitempty"`
	MinProperties        *int                   `json:"minProperties,omitempty"`
	MaxProperties        *int                   `json:"maxProperties,omitempty"`

	// Array items
	Items       *JSONSchema `json:"items,omitempty"`
	MinItems    *int        `json:"minItems,omitempty"`
	MaxItems    *int        `json:"maxItems,omitempty"`
	UniqueItems *bool       `json:"uniqueItems,omitempty"`

	// Enum and const
	Enum  []any `json:"enum,omitempty"`
	Const any   `json:"const,omitempty"`

	// String constraints
	MinLength *int         `json:"minLength,omitempty"`
	MaxLength *int         `json:"maxLength,omitempty"`
	Pattern   string       `json:"pattern,omitempty"`
	Format    StringFormat `json:"format,omitempty"`

	// Numeric constraints
	Minimum          *float64 `json:"minimum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty"`
	ExclusiveMinimum *float64 `json:"exclusiveMinimum,omitempty"`
	ExclusiveMaximum *float64 `json:"exclusiveMaximum,omitempty"`
	MultipleOf       *float64 `json:"multipleOf,omitempty"`

	// Default value, applied to missing optional fields during validation.
	Default any `json:"default,omitempty"`
}

// New creates a new JSONSchema with the specified type.
func New(t Type) *JSONSchema {
	return &JSONSchema{Type: t}
}

// NewObject creates a new object schema.
func NewObject() *JSONSchema {
	return &JSONSchema{
		Type:       TypeObject,
		Properties: make(map[string]*JSONSchema),
	}
}

// NewArray creates a new array schema with the specified items schema.
func NewArray(items *JSONSchema) *JSONSchema {
	return &JSONSchema{Type: TypeArray, Items: items}
}

// NewString creates a new string schema.
func NewString() *JSONSchema { return &JSONSchema{Type: TypeString} }

// NewNumber creates a new number schema.
func NewNumber() *JSONSchema { return &JSONSchema{Type: TypeNumber} }

// NewInteger creates a new integer schema.
func NewInteger() *JSONSchema { return &JSONSchema{Type: TypeInteger} }

// NewBoolean creates a new boolean schema.
func NewBoolean() *JSONSchema { return &JSONSchema{Type: TypeBoolean} }

// NewEnum creates a new enum schema with the specified values.
func NewEnum(values ...any) *JSONSchema { return &JSONSchema{Enum: values} }

// WithDescription sets the description and returns the schema for chaining.
func (s *JSONSchema) WithDescription(desc string) *JSONSchema {
	s.Description = desc
	return s
}

// WithDefault sets the default value and returns the schema for chaining.
func (s *JSONSchema) WithDefault(def any) *JSONSchema {
	s.Default = def
	return s
}

// AddProperty adds a property to an object schema, preserving order.
func (s *JSONSchema) AddProperty(name string, prop *JSONSchema) *JSONSchema {
	if s.Properties == nil {
		s.Properties = make(map[string]*JSONSchema)
	}
	if _, exists := s.Properties[name]; !exists {
		s.PropertyOrder = append(s.PropertyOrder, name)
	}
	s.Properties[name] = prop
	return s
}

// AddRequired adds required field names to an object schema.
func (s *JSONSchema) AddRequired(names ...string) *JSONSchema {
	s.Required = append(s.Required, names...)
	return s
}

// WithMinLength sets the minimum length for a string schema.
func (s *JSONSchema) WithMinLength(min int) *JSONSchema {
	s.MinLength = &min
	return s
}

// WithMaxLength sets the maximum length for a string schema.
func (s *JSONSchema) WithMaxLength(max int) *JSONSchema {
	s.MaxLength = &max
	return s
}

// WithPattern sets the regex pattern for a string schema.
func (s *JSONSchema) WithPattern(pattern string) *JSONSchema {
	s.Pattern = pattern
	return s
}

// WithFormat sets the format for a string schema.
func (s *JSONSchema) WithFormat(format StringFormat) *JSONSchema {
	s.Format = format
	return s
}

// WithMinimum sets the minimum value for a numeric schema.
func (s *JSONSchema) WithMinimum(min float64) *JSONSchema {
	s.Minimum = &min
	return s
}

// WithMaximum sets the maximum value for a numeric schema.
func (s *JSONSchema) WithMaximum(max float64) *JSONSchema {
	s.Maximum = &max
	return s
}

// WithExclusiveMinimum sets the exclusive minimum for a numeric schema.
func (s *JSONSchema) WithExclusiveMinimum(min float64) *JSONSchema {
	s.ExclusiveMinimum = &min
	return s
}

// WithExclusiveMaximum sets the exclusive maximum for a numeric schema.
func (s *JSONSchema) WithExclusiveMaximum(max float64) *JSONSchema {
	s.ExclusiveMaximum = &max
	return s
}

// WithMultipleOf sets the multipleOf constraint for a numeric schema.
func (s *JSONSchema) WithMultipleOf(val float64) *JSONSchema {
	s.MultipleOf = &val
	return s
}

// WithMinItems sets the minimum items for an array schema.
func (s *JSONSchema) WithMinItems(min int) *JSONSchema {
	s.MinItems = &min
	return s
}

// WithMaxItems sets the maximum items for an array schema.
func (s *JSONSchema) WithMaxItems(max int) *JSONSchema {
	s.MaxItems = &max
	return s
}

// WithUniqueItems sets the uniqueItems constraint for an array schema.
func (s *JSONSchema) WithUniqueItems(unique bool) *JSONSchema {
	s.UniqueItems = &unique
	return s
}

// WithAdditionalProperties sets whether extra fields are allowed.
func (s *JSONSchema) WithAdditionalProperties(allowed bool) *JSONSchema {
	s.AdditionalProperties = &allowed
	return s
}

// WithEnum sets the enum values.
func (s *JSONSchema) WithEnum(values ...any) *JSONSchema {
	s.Enum = values
	return s
}

// WithConst sets the const value.
func (s *JSONSchema) WithConst(value any) *JSONSchema {
	s.Const = value
	return s
}

// IsRequired checks if a property is required.
func (s *JSONSchema) IsRequired(name string) bool {
	for _, req := range s.Required {
		if req == name {
			return true
		}
	}
	return false
}

// GetProperty returns a property schema by name, or nil.
func (s *JSONSchema) GetProperty(name string) *JSONSchema {
	if s.Properties == nil {
		return nil
	}
	return s.Properties[name]
}

// OrderedProperties returns property names in declaration order. Names
// present in Properties but absent from PropertyOrder (e.g. schemas
// deserialized from JSON) are appended sorted at the end, so the order
// is stable across calls.
func (s *JSONSchema) OrderedProperties() []string {
	names := make([]string, 0, len(s.Properties))
	seen := make(map[string]bool, len(s.Properties))
	for _, name := range s.PropertyOrder {
		if _, ok := s.Properties[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range s.Properties {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// Clone creates a deep copy of the schema.
func (s *JSONSchema) Clone() *JSONSchema {
	if s == nil {
		return nil
	}

	clone := &JSONSchema{
		Schema:      s.Schema,
		Title:       s.Title,
		Description: s.Description,
		Type:        s.Type,
		Pattern:     s.Pattern,
		Format:      s.Format,
		Default:     s.Default,
		Const:       s.Const,
	}

	if s.Properties != nil {
		clone.Properties = make(map[string]*JSONSchema, len(s.Properties))
		for k, v := range s.Properties {
			clone.Properties[k] = v.Clone()
		}
	}
	if s.PropertyOrder != nil {
		clone.PropertyOrder = append([]string(nil), s.PropertyOrder...)
	}
	if s.Required != nil {
		clone.Required = append([]string(nil), s.Required...)
	}
	if s.Enum != nil {
		clone.Enum = append([]any(nil), s.Enum...)
	}
	clone.Items = s.Items.Clone()

	cloneInt := func(p *int) *int {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	cloneFloat := func(p *float64) *float64 {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	cloneBool := func(p *bool) *bool {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}

	clone.AdditionalProperties = cloneBool(s.AdditionalProperties)
	clone.MinProperties = cloneInt(s.MinProperties)
	clone.MaxProperties = cloneInt(s.MaxProperties)
	clone.MinItems = cloneInt(s.MinItems)
	clone.MaxItems = cloneInt(s.MaxItems)
	clone.UniqueItems = cloneBool(s.UniqueItems)
	clone.MinLength = cloneInt(s.MinLength)
	clone.MaxLength = cloneInt(s.MaxLength)
	clone.Minimum = cloneFloat(s.Minimum)
	clone.Maximum = cloneFloat(s.Maximum)
	clone.ExclusiveMinimum = cloneFloat(s.ExclusiveMinimum)
	clone.ExclusiveMaximum = cloneFloat(s.ExclusiveMaximum)
	clone.MultipleOf = cloneFloat(s.MultipleOf)

	return clone
}

// ToJSON serializes the schema to JSON.
func (s *JSONSchema) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

// ToJSONIndent serializes the schema to indented JSON.
func (s *JSONSchema) ToJSONIndent() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// FromJSON deserializes a schema from JSON.
func FromJSON(data []byte) (*JSONSchema, error) {
	var schema JSONSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON schema: %w", err)
	}
	return &schema, nil
}
