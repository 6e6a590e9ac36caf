package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Generator derives a JSONSchema from a Go type using reflection.
type Generator struct {
	// visited guards against unbounded recursion on self-referential types.
	visited map[reflect.Type]bool
}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator {
	return &Generator{visited: make(map[reflect.Type]bool)}
}

// Generate derives a JSON Schema from a Go type. It supports structs,
// slices, maps, pointers and basic types. Struct fields may carry a
// "json" tag for the field name and a "jsonschema" tag for constraints:
//
//   - required — mark the field required
//   - enum=a,b,c — enumerated values
//   - minimum=0 / maximum=100 — numeric bounds
//   - minLength=1 / maxLength=100 — string length bounds
//   - pattern=^[a-z]+$ — regex the string must match
//   - format=email — string format (email, uri, uuid, date-time, ...)
//   - minItems=1 / maxItems=10 — array size bounds
//   - description=... — free-text field description
//   - default=... — default applied to a missing optional field
func (g *Generator) Generate(t reflect.Type) (*JSONSchema, error) {
	g.visited = make(map[reflect.Type]bool)
	return g.generate(t)
}

// GenerateFromValue derives a JSON Schema from a value's type.
func (g *Generator) GenerateFromValue(v any) (*JSONSchema, error) {
	if v == nil {
		return nil, fmt.Errorf("cannot generate schema from nil value")
	}
	return g.Generate(reflect.TypeOf(v))
}

func (g *Generator) generate(t reflect.Type) (*JSONSchema, error) {
	if t == nil {
		return nil, fmt.Errorf("cannot generate schema for nil type")
	}

	if t.Kind() == reflect.Ptr {
		return g.generate(t.Elem())
	}

	if g.visited[t] {
		// Placeholder for recursive types.
		return &JSONSchema{Type: TypeObject}, nil
	}

	switch t.Kind() {
	case reflect.String:
		return NewString(), nil

	case reflect.Bool:
		return NewBoolean(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return NewInteger(), nil

	case reflect.Float32, reflect.Float64:
		return NewNumber(), nil

	case reflect.Slice, reflect.Array:
		elem, err := g.generate(t.Elem())
		if err != nil {
			return nil, fmt.Errorf("failed to generate schema for array element: %w", err)
		}
		return NewArray(elem), nil

	case reflect.Map:
		// Maps become objects accepting additional properties.
		if _, err := g.generate(t.Elem()); err != nil {
			return nil, fmt.Errorf("failed to generate schema for map value: %w", err)
		}
		allowed := true
		s := NewObject()
		s.AdditionalProperties = &allowed
		return s, nil

	case reflect.Struct:
		return g.generateStruct(t)

	case reflect.Interface:
		// Any type.
		return &JSONSchema{}, nil

	default:
		return nil, fmt.Errorf("unsupported type: %s", t.Kind())
	}
}

func (g *Generator) generateStruct(t reflect.Type) (*JSONSchema, error) {
	g.visited[t] = true
	defer func() { g.visited[t] = false }()

	s := NewObject()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, omitempty := jsonFieldName(field)
		if name == "-" {
			continue
		}

		fieldSchema, err := g.generate(field.Type)
		if err != nil {
			return nil, fmt.Errorf("failed to generate schema for field %s: %w", field.Name, err)
		}

		opts := parseTagOptions(field.Tag.Get("jsonschema"))
		if err := applyTagOptions(fieldSchema, opts, field.Type); err != nil {
			return nil, fmt.Errorf("failed to apply jsonschema tag for field %s: %w", field.Name, err)
		}

		s.AddProperty(name, fieldSchema)

		// A field is required when the tag says so, or when it is a
		// non-pointer field without omitempty.
		_, req := opts["required"]
		if req || (!omitempty && field.Type.Kind() != reflect.Ptr) {
			s.AddRequired(name)
		}
	}

	return s, nil
}

// jsonFieldName extracts the wire name from the json tag, falling back
// to the struct field name, and reports whether omitempty is set.
func jsonFieldName(field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name, false
	}
	parts := strings.Split(tag, ",")
	name := parts[0]
	if name == "" {
		name = field.Name
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			return name, true
		}
	}
	return name, false
}

func applyTagOptions(s *JSONSchema, opts map[string]string, t reflect.Type) error {
	if desc, ok := opts["description"]; ok {
		s.Description = desc
	}
	if def, ok := opts["default"]; ok {
		s.Default = coerceTagValue(def, t)
	}
	if enumStr, ok := opts["enum"]; ok {
		values := strings.Split(enumStr, ",")
		s.Enum = make([]any, len(values))
		for i, v := range values {
			s.Enum[i] = coerceTagValue(strings.TrimSpace(v), t)
		}
	}

	setInt := func(key string, dst **int) {
		if raw, ok := opts[key]; ok {
			if v, err := strconv.Atoi(raw); err == nil {
				*dst = &v
			}
		}
	}
	setFloat := func(key string, dst **float64) {
		if raw, ok := opts[key]; ok {
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				*dst = &v
			}
		}
	}

	setInt("minLength", &s.MinLength)
	setInt("maxLength", &s.MaxLength)
	setInt("minItems", &s.MinItems)
	setInt("maxItems", &s.MaxItems)
	setFloat("minimum", &s.Minimum)
	setFloat("maximum", &s.Maximum)
	setFloat("exclusiveMinimum", &s.ExclusiveMinimum)
	setFloat("exclusiveMaximum", &s.ExclusiveMaximum)
	setFloat("multipleOf", &s.MultipleOf)

	if pattern, ok := opts["pattern"]; ok {
		s.Pattern = pattern
	}
	if format, ok := opts["format"]; ok {
		s.Format = StringFormat(format)
	}
	return nil
}

// knownOptionKeys are the jsonschema tag keys the parser recognizes as
// starting a new option; commas inside enum or pattern values that do
// not introduce one of these keys are kept as part of the value.
var knownOptionKeys = map[string]bool{
	"required": true, "enum": true, "minimum": true, "maximum": true,
	"exclusiveMinimum": true, "exclusiveMaximum": true, "multipleOf": true,
	"minLength": true, "maxLength": true, "pattern": true, "format": true,
	"minItems": true, "maxItems": true, "description": true, "default": true,
}

// parseTagOptions parses a jsonschema tag of the form
// "required,enum=a,b,c,minimum=0" into an option map. Splitting is
// comma-based but a comma only terminates the current value when the
// following segment introduces a known option key.
func parseTagOptions(tag string) map[string]string {
	opts := make(map[string]string)
	if tag == "" {
		return opts
	}

	segments := strings.Split(tag, ",")
	var key, value string
	inValue := false

	flush := func() {
		if key != "" {
			opts[key] = value
		}
		key, value = "", ""
		inValue = false
	}

	for _, seg := range segments {
		trimmed := strings.TrimSpace(seg)
		eq := strings.Index(trimmed, "=")

		startsOption := false
		if eq > 0 && knownOptionKeys[trimmed[:eq]] {
			startsOption = true
		} else if eq < 0 && knownOptionKeys[trimmed] {
			startsOption = true
		}

		switch {
		case startsOption:
			flush()
			if eq > 0 {
				key = trimmed[:eq]
				value = trimmed[eq+1:]
				inValue = true
			} else {
				key = trimmed
				inValue = false
			}
		case inValue:
			// Continuation of the previous value (e.g. enum=a,b,c).
			value += "," + seg
		default:
			// Unknown bare segment; record it as a boolean option.
			flush()
			key = trimmed
		}
	}
	flush()

	return opts
}

// coerceTagValue converts a tag value string to the field's Go type so
// that enum members and defaults compare correctly during validation.
func coerceTagValue(value string, t reflect.Type) any {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Bool:
		return value == "true"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	case reflect.Float32, reflect.Float64:
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	}
	return value
}
