package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/schemaloop/schemaloop/types"
)

// Outcome is the result of validating one candidate: either Valid with
// the normalized value, or invalid with a non-empty error list.
type Outcome struct {
	Valid  bool              `json:"valid"`
	Value  json.RawMessage   `json:"value,omitempty"`
	Errors *ValidationErrors `json:"errors,omitempty"`
}

// Invalid builds an invalid Outcome from a ValidationErrors.
func Invalid(errs *ValidationErrors) Outcome {
	return Outcome{Valid: false, Errors: errs}
}

// InvalidRoot builds an invalid Outcome with a single root-path error.
// Extraction failures with no parseable payload are reported this way
// so the reask loop handles them like any other validation failure.
func InvalidRoot(message string) Outcome {
	return Invalid(RootError(message))
}

// Rule is an object-level (cross-field) check. It receives the decoded
// candidate after every individual field has passed.
type Rule struct {
	Name  string
	Check func(obj map[string]any) error
}

// Contract pairs a named target schema with validation policy. A
// Contract is immutable after construction and safe for concurrent use.
type Contract struct {
	name        string
	description string
	schema      *JSONSchema
	validator   *Validator
	rules       []Rule

	// descriptor is computed once so Describe is stable across calls.
	descriptor types.SchemaDescriptor
}

// ContractOption configures a Contract.
type ContractOption func(*Contract)

// WithDescription sets the free-text description embedded in the descriptor.
func WithDescription(desc string) ContractOption {
	return func(c *Contract) { c.description = desc }
}

// WithStrict rejects fields the schema does not declare.
func WithStrict() ContractOption {
	return func(c *Contract) { c.validator.Strict = true }
}

// WithRule adds an object-level cross-field rule.
func WithRule(name string, check func(obj map[string]any) error) ContractOption {
	return func(c *Contract) { c.rules = append(c.rules, Rule{Name: name, Check: check}) }
}

// For builds a Contract for the Go type T, deriving the schema by
// reflection. The name identifies the schema in tool definitions and
// reask turns.
func For[T any](name string, opts ...ContractOption) (*Contract, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return nil, fmt.Errorf("cannot build contract for interface type")
	}
	s, err := NewGenerator().Generate(t)
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema for %T: %w", zero, err)
	}
	return FromSchema(name, s, opts...)
}

// FromSchema builds a Contract from an explicit JSONSchema.
func FromSchema(name string, s *JSONSchema, opts ...ContractOption) (*Contract, error) {
	if name == "" {
		return nil, fmt.Errorf("contract name cannot be empty")
	}
	if s == nil {
		return nil, fmt.Errorf("contract schema cannot be nil")
	}

	c := &Contract{
		name:      name,
		schema:    s,
		validator: NewValidator(),
	}
	for _, opt := range opts {
		opt(c)
	}

	params, err := s.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize schema: %w", err)
	}
	c.descriptor = types.SchemaDescriptor{
		Name:        c.name,
		Description: c.description,
		Parameters:  params,
		Strict:      c.validator.Strict,
	}
	return c, nil
}

// Name returns the contract name.
func (c *Contract) Name() string { return c.name }

// Schema returns the underlying JSONSchema.
func (c *Contract) Schema() *JSONSchema { return c.schema }

// Describe returns the machine description of the contract for
// embedding in provider requests. The result is identical on every
// call for the lifetime of the contract.
func (c *Contract) Describe() types.SchemaDescriptor { return c.descriptor }

// Validate checks a raw candidate against the contract. Coercions and
// defaults are applied; cross-field rules run only after every field
// passes. Validate is deterministic: equal candidates yield equal
// outcomes.
func (c *Contract) Validate(candidate []byte) Outcome {
	if len(strings.TrimSpace(string(candidate))) == 0 {
		return InvalidRoot("empty candidate")
	}

	normalized, err := c.validator.Validate(candidate, c.schema)
	if err != nil {
		if verrs, ok := err.(*ValidationErrors); ok {
			return Invalid(verrs)
		}
		return InvalidRoot(err.Error())
	}

	if len(c.rules) > 0 {
		var obj map[string]any
		if uerr := json.Unmarshal(normalized, &obj); uerr == nil {
			var errs []FieldError
			for _, rule := range c.rules {
				if rerr := rule.Check(obj); rerr != nil {
					errs = append(errs, FieldError{Path: RootPath, Message: fmt.Sprintf("%s: %v", rule.Name, rerr)})
				}
			}
			if len(errs) > 0 {
				return Invalid(&ValidationErrors{Errors: errs})
			}
		}
	}

	return Outcome{Valid: true, Value: normalized}
}

// Decode unmarshals a valid Outcome's normalized value into T.
func Decode[T any](o Outcome) (*T, error) {
	if !o.Valid {
		if o.Errors != nil {
			return nil, o.Errors
		}
		return nil, fmt.Errorf("cannot decode invalid outcome")
	}
	var value T
	if err := json.Unmarshal(o.Value, &value); err != nil {
		return nil, fmt.Errorf("failed to decode validated candidate: %w", err)
	}
	return &value, nil
}
