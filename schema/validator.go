package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/schemaloop/schemaloop/types"
)

// RootPath is the synthetic field path used when a candidate cannot be
// parsed at all, so that extraction-level failures and field-level
// failures share one error shape.
const RootPath = "root"

// FieldError represents a validation error with a field path.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors represents the complete error list of one validation
// pass. Errors is never empty.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// Error implements the error interface.
func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i := range e.Errors {
		msgs[i] = e.Errors[i].Error()
	}
	return fmt.Sprintf("validation failed with %d errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Code reports the unified error code for validation failures.
func (e *ValidationErrors) Code() types.ErrorCode {
	return types.ErrValidationFailed
}

// Render formats the error list one "path: message" line per line, the
// shape embedded into reask correction turns.
func (e *ValidationErrors) Render() string {
	lines := make([]string, len(e.Errors))
	for i := range e.Errors {
		lines[i] = e.Errors[i].Error()
	}
	return strings.Join(lines, "\n")
}

// RootError builds a ValidationErrors with a single root-path error.
func RootError(message string) *ValidationErrors {
	return &ValidationErrors{Errors: []FieldError{{Path: RootPath, Message: message}}}
}

// Validator checks raw JSON candidates against a JSONSchema.
//
// Policy: numeric strings coerce to numeric fields, missing optional
// fields take their declared default, unknown extra fields are ignored
// unless Strict. Within one field the first failing rule wins; across
// fields of an object all errors are collected, so a single pass yields
// the complete error list.
type Validator struct {
	// Strict rejects fields not declared in the schema.
	Strict bool

	formats map[StringFormat]func(string) bool
}

// NewValidator creates a Validator with built-in format checks.
func NewValidator() *Validator {
	v := &Validator{formats: make(map[StringFormat]func(string) bool)}
	v.registerBuiltinFormats()
	return v
}

var (
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	uriRe      = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)
	uuidRe     = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	dateTimeRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`)
	dateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe     = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`)
	ipv4Re     = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)
	ipv6Re     = regexp.MustCompile(`^([0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}$|^::$|^([0-9a-fA-F]{1,4}:)*:([0-9a-fA-F]{1,4}:)*[0-9a-fA-F]{1,4}$`)
)

func (v *Validator) registerBuiltinFormats() {
	v.formats[FormatEmail] = emailRe.MatchString
	v.formats[FormatURI] = uriRe.MatchString
	v.formats[FormatUUID] = uuidRe.MatchString
	v.formats[FormatDateTime] = dateTimeRe.MatchString
	v.formats[FormatDate] = dateRe.MatchString
	v.formats[FormatTime] = timeRe.MatchString
	v.formats[FormatIPv4] = func(s string) bool {
		if !ipv4Re.MatchString(s) {
			return false
		}
		for _, part := range strings.Split(s, ".") {
			n, err := strconv.Atoi(part)
			if err != nil || n > 255 {
				return false
			}
		}
		return true
	}
	v.formats[FormatIPv6] = ipv6Re.MatchString
}

// RegisterFormat registers a custom format check.
func (v *Validator) RegisterFormat(format StringFormat, check func(string) bool) {
	v.formats[format] = check
}

// Validate checks data against the schema. On success it returns the
// normalized candidate (coercions applied, defaults filled in); on
// failure it returns a *ValidationErrors carrying every field error
// found in one pass. Validate is pure: the same input always yields
// the same outcome.
func (v *Validator) Validate(data []byte, s *JSONSchema) (json.RawMessage, error) {
	if s == nil {
		return json.RawMessage(data), nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, RootError(fmt.Sprintf("invalid JSON: %v", err))
	}

	normalized, errs := v.validateValue(value, s, "")
	if len(errs) > 0 {
		return nil, &ValidationErrors{Errors: errs}
	}

	out, err := json.Marshal(normalized)
	if err != nil {
		return nil, RootError(fmt.Sprintf("failed to normalize candidate: %v", err))
	}
	return out, nil
}

// validateValue validates one value. Scalars report at most one error
// (first failing rule); containers aggregate their children.
func (v *Validator) validateValue(value any, s *JSONSchema, path string) (any, []FieldError) {
	if s == nil {
		return value, nil
	}

	if s.Const != nil {
		if !equalValues(value, s.Const) {
			return value, []FieldError{{Path: path, Message: fmt.Sprintf("value must be %v", s.Const)}}
		}
		return value, nil
	}

	if len(s.Enum) > 0 {
		if !containsValue(s.Enum, value) {
			return value, []FieldError{{Path: path, Message: fmt.Sprintf("value must be one of: %v", s.Enum)}}
		}
	}

	switch s.Type {
	case TypeString:
		return value, v.validateString(value, s, path)
	case TypeNumber:
		return v.validateNumber(value, s, path, false)
	case TypeInteger:
		return v.validateNumber(value, s, path, true)
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return value, []FieldError{{Path: path, Message: fmt.Sprintf("expected boolean, got %s", jsonTypeName(value))}}
		}
		return value, nil
	case TypeNull:
		if value != nil {
			return value, []FieldError{{Path: path, Message: fmt.Sprintf("expected null, got %s", jsonTypeName(value))}}
		}
		return value, nil
	case TypeObject:
		return v.validateObject(value, s, path)
	case TypeArray:
		return v.validateArray(value, s, path)
	default:
		return value, nil
	}
}

func (v *Validator) validateString(value any, s *JSONSchema, path string) []FieldError {
	str, ok := value.(string)
	if !ok {
		return []FieldError{{Path: path, Message: fmt.Sprintf("expected string, got %s", jsonTypeName(value))}}
	}

	// First failing rule wins.
	if s.MinLength != nil && len(str) < *s.MinLength {
		return []FieldError{{Path: path, Message: fmt.Sprintf("string length %d is less than minimum %d", len(str), *s.MinLength)}}
	}
	if s.MaxLength != nil && len(str) > *s.MaxLength {
		return []FieldError{{Path: path, Message: fmt.Sprintf("string length %d exceeds maximum %d", len(str), *s.MaxLength)}}
	}
	if s.Pattern != "" {
		matched, err := regexp.MatchString(s.Pattern, str)
		if err != nil {
			return []FieldError{{Path: path, Message: fmt.Sprintf("invalid pattern %q: %v", s.Pattern, err)}}
		}
		if !matched {
			return []FieldError{{Path: path, Message: fmt.Sprintf("string does not match pattern %q", s.Pattern)}}
		}
	}
	if s.Format != "" {
		if check, ok := v.formats[s.Format]; ok && !check(str) {
			return []FieldError{{Path: path, Message: fmt.Sprintf("string does not match format %q", s.Format)}}
		}
	}
	return nil
}

// validateNumber validates numeric values, coercing numeric strings.
// It returns the possibly-coerced value so the normalized candidate
// carries a real number instead of the original string.
func (v *Validator) validateNumber(value any, s *JSONSchema, path string, integer bool) (any, []FieldError) {
	num, coerced, ok := toNumber(value)
	if !ok {
		want := "number"
		if integer {
			want = "integer"
		}
		return value, []FieldError{{Path: path, Message: fmt.Sprintf("expected %s, got %s", want, jsonTypeName(value))}}
	}

	if integer && num != math.Trunc(num) {
		return value, []FieldError{{Path: path, Message: fmt.Sprintf("expected integer, got %v", num)}}
	}

	if s.Minimum != nil && num < *s.Minimum {
		return value, []FieldError{{Path: path, Message: fmt.Sprintf("must be >= %v", *s.Minimum)}}
	}
	if s.Maximum != nil && num > *s.Maximum {
		return value, []FieldError{{Path: path, Message: fmt.Sprintf("must be <= %v", *s.Maximum)}}
	}
	if s.ExclusiveMinimum != nil && num <= *s.ExclusiveMinimum {
		return value, []FieldError{{Path: path, Message: fmt.Sprintf("must be > %v", *s.ExclusiveMinimum)}}
	}
	if s.ExclusiveMaximum != nil && num >= *s.ExclusiveMaximum {
		return value, []FieldError{{Path: path, Message: fmt.Sprintf("must be < %v", *s.ExclusiveMaximum)}}
	}
	if s.MultipleOf != nil && *s.MultipleOf != 0 {
		q := num / *s.MultipleOf
		if q != math.Trunc(q) {
			return value, []FieldError{{Path: path, Message: fmt.Sprintf("value %v is not a multiple of %v", num, *s.MultipleOf)}}
		}
	}

	if coerced {
		if integer {
			return int64(num), nil
		}
		return num, nil
	}
	return value, nil
}

func (v *Validator) validateObject(value any, s *JSONSchema, path string) (any, []FieldError) {
	obj, ok := value.(map[string]any)
	if !ok {
		return value, []FieldError{{Path: path, Message: fmt.Sprintf("expected object, got %s", jsonTypeName(value))}}
	}

	var errs []FieldError
	normalized := make(map[string]any, len(obj))
	for k, val := range obj {
		normalized[k] = val
	}

	// Fields are checked in declaration order; every field's (single)
	// error is collected before returning.
	for _, name := range s.OrderedProperties() {
		prop := s.Properties[name]
		fieldPath := joinPath(path, name)

		val, present := obj[name]
		if !present {
			if s.IsRequired(name) {
				errs = append(errs, FieldError{Path: fieldPath, Message: "required field is missing"})
			} else if prop != nil && prop.Default != nil {
				normalized[name] = prop.Default
			}
			continue
		}
		if val == nil && s.IsRequired(name) {
			errs = append(errs, FieldError{Path: fieldPath, Message: "required field must not be null"})
			continue
		}

		norm, fieldErrs := v.validateValue(val, prop, fieldPath)
		if len(fieldErrs) > 0 {
			errs = append(errs, fieldErrs...)
			continue
		}
		normalized[name] = norm
	}

	// Unknown extra fields are ignored unless the contract is strict or
	// the schema forbids them outright.
	rejectExtra := v.Strict || (s.AdditionalProperties != nil && !*s.AdditionalProperties)
	if rejectExtra {
		var unknown []string
		for name := range obj {
			if s.GetProperty(name) == nil {
				unknown = append(unknown, name)
			}
		}
		// Sorted so identical input always yields identical error order.
		sort.Strings(unknown)
		for _, name := range unknown {
			errs = append(errs, FieldError{Path: joinPath(path, name), Message: "unknown field not allowed"})
		}
	}

	// Object-level size rules run regardless; cross-field rules belong
	// to the Contract and run only after all fields pass.
	if s.MinProperties != nil && len(obj) < *s.MinProperties {
		errs = append(errs, FieldError{Path: path, Message: fmt.Sprintf("object has %d properties, minimum is %d", len(obj), *s.MinProperties)})
	}
	if s.MaxProperties != nil && len(obj) > *s.MaxProperties {
		errs = append(errs, FieldError{Path: path, Message: fmt.Sprintf("object has %d properties, maximum is %d", len(obj), *s.MaxProperties)})
	}

	return normalized, errs
}

func (v *Validator) validateArray(value any, s *JSONSchema, path string) (any, []FieldError) {
	arr, ok := value.([]any)
	if !ok {
		return value, []FieldError{{Path: path, Message: fmt.Sprintf("expected array, got %s", jsonTypeName(value))}}
	}

	var errs []FieldError
	if s.MinItems != nil && len(arr) < *s.MinItems {
		errs = append(errs, FieldError{Path: path, Message: fmt.Sprintf("array has %d items, minimum is %d", len(arr), *s.MinItems)})
	}
	if s.MaxItems != nil && len(arr) > *s.MaxItems {
		errs = append(errs, FieldError{Path: path, Message: fmt.Sprintf("array has %d items, maximum is %d", len(arr), *s.MaxItems)})
	}
	if s.UniqueItems != nil && *s.UniqueItems {
		seen := make(map[string]bool, len(arr))
		for i, item := range arr {
			key := canonicalKey(item)
			if seen[key] {
				errs = append(errs, FieldError{Path: fmt.Sprintf("%s[%d]", path, i), Message: "duplicate item in array with uniqueItems constraint"})
			}
			seen[key] = true
		}
	}

	normalized := make([]any, len(arr))
	copy(normalized, arr)
	if s.Items != nil {
		for i, item := range arr {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			norm, itemErrs := v.validateValue(item, s.Items, itemPath)
			if len(itemErrs) > 0 {
				errs = append(errs, itemErrs...)
				continue
			}
			normalized[i] = norm
		}
	}

	return normalized, errs
}

// toNumber converts a JSON value to float64, reporting whether a string
// coercion happened.
func toNumber(value any) (num float64, coerced, ok bool) {
	switch n := value.(type) {
	case float64:
		return n, false, true
	case json.Number:
		f, err := n.Float64()
		return f, false, err == nil
	case int:
		return float64(n), false, true
	case int64:
		return float64(n), false, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false, false
		}
		return f, true, true
	default:
		return 0, false, false
	}
}

func jsonTypeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64, json.Number, int, int64:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func equalValues(a, b any) bool {
	aNum, _, aOK := toNumberStrict(a)
	bNum, _, bOK := toNumberStrict(b)
	if aOK && bOK {
		return aNum == bNum
	}

	if aStr, ok := a.(string); ok {
		bStr, ok2 := b.(string)
		return ok2 && aStr == bStr
	}
	if aBool, ok := a.(bool); ok {
		bBool, ok2 := b.(bool)
		return ok2 && aBool == bBool
	}
	if a == nil && b == nil {
		return true
	}
	return canonicalKey(a) == canonicalKey(b)
}

// toNumberStrict is toNumber without string coercion, used for enum and
// const comparison where "25" and 25 must stay distinct.
func toNumberStrict(value any) (float64, bool, bool) {
	if _, isStr := value.(string); isStr {
		return 0, false, false
	}
	n, c, ok := toNumber(value)
	return n, c, ok
}

func containsValue(haystack []any, needle any) bool {
	for _, candidate := range haystack {
		if equalValues(candidate, needle) {
			return true
		}
	}
	return false
}

func joinPath(base, segment string) string {
	if base == "" {
		return segment
	}
	return base + "." + segment
}

func canonicalKey(value any) string {
	data, _ := json.Marshal(value)
	return string(data)
}
