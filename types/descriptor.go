package types

import "encoding/json"

// SchemaDescriptor is the machine description of a target schema,
// suitable for embedding in a provider request as a tool definition,
// a response_format field, or prompt text depending on the mode.
// Parameters is a serialized JSON Schema. A contract's descriptor is
// stable across calls so reask attempts always reference the same
// schema.
type SchemaDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
	Strict      bool            `json:"strict,omitempty"`
}
