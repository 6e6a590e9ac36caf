// Copyright 2026 Schemaloop Authors
// Use of this source code is governed by the project license.

/*
Package schema models the target schema contract for structured output.

# Main types

  - JSONSchema — JSON Schema definition supporting objects, arrays, enums
    and the constraint keywords the validator enforces
  - Generator — derives a JSONSchema from a Go type via reflection,
    honoring "json" and "jsonschema" struct tags
  - Validator — checks a raw candidate against a JSONSchema, coercing
    numeric strings and applying defaults
  - Contract — the pairing of a named schema with validation policy;
    exposes Describe (stable descriptor for provider requests) and
    Validate (candidate → Outcome)

# Validation policy

Per field the first failing rule stops further rules for that field;
across fields all errors are collected in one pass, so a reask carries
a complete, actionable error list. Object-level (cross-field) rules run
only after every individual field passes.
*/
package schema
