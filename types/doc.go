// Copyright 2026 Schemaloop Authors
// Use of this source code is governed by the project license.

/*
Package types provides core types used across the schemaloop library.

This package has ZERO dependencies on other schemaloop packages to avoid
circular imports. All other packages should import types from here.

# Main types

  - Message / Role / ToolCall — conversation units exchanged with a provider
  - Mode / ModeFamily — the wire convention used to request structured output
  - TokenUsage — cumulative token and cost accounting
  - Error / ErrorCode — unified error structure with retryability
*/
package types
