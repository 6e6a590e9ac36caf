package schemaloop

import (
	"fmt"

	"github.com/schemaloop/schemaloop/schema"
	"github.com/schemaloop/schemaloop/types"
)

// ExhaustedError reports that the budget disallowed a further attempt
// after a failure. It carries the full history and the cumulative
// usage, so cost is never silently lost on failure.
type ExhaustedError struct {
	Attempts []AttemptRecord
	Usage    types.TokenUsage
}

// Error surfaces the last attempt's first validation error as the
// primary message.
func (e *ExhaustedError) Error() string {
	n := len(e.Attempts)
	last := e.lastErrors()
	if last == nil || len(last.Errors) == 0 {
		return fmt.Sprintf("attempted %d times; no valid candidate produced", n)
	}
	first := last.Errors[0]
	return fmt.Sprintf("attempted %d times; last error: %s: %s", n, first.Path, first.Message)
}

// Code reports the unified error code for budget exhaustion.
func (e *ExhaustedError) Code() types.ErrorCode {
	return types.ErrRetriesExhausted
}

// Unwrap exposes the final attempt's validation errors, so errors.As
// can reach them through the wrapper.
func (e *ExhaustedError) Unwrap() error {
	if last := e.lastErrors(); last != nil {
		return last
	}
	return nil
}

// LastErrors returns the validation errors of the final attempt.
func (e *ExhaustedError) LastErrors() *schema.ValidationErrors {
	return e.lastErrors()
}

func (e *ExhaustedError) lastErrors() *schema.ValidationErrors {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Outcome.Errors
}

// TerminalError reports a condition no reask can fix: truncation or a
// failed provider call. The loop stops immediately regardless of
// remaining budget.
type TerminalError struct {
	Attempts []AttemptRecord
	Usage    types.TokenUsage
	Cause    error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("extraction terminated after %d attempt(s): %v", len(e.Attempts), e.Cause)
}

func (e *TerminalError) Unwrap() error { return e.Cause }
