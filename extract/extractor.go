package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/schemaloop/schemaloop/llm"
	"github.com/schemaloop/schemaloop/types"
)

var (
	// ErrNoCandidate means no structured payload was found in the
	// response. Retryable: the reask loop turns it into a root-path
	// validation failure and asks the model to return valid JSON.
	ErrNoCandidate = types.NewError(types.ErrExtractionFailed, "no structured candidate found in response").WithRetryable(true)

	// ErrTruncated means the provider hit a token or length limit
	// mid-generation. Terminal: never fed back into the reask loop.
	ErrTruncated = types.NewError(types.ErrTruncated, "response truncated by length limit")
)

// Candidate is one extracted, not-yet-validated structured payload.
type Candidate struct {
	// Raw is the candidate JSON payload.
	Raw json.RawMessage

	// ToolCallID identifies the originating tool call, when the mode
	// delivered the candidate through one. Reask turns answer this ID.
	ToolCallID string
}

// Candidates pulls the structured payload(s) out of a response
// according to the active mode. schemaName is the contract name tool
// calls are matched against.
//
// Single-candidate modes return exactly one candidate; the parallel
// tool-call mode returns one per matching call, in response order.
func Candidates(resp *llm.Response, mode types.Mode, schemaName string) ([]Candidate, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: nil response", ErrNoCandidate)
	}
	if resp.Truncated() {
		return nil, ErrTruncated
	}

	switch mode.Family() {
	case types.FamilyTool:
		return fromToolCalls(resp, mode, schemaName)
	case types.FamilyJSON:
		return fromJSONBody(resp)
	case types.FamilyMarkdown:
		return fromMarkdown(resp)
	default:
		return nil, fmt.Errorf("%w: unhandled mode %q", ErrNoCandidate, mode)
	}
}

func fromToolCalls(resp *llm.Response, mode types.Mode, schemaName string) ([]Candidate, error) {
	if len(resp.ToolCalls) == 0 {
		return nil, fmt.Errorf("%w: response carries no tool calls", ErrNoCandidate)
	}

	var out []Candidate
	for _, call := range resp.ToolCalls {
		if schemaName != "" && call.Name != schemaName {
			continue
		}
		// Malformed arguments still become a candidate so the validator
		// reports a root-path error and the loop reasks uniformly.
		out = append(out, Candidate{Raw: call.Arguments, ToolCallID: call.ID})
		if !mode.Parallel() {
			break
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no tool call matches schema %q", ErrNoCandidate, schemaName)
	}
	return out, nil
}

func fromJSONBody(resp *llm.Response) ([]Candidate, error) {
	body := strings.TrimSpace(resp.Content)
	if body == "" {
		return nil, fmt.Errorf("%w: empty text payload", ErrNoCandidate)
	}
	// The whole payload is the candidate; JSON syntax errors surface
	// as root-path validation failures downstream.
	return []Candidate{{Raw: json.RawMessage(body)}}, nil
}

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

func fromMarkdown(resp *llm.Response) ([]Candidate, error) {
	body := strings.TrimSpace(resp.Content)
	if body == "" {
		return nil, fmt.Errorf("%w: empty text payload", ErrNoCandidate)
	}

	if strings.Contains(body, "```") {
		if m := fenceRe.FindStringSubmatch(body); len(m) > 1 {
			fenced := strings.TrimSpace(m[1])
			if fenced != "" {
				return []Candidate{{Raw: json.RawMessage(fenced)}}, nil
			}
		}
	}

	if span, ok := firstJSONSpan(body); ok {
		return []Candidate{{Raw: json.RawMessage(span)}}, nil
	}

	return nil, fmt.Errorf("%w: no JSON block or balanced span in text", ErrNoCandidate)
}

// firstJSONSpan returns the first balanced {...} or [...] span in s
// that parses as JSON. Brace matching is string- and escape-aware so
// braces inside string literals do not confuse the scan.
func firstJSONSpan(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		open := s[i]
		if open != '{' && open != '[' {
			continue
		}
		if end, ok := matchBalanced(s, i); ok {
			span := s[i : end+1]
			if gjson.Valid(span) {
				return span, true
			}
		}
	}
	return "", false
}

func matchBalanced(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		ch := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
