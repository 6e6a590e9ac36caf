package tokenizer

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/schemaloop/schemaloop/types"
)

// Counter counts tokens in text and conversations. Implementations
// must be safe for concurrent use.
type Counter interface {
	// CountText returns the token count of a single text payload.
	CountText(text string) (int, error)

	// CountMessages returns the total token count of a conversation,
	// including per-message role and separator overhead.
	CountMessages(messages []types.Message) (int, error)

	// Name identifies the counter in diagnostics.
	Name() string
}

// Estimate fills in a usage record for a response whose provider
// reported nothing: prompt side from the conversation, completion
// side from the response text. The result is flagged Estimated.
func Estimate(c Counter, conversation []types.Message, completion string) (types.TokenUsage, error) {
	prompt, err := c.CountMessages(conversation)
	if err != nil {
		return types.TokenUsage{}, fmt.Errorf("count prompt tokens: %w", err)
	}
	out, err := c.CountText(completion)
	if err != nil {
		return types.TokenUsage{}, fmt.Errorf("count completion tokens: %w", err)
	}
	return types.TokenUsage{
		PromptTokens:     prompt,
		CompletionTokens: out,
		TotalTokens:      prompt + out,
		Estimated:        true,
	}, nil
}

var modelEncodings = map[string]string{
	"gpt-4o":        "o200k_base",
	"gpt-4o-mini":   "o200k_base",
	"gpt-4.1":       "o200k_base",
	"gpt-4-turbo":   "cl100k_base",
	"gpt-4":         "cl100k_base",
	"gpt-3.5-turbo": "cl100k_base",
}

// Tiktoken counts exactly using the encoding registered for the
// model. Encoding data loads lazily on first use.
type Tiktoken struct {
	model    string
	encoding string

	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
}

// NewTiktoken builds a counter for model. Unknown models fall back to
// the cl100k_base encoding after a prefix match attempt.
func NewTiktoken(model string) *Tiktoken {
	encoding, ok := modelEncodings[model]
	if !ok {
		for prefix, e := range modelEncodings {
			if len(model) >= len(prefix) && model[:len(prefix)] == prefix {
				encoding, ok = e, true
				break
			}
		}
	}
	if !ok {
		encoding = "cl100k_base"
	}
	return &Tiktoken{model: model, encoding: encoding}
}

func (t *Tiktoken) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

func (t *Tiktoken) CountText(text string) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

func (t *Tiktoken) CountMessages(messages []types.Message) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	total := 0
	for _, msg := range messages {
		// Per-message overhead: role marker plus separators.
		total += 4
		total += len(t.enc.Encode(msg.Content, nil, nil))
		total += len(t.enc.Encode(string(msg.Role), nil, nil))
		for _, call := range msg.ToolCalls {
			total += len(t.enc.Encode(call.Name, nil, nil))
			total += len(t.enc.Encode(string(call.Arguments), nil, nil))
		}
	}
	total += 3
	return total, nil
}

func (t *Tiktoken) Name() string {
	return fmt.Sprintf("tiktoken[%s]", t.encoding)
}

// Estimator approximates counts from character classes. CJK runs
// about 1.5 chars per token, everything else about 4.
type Estimator struct{}

// NewEstimator returns the ratio-based counter.
func NewEstimator() Estimator { return Estimator{} }

func (Estimator) CountText(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	total := utf8.RuneCountInString(text)
	cjk := 0
	for _, r := range text {
		if isCJK(r) {
			cjk++
		}
	}
	estimated := int(float64(cjk)/1.5 + float64(total-cjk)/4.0)
	if estimated == 0 {
		estimated = 1
	}
	return estimated, nil
}

func (e Estimator) CountMessages(messages []types.Message) (int, error) {
	total := 0
	for _, msg := range messages {
		n, err := e.CountText(msg.Content)
		if err != nil {
			return 0, err
		}
		total += n + 4
		for _, call := range msg.ToolCalls {
			args, err := e.CountText(string(call.Arguments))
			if err != nil {
				return 0, err
			}
			total += args
		}
	}
	total += 3
	return total, nil
}

func (Estimator) Name() string { return "estimator" }

func isCJK(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF: // CJK unified ideographs
		return true
	case r >= 0x3400 && r <= 0x4DBF: // extension A
		return true
	case r >= 0x3040 && r <= 0x30FF: // hiragana, katakana
		return true
	case r >= 0xAC00 && r <= 0xD7AF: // hangul syllables
		return true
	}
	return false
}
