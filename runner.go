package schemaloop

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/schemaloop/schemaloop/cache"
	"github.com/schemaloop/schemaloop/extract"
	"github.com/schemaloop/schemaloop/internal/metrics"
	"github.com/schemaloop/schemaloop/llm"
	"github.com/schemaloop/schemaloop/retry"
	"github.com/schemaloop/schemaloop/schema"
	"github.com/schemaloop/schemaloop/tokenizer"
	"github.com/schemaloop/schemaloop/types"
)

// Runner drives the extraction loop for one schema contract. It is
// safe for concurrent use; every Run gets its own conversation,
// history, and usage accounting.
type Runner[T any] struct {
	client    llm.Client
	contract  *schema.Contract
	model     string
	mode      types.Mode
	maxTokens int
	budget    retry.Budget
	logger    *zap.Logger
	hooks     []Hook
	cache     *cache.Cache
	counter   tokenizer.Counter
	collector *metrics.Collector
	tracer    trace.Tracer
}

// Run executes attempts against the provider until a candidate
// validates, the budget is spent, or a terminal condition occurs.
// The input conversation is never mutated.
func (r *Runner[T]) Run(ctx context.Context, conversation []types.Message) (*Result[T], error) {
	callID := uuid.NewString()
	desc := r.contract.Describe()
	conv := types.AppendMessages(conversation)
	start := time.Now()

	ctx, span := r.tracer.Start(ctx, "schemaloop.run", trace.WithAttributes(
		attribute.String("schemaloop.call_id", callID),
		attribute.String("schemaloop.schema", r.contract.Name()),
		attribute.String("schemaloop.mode", string(r.mode)),
		attribute.String("schemaloop.model", r.model),
	))
	defer span.End()

	if result, ok := r.fromCache(ctx, callID, desc, conv); ok {
		span.SetAttributes(attribute.Bool("schemaloop.cache_hit", true))
		return result, nil
	}

	var attempts []AttemptRecord
	var usage types.TokenUsage

	for attempt := 1; ; attempt++ {
		record, values, terminalErr := r.runAttempt(ctx, attempt, conv, desc)
		attempts = append(attempts, record)
		usage.Add(record.Usage)
		for _, h := range r.hooks {
			h.OnAttempt(ctx, callID, record)
		}

		if terminalErr != nil {
			span.SetStatus(codes.Error, terminalErr.Error())
			r.recordCall("terminal", len(attempts))
			return nil, &TerminalError{Attempts: attempts, Usage: usage, Cause: terminalErr}
		}

		if record.Outcome.Valid {
			result := &Result[T]{
				Values:       values,
				Attempts:     attempts,
				Usage:        usage,
				Conversation: conv,
				CallID:       callID,
			}
			if len(values) > 0 {
				result.Value = values[0]
			}
			r.populateCache(ctx, desc, conversation, record.Outcome.Value, usage, len(attempts))
			r.recordCall("ok", len(attempts))
			span.SetAttributes(attribute.Int("schemaloop.attempts", len(attempts)))
			return result, nil
		}

		if !r.budget.Allow(attempt, time.Since(start)) {
			r.recordCall("exhausted", len(attempts))
			err := &ExhaustedError{Attempts: attempts, Usage: usage}
			span.SetStatus(codes.Error, err.Error())
			r.logger.Warn("retry budget exhausted",
				zap.String("call_id", callID),
				zap.Int("attempts", len(attempts)),
				zap.String("schema", r.contract.Name()),
			)
			return nil, err
		}
		if err := r.budget.Wait(ctx, attempt); err != nil {
			r.recordCall("terminal", len(attempts))
			return nil, &TerminalError{Attempts: attempts, Usage: usage, Cause: err}
		}

		conv = reask(conv, record.Response, record.Outcome.Errors, r.mode, r.contract.Name())
	}
}

// runAttempt performs one provider call plus extraction and
// validation. terminalErr is non-nil for conditions no reask fixes.
func (r *Runner[T]) runAttempt(ctx context.Context, index int, conv []types.Message, desc types.SchemaDescriptor) (AttemptRecord, []*T, error) {
	attemptStart := time.Now()
	ctx, span := r.tracer.Start(ctx, "schemaloop.attempt", trace.WithAttributes(
		attribute.Int("schemaloop.attempt", index),
	))
	defer span.End()

	resp, err := r.client.Complete(ctx, &llm.Request{
		Model:     r.model,
		Messages:  conv,
		Schema:    desc,
		Mode:      r.mode,
		MaxTokens: r.maxTokens,
	})
	record := AttemptRecord{Index: index, Response: resp, Duration: time.Since(attemptStart)}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		record.Outcome = schema.InvalidRoot("provider call failed")
		return record, nil, types.NewError(types.ErrProviderCall, "provider call failed").WithCause(err)
	}

	record.Usage = r.attemptUsage(resp, conv)
	record.Duration = time.Since(attemptStart)

	candidates, err := extract.Candidates(resp, r.mode, r.contract.Name())
	switch {
	case errors.Is(err, extract.ErrTruncated):
		record.Outcome = schema.InvalidRoot("response truncated by length limit")
		span.SetStatus(codes.Error, "truncated")
		return record, nil, extract.ErrTruncated
	case err != nil:
		// Extraction failure is handled like a validation failure so
		// the reask turn asks for valid JSON uniformly.
		record.Outcome = schema.InvalidRoot(err.Error())
		return record, nil, nil
	}

	outcome, values := r.validateAll(candidates)
	record.Outcome = outcome
	return record, values, nil
}

// validateAll validates every candidate; the attempt succeeds only
// when all of them pass. Errors from failing candidates are collected
// in candidate order.
func (r *Runner[T]) validateAll(candidates []extract.Candidate) (schema.Outcome, []*T) {
	var merged []schema.FieldError
	var values []*T
	var first schema.Outcome

	for i, cand := range candidates {
		outcome := r.contract.Validate(cand.Raw)
		if i == 0 {
			first = outcome
		}
		if !outcome.Valid {
			merged = append(merged, outcome.Errors.Errors...)
			continue
		}
		value, err := schema.Decode[T](outcome)
		if err != nil {
			merged = append(merged, schema.FieldError{Path: schema.RootPath, Message: err.Error()})
			continue
		}
		values = append(values, value)
	}

	if len(merged) > 0 {
		return schema.Invalid(&schema.ValidationErrors{Errors: merged}), nil
	}
	if len(candidates) == 1 {
		return first, values
	}
	return schema.Outcome{Valid: true, Value: first.Value}, values
}

func (r *Runner[T]) attemptUsage(resp *llm.Response, conv []types.Message) types.TokenUsage {
	if !resp.Usage.IsZero() || r.counter == nil {
		return resp.Usage
	}
	est, err := tokenizer.Estimate(r.counter, conv, resp.Content)
	if err != nil {
		r.logger.Debug("usage estimation failed", zap.Error(err))
		return resp.Usage
	}
	return est
}

func (r *Runner[T]) fromCache(ctx context.Context, callID string, desc types.SchemaDescriptor, conv []types.Message) (*Result[T], bool) {
	if r.cache == nil || r.mode.Parallel() {
		return nil, false
	}
	key := cache.Key(r.model, r.mode, desc, conv)
	entry, err := r.cache.Get(ctx, key)
	if err != nil {
		if r.collector != nil {
			r.collector.RecordCacheMiss(r.model)
		}
		return nil, false
	}

	var value T
	if err := json.Unmarshal(entry.Value, &value); err != nil {
		r.logger.Warn("cached value no longer decodes, ignoring", zap.String("key", key))
		return nil, false
	}
	if r.collector != nil {
		r.collector.RecordCacheHit(r.model)
	}
	return &Result[T]{
		Value:        &value,
		Values:       []*T{&value},
		Usage:        entry.Usage,
		Conversation: conv,
		CallID:       callID,
		FromCache:    true,
	}, true
}

func (r *Runner[T]) populateCache(ctx context.Context, desc types.SchemaDescriptor, original []types.Message, value json.RawMessage, usage types.TokenUsage, attempts int) {
	if r.cache == nil || r.mode.Parallel() || len(value) == 0 {
		return
	}
	key := cache.Key(r.model, r.mode, desc, original)
	entry := &cache.Entry{Value: value, Usage: usage, Attempts: attempts}
	if err := r.cache.Set(ctx, key, entry); err != nil {
		r.logger.Debug("cache store failed", zap.Error(err))
	}
}

func (r *Runner[T]) recordCall(status string, attempts int) {
	if r.collector == nil {
		return
	}
	r.collector.RecordCall(r.model, r.mode, status, attempts)
}
