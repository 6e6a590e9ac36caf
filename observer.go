package schemaloop

import (
	"context"

	"go.uber.org/zap"

	"github.com/schemaloop/schemaloop/internal/metrics"
	"github.com/schemaloop/schemaloop/types"
)

// Hook observes attempt records as the loop produces them. Hooks must
// not block; the loop calls them synchronously after every attempt,
// success or failure. With no hook attached the loop performs no
// observability I/O at all.
type Hook interface {
	OnAttempt(ctx context.Context, callID string, record AttemptRecord)
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(ctx context.Context, callID string, record AttemptRecord)

func (f HookFunc) OnAttempt(ctx context.Context, callID string, record AttemptRecord) {
	f(ctx, callID, record)
}

// LogHook writes one structured log line per attempt.
type LogHook struct {
	logger *zap.Logger
}

// NewLogHook builds a logging hook.
func NewLogHook(logger *zap.Logger) *LogHook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogHook{logger: logger}
}

func (h *LogHook) OnAttempt(_ context.Context, callID string, record AttemptRecord) {
	fields := []zap.Field{
		zap.String("call_id", callID),
		zap.Int("attempt", record.Index),
		zap.Bool("valid", record.Outcome.Valid),
		zap.Duration("duration", record.Duration),
		zap.Int("total_tokens", record.Usage.TotalTokens),
	}
	if record.Outcome.Valid {
		h.logger.Info("attempt succeeded", fields...)
		return
	}
	if record.Outcome.Errors != nil {
		fields = append(fields, zap.Int("validation_errors", len(record.Outcome.Errors.Errors)))
	}
	h.logger.Warn("attempt failed validation", fields...)
}

// MetricsHook feeds attempt records into the Prometheus collector.
type MetricsHook struct {
	collector *metrics.Collector
	model     string
	mode      types.Mode
	schema    string
}

// NewMetricsHook builds a metrics hook bound to one runner's labels.
func NewMetricsHook(collector *metrics.Collector, model string, mode types.Mode, schemaName string) *MetricsHook {
	return &MetricsHook{collector: collector, model: model, mode: mode, schema: schemaName}
}

func (h *MetricsHook) OnAttempt(_ context.Context, _ string, record AttemptRecord) {
	h.collector.RecordAttempt(h.model, h.mode, record.Duration)
	h.collector.RecordUsage(h.model, record.Usage)
	if !record.Outcome.Valid {
		h.collector.RecordValidationFailure(h.schema)
	}
}
