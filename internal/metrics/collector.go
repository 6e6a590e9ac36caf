package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/schemaloop/schemaloop/types"
)

// Collector tracks extraction loop activity.
type Collector struct {
	callsTotal         *prometheus.CounterVec
	attemptsPerCall    *prometheus.HistogramVec
	attemptDuration    *prometheus.HistogramVec
	validationFailures *prometheus.CounterVec
	tokensUsed         *prometheus.CounterVec
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector registers the metric set under namespace. A nil
// registerer uses the default registry.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.callsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_calls_total",
			Help:      "Total number of top-level extraction calls",
		},
		[]string{"model", "mode", "status"},
	)

	c.attemptsPerCall = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_attempts_per_call",
			Help:      "Attempts consumed by one extraction call",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 10},
		},
		[]string{"model", "mode"},
	)

	c.attemptDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_attempt_duration_seconds",
			Help:      "Wall time of one provider attempt",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model", "mode"},
	)

	c.validationFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Total number of failed candidate validations",
		},
		[]string{"schema"},
	)

	c.tokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_used_total",
			Help:      "Total tokens consumed, by direction",
		},
		[]string{"model", "kind"},
	)

	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_cache_hits_total",
			Help:      "Total result cache hits",
		},
		[]string{"model"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_cache_misses_total",
			Help:      "Total result cache misses",
		},
		[]string{"model"},
	)

	return c
}

// RecordCall records the outcome of one top-level call. status is one
// of ok, exhausted, terminal.
func (c *Collector) RecordCall(model string, mode types.Mode, status string, attempts int) {
	c.callsTotal.WithLabelValues(model, string(mode), status).Inc()
	c.attemptsPerCall.WithLabelValues(model, string(mode)).Observe(float64(attempts))
}

// RecordAttempt records the wall time of one provider attempt.
func (c *Collector) RecordAttempt(model string, mode types.Mode, d time.Duration) {
	c.attemptDuration.WithLabelValues(model, string(mode)).Observe(d.Seconds())
}

// RecordValidationFailure counts one failed candidate validation.
func (c *Collector) RecordValidationFailure(schema string) {
	c.validationFailures.WithLabelValues(schema).Inc()
}

// RecordUsage counts token consumption from one attempt.
func (c *Collector) RecordUsage(model string, usage types.TokenUsage) {
	c.tokensUsed.WithLabelValues(model, "prompt").Add(float64(usage.PromptTokens))
	c.tokensUsed.WithLabelValues(model, "completion").Add(float64(usage.CompletionTokens))
}

// RecordCacheHit counts one result cache hit.
func (c *Collector) RecordCacheHit(model string) {
	c.cacheHits.WithLabelValues(model).Inc()
}

// RecordCacheMiss counts one result cache miss.
func (c *Collector) RecordCacheMiss(model string) {
	c.cacheMisses.WithLabelValues(model).Inc()
}
