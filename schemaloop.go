package schemaloop

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/schemaloop/schemaloop/cache"
	"github.com/schemaloop/schemaloop/config"
	"github.com/schemaloop/schemaloop/internal/metrics"
	"github.com/schemaloop/schemaloop/llm"
	"github.com/schemaloop/schemaloop/retry"
	"github.com/schemaloop/schemaloop/schema"
	"github.com/schemaloop/schemaloop/stream"
	"github.com/schemaloop/schemaloop/tokenizer"
	"github.com/schemaloop/schemaloop/types"
)

type options struct {
	model        string
	mode         types.Mode
	maxTokens    int
	budget       retry.Budget
	logger       *zap.Logger
	hooks        []Hook
	cache        *cache.Cache
	counter      tokenizer.Counter
	collector    *metrics.Collector
	tracer       trace.Tracer
	contractOpts []schema.ContractOption

	// Config-supplied sections are held here and resolved in New once
	// every option has run, so a later WithLogger reaches the budget
	// and cache built from config.
	retryCfg *config.RetryConfig
	logCfg   *config.LogConfig
	cacheCfg *config.Config
}

// Option configures a Runner.
type Option func(*options)

// WithModel sets the provider model identifier.
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithMode sets the structured-output wire convention. The mode is
// fixed for the whole loop; reask attempts never switch modes.
func WithMode(mode types.Mode) Option {
	return func(o *options) { o.mode = mode }
}

// WithMaxTokens caps the completion length per attempt.
func WithMaxTokens(n int) Option {
	return func(o *options) { o.maxTokens = n }
}

// WithBudget sets the attempt budget. Defaults to Fixed(3).
func WithBudget(b retry.Budget) Option {
	return func(o *options) {
		o.budget = b
		o.retryCfg = nil
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
		o.logCfg = nil
	}
}

// WithHook attaches an attempt observer.
func WithHook(h Hook) Option {
	return func(o *options) { o.hooks = append(o.hooks, h) }
}

// WithCache enables the result cache.
func WithCache(c *cache.Cache) Option {
	return func(o *options) {
		o.cache = c
		o.cacheCfg = nil
	}
}

// WithTokenCounter enables usage estimation for responses whose
// provider reported no usage.
func WithTokenCounter(c tokenizer.Counter) Option {
	return func(o *options) { o.counter = c }
}

// WithMetrics enables Prometheus metrics, including a per-attempt
// metrics hook.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.collector = c }
}

// WithTracer sets the OpenTelemetry tracer. Defaults to a no-op
// tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithContractOptions forwards options to the schema contract, for
// strictness and cross-field rules.
func WithContractOptions(opts ...schema.ContractOption) Option {
	return func(o *options) { o.contractOpts = append(o.contractOpts, opts...) }
}

// WithConfig applies a loaded configuration: model, mode, token cap,
// retry budget, logger, and cache tiers. Explicit options placed after
// it still override. Budget, logger, and cache construction happens in
// New, after all options ran.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.model = cfg.Extraction.Model
		o.mode = cfg.Mode()
		o.maxTokens = cfg.Extraction.MaxTokens
		retryCfg := cfg.Retry
		o.retryCfg = &retryCfg
		o.budget = nil
		logCfg := cfg.Log
		o.logCfg = &logCfg
		o.logger = nil
		if cfg.Cache.Enabled {
			o.cacheCfg = cfg
			o.cache = nil
		}
		if cfg.Extraction.Strict {
			o.contractOpts = append(o.contractOpts, schema.WithStrict())
		}
	}
}

// New builds a Runner for the target type. The schema contract is
// generated from T's struct tags; schemaName is the name tool calls
// are matched against.
func New[T any](client llm.Client, schemaName string, opts ...Option) (*Runner[T], error) {
	if client == nil {
		return nil, types.NewError(types.ErrInvalidRequest, "client must not be nil")
	}

	o := &options{
		mode:   types.ModeToolCall,
		tracer: noop.NewTracerProvider().Tracer("schemaloop"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if !o.mode.Valid() {
		return nil, types.NewError(types.ErrInvalidRequest, fmt.Sprintf("unknown mode %q", o.mode))
	}

	if o.logger == nil && o.logCfg != nil {
		logger, err := newLogger(*o.logCfg)
		if err != nil {
			return nil, types.NewError(types.ErrInvalidRequest, "build logger from config").WithCause(err)
		}
		o.logger = logger
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	switch {
	case o.budget != nil:
	case o.retryCfg != nil && o.retryCfg.Backoff:
		o.budget = retry.Backoff(&retry.Policy{
			MaxAttempts:  o.retryCfg.MaxAttempts,
			InitialDelay: o.retryCfg.InitialDelay,
			MaxDelay:     o.retryCfg.MaxDelay,
			Multiplier:   o.retryCfg.Multiplier,
			Jitter:       o.retryCfg.Jitter,
		}, o.logger)
	case o.retryCfg != nil:
		o.budget = retry.Fixed(o.retryCfg.MaxAttempts)
	default:
		o.budget = retry.Fixed(3)
	}

	if o.cache == nil && o.cacheCfg != nil {
		o.cache = newCache(o.cacheCfg, o.logger)
	}

	contract, err := schema.For[T](schemaName, o.contractOpts...)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, fmt.Sprintf("build contract %q", schemaName)).WithCause(err)
	}

	hooks := o.hooks
	if o.collector != nil {
		hooks = append(hooks, NewMetricsHook(o.collector, o.model, o.mode, schemaName))
	}

	return &Runner[T]{
		client:    client,
		contract:  contract,
		model:     o.model,
		mode:      o.mode,
		maxTokens: o.maxTokens,
		budget:    o.budget,
		logger:    o.logger,
		hooks:     hooks,
		cache:     o.cache,
		counter:   o.counter,
		collector: o.collector,
		tracer:    o.tracer,
	}, nil
}

// Extract is the one-shot convenience: build a runner, run a single
// user prompt, return the decoded value.
func Extract[T any](ctx context.Context, client llm.Client, schemaName, prompt string, opts ...Option) (*T, error) {
	runner, err := New[T](client, schemaName, opts...)
	if err != nil {
		return nil, err
	}
	result, err := runner.Run(ctx, []types.Message{types.NewUserMessage(prompt)})
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

// StreamFields opens a field-streaming call: one growing object whose
// partial snapshots arrive as the provider produces them. The final
// strictly validated value comes from the stream's Wait.
func (r *Runner[T]) StreamFields(ctx context.Context, conversation []types.Message) (*stream.FieldStream, error) {
	chunks, err := r.openStream(ctx, conversation)
	if err != nil {
		return nil, err
	}
	return stream.Fields(ctx, chunks, r.contract, r.logger), nil
}

// StreamItems opens a multi-item streaming call: each complete item
// is validated and emitted as soon as its boundary arrives.
func (r *Runner[T]) StreamItems(ctx context.Context, conversation []types.Message) (*stream.ItemStream, error) {
	chunks, err := r.openStream(ctx, conversation)
	if err != nil {
		return nil, err
	}
	return stream.Items(ctx, chunks, r.contract, r.logger), nil
}

// newLogger builds a zap logger from the log config section.
func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// newCache builds the result cache tiers from the cache and redis
// config sections.
func newCache(cfg *config.Config, logger *zap.Logger) *cache.Cache {
	var rdb *redis.Client
	if cfg.Cache.UseRedis {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
	}
	return cache.New(rdb, &cache.Config{
		LocalMaxSize: cfg.Cache.LocalMaxSize,
		LocalTTL:     cfg.Cache.LocalTTL,
		RedisTTL:     cfg.Cache.RedisTTL,
		EnableLocal:  true,
		EnableRedis:  cfg.Cache.UseRedis,
	}, logger)
}

func (r *Runner[T]) openStream(ctx context.Context, conversation []types.Message) (<-chan llm.Chunk, error) {
	chunks, err := r.client.Stream(ctx, &llm.Request{
		Model:     r.model,
		Messages:  types.AppendMessages(conversation),
		Schema:    r.contract.Describe(),
		Mode:      r.mode,
		MaxTokens: r.maxTokens,
	})
	if err != nil {
		return nil, types.NewError(types.ErrProviderCall, "open stream failed").WithCause(err)
	}
	return chunks, nil
}
