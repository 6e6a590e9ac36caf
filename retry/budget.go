package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Budget decides whether the reask loop may run another attempt.
// Attempts is the count of completed attempts so far, elapsed the time
// since the first attempt started.
type Budget interface {
	// Allow reports whether one more attempt may run.
	Allow(attempts int, elapsed time.Duration) bool

	// Wait blocks for the delay preceding the next attempt. attempts
	// is the count of completed attempts. Returns early with the
	// context error when ctx is canceled.
	Wait(ctx context.Context, attempts int) error

	// MaxAttempts is the hard ceiling on total attempts.
	MaxAttempts() int
}

// fixed is a plain attempt-count budget with no inter-attempt delay.
type fixed struct {
	max int
}

// Fixed returns a budget allowing at most n attempts. n < 1 is
// clamped to 1 so every call gets at least one attempt.
func Fixed(n int) Budget {
	if n < 1 {
		n = 1
	}
	return fixed{max: n}
}

func (f fixed) Allow(attempts int, _ time.Duration) bool { return attempts < f.max }

func (f fixed) Wait(_ context.Context, _ int) error { return nil }

func (f fixed) MaxAttempts() int { return f.max }

// Policy configures the exponential backoff budget.
type Policy struct {
	MaxAttempts  int           // total attempts, not retries
	MaxElapsed   time.Duration // 0 means no wall-clock ceiling
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool // ±25% randomization, spreads herd retries
}

// DefaultPolicy suits most provider reask sequences.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

type backoff struct {
	policy *Policy
	logger *zap.Logger
}

// Backoff returns an exponential backoff budget. A nil policy uses
// DefaultPolicy; out-of-range fields are clamped.
func Backoff(policy *Policy, logger *zap.Logger) Budget {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.InitialDelay <= 0 {
		policy.InitialDelay = 500 * time.Millisecond
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 10 * time.Second
	}
	if policy.Multiplier < 1.0 {
		policy.Multiplier = 2.0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &backoff{policy: policy, logger: logger}
}

func (b *backoff) Allow(attempts int, elapsed time.Duration) bool {
	if attempts >= b.policy.MaxAttempts {
		return false
	}
	if b.policy.MaxElapsed > 0 && elapsed >= b.policy.MaxElapsed {
		return false
	}
	return true
}

func (b *backoff) Wait(ctx context.Context, attempts int) error {
	if attempts < 1 {
		return nil
	}
	delay := b.delay(attempts)

	b.logger.Debug("backing off before next attempt",
		zap.Int("completed_attempts", attempts),
		zap.Duration("delay", delay),
	)

	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff wait canceled: %w", ctx.Err())
	case <-time.After(delay):
		return nil
	}
}

func (b *backoff) MaxAttempts() int { return b.policy.MaxAttempts }

// delay computes initial * multiplier^(attempts-1), capped at
// MaxDelay, with optional ±25% jitter.
func (b *backoff) delay(attempts int) time.Duration {
	d := float64(b.policy.InitialDelay) * math.Pow(b.policy.Multiplier, float64(attempts-1))
	if d > float64(b.policy.MaxDelay) {
		d = float64(b.policy.MaxDelay)
	}
	if b.policy.Jitter {
		jitter := d * 0.25
		d += (rand.Float64()*2 - 1) * jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
