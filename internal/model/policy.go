package model

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/tabwarden/tabwarden/internal/config"
	"github.com/tabwarden/tabwarden/internal/errors"
)

// CallPolicy is an explicit retry/timeout policy passed into the gateway.
// The pipeline never sees retry mechanics; it sees one call that either
// succeeds or is exhausted.
type CallPolicy struct {
	MaxAttempts int
	Timeout     time.Duration
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      bool
}

func DefaultCallPolicy() CallPolicy {
	timeout, _ := config.DurationOrDefault("", config.DefaultCallTimeout)
	baseDelay, _ := config.DurationOrDefault("", config.DefaultCallBaseDelay)
	maxDelay, _ := config.DurationOrDefault("", config.DefaultCallMaxDelay)

	return CallPolicy{
		MaxAttempts: config.DefaultCallMaxAttempts,
		Timeout:     timeout,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		Multiplier:  config.DefaultCallMultiplier,
		Jitter:      true,
	}
}

// PolicyFromConfig builds a CallPolicy from configuration, filling holes with
// the defaults.
func PolicyFromConfig(cfg config.CallConfig) CallPolicy {
	p := DefaultCallPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if d, err := config.DurationOrDefault(cfg.Timeout, config.DefaultCallTimeout); err == nil {
		p.Timeout = d
	}
	if d, err := config.DurationOrDefault(cfg.BaseDelay, config.DefaultCallBaseDelay); err == nil {
		p.BaseDelay = d
	}
	if d, err := config.DurationOrDefault(cfg.MaxDelay, config.DefaultCallMaxDelay); err == nil {
		p.MaxDelay = d
	}
	if cfg.Multiplier > 0 {
		p.Multiplier = cfg.Multiplier
	}
	return p
}

// Do runs op under the policy: each attempt gets its own timeout, transient
// failures back off exponentially, anything else fails immediately.
func (p CallPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if p.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		}

		err := op(attemptCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return nil
		}

		mapped := errors.MapError(err)
		lastErr = mapped

		if !errors.IsRetryable(mapped) {
			return mapped
		}
		if attempt == attempts-1 {
			break
		}

		delay := p.backoff(attempt)
		slog.Warn("Gateway call failed, backing off",
			"attempt", attempt+1,
			"max_attempts", attempts,
			"delay", delay,
			"error", mapped,
		)

		select {
		case <-ctx.Done():
			return errors.MapError(ctx.Err())
		case <-time.After(delay):
		}
	}

	return lastErr
}

func (p CallPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	if delay <= 0 {
		delay = time.Second
	}

	multiplier := p.Multiplier
	if multiplier <= 1 {
		multiplier = 2
	}
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * multiplier)
	}

	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter {
		delay += time.Duration(rand.Int63n(int64(delay)/4 + 1))
	}
	return delay
}
