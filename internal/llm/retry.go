package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/enfinlibre/formation/internal/metrics"
)

// RetryProvider is a decorator that retries transient errors with
// exponential backoff and jitter.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
	log    *zap.Logger
}

// WithRetry wraps a Provider with retry logic. A nil logger disables
// retry logging.
func WithRetry(p Provider, cfg RetryConfig, logger *zap.Logger) Provider {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryProvider{inner: p, config: cfg, log: logger.Named("llm")}
}

// retryReason labels why a failed attempt may be sent again. An empty
// reason means the error is final.
type retryReason string

const (
	reasonNone        retryReason = ""
	reasonRateLimit   retryReason = "rate_limit"
	reasonUnavailable retryReason = "unavailable"
	reasonInvalid     retryReason = "invalid"
)

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var (
		lastErr        error
		invalidRetried bool
	)

	for attempt := range r.config.MaxAttempts {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		reason := classifyRetry(err)
		if reason == reasonInvalid {
			// Invalid or empty content gets a single second chance.
			if invalidRetried {
				reason = reasonNone
			}
			invalidRetried = true
		}
		if reason == reasonNone || attempt == r.config.MaxAttempts-1 {
			break
		}

		wait := r.backoff(attempt, err)
		metrics.LLMRetries.WithLabelValues(string(reason)).Inc()
		r.log.Info("retrying llm request",
			zap.String("provider", r.inner.Name()),
			zap.String("purpose", PurposeFrom(ctx)),
			zap.String("reason", string(reason)),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
		)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	return nil, lastErr
}

func (r *RetryProvider) Name() string {
	return r.inner.Name()
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

// classifyRetry decides whether err is worth another attempt.
func classifyRetry(err error) retryReason {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return reasonNone
	}

	var (
		maxTok   *ErrMaxTokensExceeded
		rejected *ErrRejected
		invResp  *ErrInvalidResponse
		rl       *ErrRateLimit
	)
	switch {
	case errors.As(err, &maxTok):
		// A truncated answer would be truncated again.
		return reasonNone
	case errors.As(err, &rejected):
		return reasonNone
	case errors.As(err, &invResp):
		return reasonInvalid
	case errors.As(err, &rl):
		return reasonRateLimit
	}
	// Outages and network errors.
	return reasonUnavailable
}

// backoff computes the wait duration for the given attempt.
func (r *RetryProvider) backoff(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return min(rl.RetryAfter, r.config.MaxWait)
	}

	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	wait = min(wait, float64(r.config.MaxWait))

	// ±20% jitter.
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	return time.Duration(max(wait, 0))
}
