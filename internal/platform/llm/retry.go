package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// RetryProvider retries transient failures with capped exponential backoff.
// A schema-invalid answer gets exactly one more try.
type RetryProvider struct {
	inner Provider
	cfg   RetryConfig
}

func WithRetry(p Provider, cfg RetryConfig) Provider {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryProvider{inner: p, cfg: cfg}
}

func (r *RetryProvider) ModelID() string { return r.inner.ModelID() }

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var (
		err            error
		invalidAllowed = 1
	)
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(r.delay(attempt, err))
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}

		var resp *Response
		if resp, err = r.inner.Generate(ctx, req); err == nil {
			return resp, nil
		}
		switch retryClass(err) {
		case classFatal:
			return nil, err
		case classInvalid:
			if invalidAllowed == 0 {
				return nil, err
			}
			invalidAllowed--
		}
	}
	return nil, err
}

type failureClass int

const (
	classTransient failureClass = iota
	classInvalid
	classFatal
)

func retryClass(err error) failureClass {
	var (
		maxTok   *ErrMaxTokensExceeded
		rejected *ErrRejected
		invalid  *ErrInvalidResponse
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return classFatal
	case errors.As(err, &maxTok), errors.As(err, &rejected):
		return classFatal
	case errors.As(err, &invalid):
		return classInvalid
	}
	// rate limits, outages and plain network errors
	return classTransient
}

// delay is the wait before attempt (1-based retries). A server-sent
// Retry-After wins over the computed backoff.
func (r *RetryProvider) delay(attempt int, last error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(last, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}
	wait := r.cfg.InitialWait
	for i := 1; i < attempt; i++ {
		wait = time.Duration(float64(wait) * r.cfg.Multiplier)
		if wait >= r.cfg.MaxWait {
			break
		}
	}
	wait = min(wait, r.cfg.MaxWait)
	// ±20% jitter
	jitter := time.Duration(float64(wait) * 0.2 * (2*rand.Float64() - 1))
	return max(wait+jitter, 0)
}
