package checkin

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunFunc performs one attempt.
type RunFunc func(ctx context.Context) *Report

// Retry calls run up to attempts times while the outcome is retryable,
// waiting attempt*step between attempts. Each attempt is independent. The
// last report is returned with its Attempt number set.
func Retry(ctx context.Context, attempts int, step time.Duration, run RunFunc, log *zap.Logger) *Report {
	if attempts < 1 {
		attempts = 1
	}
	if log == nil {
		log = zap.NewNop()
	}

	var rep *Report
	for attempt := 1; attempt <= attempts; attempt++ {
		rep = run(ctx)
		rep.Attempt = attempt
		if !rep.Outcome.Retryable() || attempt == attempts {
			break
		}

		wait := time.Duration(attempt) * step
		log.Warn("attempt inconclusive, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Stringer("outcome", rep.Outcome),
			zap.String("reason", rep.Reason),
			zap.Duration("backoff", wait))
		if err := sleep(ctx, wait); err != nil {
			log.Warn("retry abandoned", zap.Error(err))
			break
		}
	}
	return rep
}

// RunWithRetry runs the engine under the configured retry policy.
func (e *Engine) RunWithRetry(ctx context.Context) *Report {
	return Retry(ctx, e.cfg.Retry.MaxAttempts, e.cfg.Retry.GetBackoff(), e.Run, e.log)
}
