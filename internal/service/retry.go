package service

import "context"

// RetryPolicy wraps a remote call with classify-recover-retry semantics: when
// an attempt fails with a retryable error, the recovery action runs before the
// next attempt. Any non-retryable error, a failed recovery, or exhaustion of
// MaxAttempts propagates immediately.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Retryable classifies whether an error is worth another attempt.
	Retryable func(error) bool
	// Recover runs between a retryable failure and the next attempt.
	Recover func(ctx context.Context) error
}

// Do runs op under the policy and returns the last error when all attempts
// fail. The operation must read any refreshed state (such as the current
// cached token) itself on each attempt.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) || attempt == attempts {
			return err
		}
		if p.Recover != nil {
			if rerr := p.Recover(ctx); rerr != nil {
				return rerr
			}
		}
	}
	return err
}
