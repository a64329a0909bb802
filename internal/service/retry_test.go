package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/dms-export/internal/errors"
)

func TestRetryPolicyDo(t *testing.T) {
	ctx := context.Background()
	unauthorized := apperrors.Unauthorized("expired")

	t.Run("succeeds on first attempt without recovery", func(t *testing.T) {
		recovered := 0
		policy := RetryPolicy{
			MaxAttempts: 3,
			Retryable:   apperrors.IsUnauthorized,
			Recover:     func(context.Context) error { recovered++; return nil },
		}

		attempts := 0
		err := policy.Do(ctx, func(context.Context) error {
			attempts++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, attempts)
		assert.Zero(t, recovered)
	})

	t.Run("recovers between retryable attempts", func(t *testing.T) {
		recovered := 0
		policy := RetryPolicy{
			MaxAttempts: 3,
			Retryable:   apperrors.IsUnauthorized,
			Recover:     func(context.Context) error { recovered++; return nil },
		}

		attempts := 0
		err := policy.Do(ctx, func(context.Context) error {
			attempts++
			if attempts < 3 {
				return unauthorized
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
		assert.Equal(t, 2, recovered)
	})

	t.Run("surfaces last error after exhausting attempts", func(t *testing.T) {
		recovered := 0
		policy := RetryPolicy{
			MaxAttempts: 3,
			Retryable:   apperrors.IsUnauthorized,
			Recover:     func(context.Context) error { recovered++; return nil },
		}

		attempts := 0
		err := policy.Do(ctx, func(context.Context) error {
			attempts++
			return unauthorized
		})
		assert.Equal(t, 3, attempts)
		// Recovery runs between attempts, never after the last one.
		assert.Equal(t, 2, recovered)
		assert.True(t, apperrors.IsUnauthorized(err))
	})

	t.Run("non-retryable error returns immediately", func(t *testing.T) {
		policy := RetryPolicy{MaxAttempts: 3, Retryable: apperrors.IsUnauthorized}

		attempts := 0
		boom := errors.New("boom")
		err := policy.Do(ctx, func(context.Context) error {
			attempts++
			return boom
		})
		assert.Equal(t, 1, attempts)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("failed recovery aborts the retry loop", func(t *testing.T) {
		refreshErr := errors.New("refresh failed")
		policy := RetryPolicy{
			MaxAttempts: 3,
			Retryable:   apperrors.IsUnauthorized,
			Recover:     func(context.Context) error { return refreshErr },
		}

		attempts := 0
		err := policy.Do(ctx, func(context.Context) error {
			attempts++
			return unauthorized
		})
		assert.Equal(t, 1, attempts)
		assert.ErrorIs(t, err, refreshErr)
	})

	t.Run("zero attempts still runs once", func(t *testing.T) {
		attempts := 0
		err := RetryPolicy{}.Do(ctx, func(context.Context) error {
			attempts++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})
}
