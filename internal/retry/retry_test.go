package retry

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncremental(t *testing.T) {
	t.Run("single successful try", func(t *testing.T) {
		runs := 0

		result, err := Incremental(context.Background(), 2*time.Millisecond, 5, func(attempt int) (string, error) {
			runs++
			return "conn", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "conn", result)
		assert.Equal(t, 1, runs)
	})

	t.Run("success from the third time", func(t *testing.T) {
		runs := 0

		result, err := Incremental(context.Background(), 2*time.Millisecond, 4, func(attempt int) (int, error) {
			runs++
			if attempt < 3 {
				return 0, Error(errors.New("attempt failed"), attempt)
			}

			return attempt, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, result)
		assert.Equal(t, 3, runs)
	})

	t.Run("fails when attempt limit is exhausted", func(t *testing.T) {
		runs := 0

		_, err := Incremental(context.Background(), 2*time.Millisecond, 4, func(attempt int) (struct{}, error) {
			runs++
			return struct{}{}, Error(errors.New("attempt failed"), attempt)
		})

		assert.True(t, errors.Is(err, ErrTooManyAttempts))
		assert.Equal(t, 4, runs)
	})

	t.Run("fails at once on an unrecoverable error", func(t *testing.T) {
		runs := 0
		boom := errors.New("some error")

		_, err := Incremental(context.Background(), 2*time.Millisecond, 4, func(attempt int) (bool, error) {
			runs++
			return false, boom
		})

		assert.True(t, errors.Is(err, boom))
		assert.Equal(t, 1, runs)
	})

	t.Run("stops when the context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := Incremental(ctx, time.Second, 10, func(attempt int) (bool, error) {
			return false, Error(errors.New("not yet"), attempt)
		})

		assert.True(t, errors.Is(err, context.Canceled))
	})
}
