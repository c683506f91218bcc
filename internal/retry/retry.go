package retry

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var ErrTooManyAttempts = errors.New("too many retry attempts")

// Callable returns a retry error (see Error) for failures worth another attempt.
// Any other error stops the loop immediately.
type Callable[T any] func(attempt int) (T, error)

type retryError struct {
	error
	attempt int
}

func (e *retryError) Unwrap() error {
	return e.error
}

func Error(err error, attempt int) error {
	if err == nil {
		return nil
	}
	return &retryError{error: err, attempt: attempt}
}

type Attempts interface {
	Next() (time.Duration, bool)
	Current() int
}

func Start[T any](ctx context.Context, a Attempts, cb Callable[T]) (T, error) {
	var zero T

	for {
		result, err := cb(a.Current())
		if err == nil {
			return result, nil
		}

		var re *retryError
		if !errors.As(err, &re) {
			return zero, errors.Wrapf(err, "attempt %d failed", a.Current())
		}

		next, stop := a.Next()
		if stop {
			return zero, errors.Wrapf(ErrTooManyAttempts, "last error: %v", re.error)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(next):
		}
	}
}

// Incremental waits one step longer after every failed attempt.
func Incremental[T any](ctx context.Context, step time.Duration, maxAttempts int, cb Callable[T]) (T, error) {
	return Start(ctx, IncrementalAttempts(step, maxAttempts), cb)
}

type incrementalAttempts struct {
	sync.RWMutex
	prev time.Duration
	step time.Duration
	max  int
	curr int
}

func (a *incrementalAttempts) Next() (time.Duration, bool) {
	a.Lock()
	defer a.Unlock()

	a.curr++
	if a.curr > a.max {
		return 0, true
	}

	next := a.prev + a.step
	a.prev = next

	return next, false
}

func (a *incrementalAttempts) Current() int {
	a.RLock()
	defer a.RUnlock()
	return a.curr
}

func IncrementalAttempts(step time.Duration, max int) Attempts {
	return &incrementalAttempts{
		step: step,
		max:  max,
		curr: 1,
	}
}
