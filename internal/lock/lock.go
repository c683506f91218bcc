// Package lock provides the exclusive locks a runner holds for the duration of a batch.
package lock

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

var (
	ErrLockTimeout = errors.New("could not obtain the lock in time")
	ErrNotLocked   = errors.New("lock is not held")
)

type Locker interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}

// Session is the connection a database lock lives on. Session level locks are
// released when the connection closes, so it must be the connection the batch runs on.
type Session interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type NullLocker struct{}

var _ Locker = NullLocker{}

func (NullLocker) Lock(context.Context) error {
	return nil
}

func (NullLocker) Unlock(context.Context) error {
	return nil
}
