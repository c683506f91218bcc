package lock

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

const (
	MySQLDefaultLockKey     = "shale_migrations"
	MySQLDefaultLockSeconds = 3
)

// MySQLLocker holds a named lock with GET_LOCK. lockFor is how many seconds
// GET_LOCK waits for another session to release it.
type MySQLLocker struct {
	session Session
	lockKey string
	lockFor int
}

var _ Locker = (*MySQLLocker)(nil)

func NewMySQLLocker(session Session, lockKey string, lockFor int) *MySQLLocker {
	return &MySQLLocker{session: session, lockKey: lockKey, lockFor: lockFor}
}

func (l *MySQLLocker) Lock(ctx context.Context) error {
	var result sql.NullInt64
	if err := l.session.GetContext(ctx, &result, "SELECT GET_LOCK(?, ?)", l.lockKey, l.lockFor); err != nil {
		return errors.Wrapf(err, "could not obtain [%s] exclusive MySQL DB lock for [%d] seconds", l.lockKey, l.lockFor)
	}

	if !result.Valid || result.Int64 != 1 {
		return errors.Wrapf(ErrLockTimeout, "MySQL lock [%s] after [%d] seconds", l.lockKey, l.lockFor)
	}

	return nil
}

func (l *MySQLLocker) Unlock(ctx context.Context) error {
	var result sql.NullInt64
	if err := l.session.GetContext(ctx, &result, "SELECT RELEASE_LOCK(?)", l.lockKey); err != nil {
		return errors.Wrapf(err, "could not release [%s] exclusive MySQL DB lock", l.lockKey)
	}

	if !result.Valid || result.Int64 != 1 {
		return errors.Wrapf(ErrNotLocked, "MySQL lock [%s]", l.lockKey)
	}

	return nil
}
