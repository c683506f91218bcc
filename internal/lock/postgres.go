package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

const (
	PostgresDefaultLockKey     = 99887766
	PostgresDefaultLockSeconds = 3

	postgresPollInterval = 100 * time.Millisecond
)

// PostgresLocker holds a session level advisory lock. It polls pg_try_advisory_lock
// so that waiting for another session gives up after lockFor seconds.
type PostgresLocker struct {
	session Session
	lockKey int64
	lockFor int
}

var _ Locker = (*PostgresLocker)(nil)

func NewPostgresLocker(session Session, lockKey int64, lockFor int) *PostgresLocker {
	return &PostgresLocker{session: session, lockKey: lockKey, lockFor: lockFor}
}

func (l *PostgresLocker) Lock(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(l.lockFor)*time.Second)
	defer cancel()

	for {
		var acquired bool
		if err := l.session.GetContext(ctx, &acquired, fmt.Sprintf("SELECT pg_try_advisory_lock(%d)", l.lockKey)); err != nil {
			if ctx.Err() != nil {
				return errors.Wrapf(ErrLockTimeout, "postgres advisory lock [%d] after [%d] seconds", l.lockKey, l.lockFor)
			}
			return errors.Wrapf(err, "could not obtain [%d] postgres advisory lock", l.lockKey)
		}

		if acquired {
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Wrapf(ErrLockTimeout, "postgres advisory lock [%d] after [%d] seconds", l.lockKey, l.lockFor)
		case <-time.After(postgresPollInterval):
		}
	}
}

func (l *PostgresLocker) Unlock(ctx context.Context) error {
	var released bool
	if err := l.session.GetContext(ctx, &released, fmt.Sprintf("SELECT pg_advisory_unlock(%d)", l.lockKey)); err != nil {
		return errors.Wrapf(err, "could not release [%d] postgres advisory lock", l.lockKey)
	}

	if !released {
		return errors.Wrapf(ErrNotLocked, "postgres advisory lock [%d]", l.lockKey)
	}

	return nil
}
