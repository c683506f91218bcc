package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	RedisDefaultLockKey = "shale:migrations:lock"
	RedisDefaultTTL     = 5 * time.Minute
	RedisDefaultWait    = 10 * time.Second

	redisPollInterval = 50 * time.Millisecond
)

// deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker coordinates runners on different hosts with SET NX PX.
// The ttl bounds how long a crashed runner can keep others out.
type RedisLocker struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
	wait   time.Duration
	token  string
}

var _ Locker = (*RedisLocker)(nil)

func NewRedisLocker(client redis.UniversalClient, key string, ttl, wait time.Duration) *RedisLocker {
	if key == "" {
		key = RedisDefaultLockKey
	}

	if ttl <= 0 {
		ttl = RedisDefaultTTL
	}

	if wait <= 0 {
		wait = RedisDefaultWait
	}

	return &RedisLocker{client: client, key: key, ttl: ttl, wait: wait}
}

func (l *RedisLocker) Lock(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return errors.Wrapf(ErrLockTimeout, "redis lock [%s] after %s", l.key, l.wait)
			}
			return errors.Wrapf(err, "could not obtain redis lock [%s]", l.key)
		}

		if ok {
			l.token = token
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Wrapf(ErrLockTimeout, "redis lock [%s] after %s", l.key, l.wait)
		case <-time.After(redisPollInterval):
		}
	}
}

func (l *RedisLocker) Unlock(ctx context.Context) error {
	if l.token == "" {
		return errors.Wrapf(ErrNotLocked, "redis lock [%s]", l.key)
	}

	deleted, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int64()
	if err != nil {
		return errors.Wrapf(err, "could not release redis lock [%s]", l.key)
	}

	l.token = ""

	if deleted == 0 {
		return errors.Wrapf(ErrNotLocked, "redis lock [%s] expired or was taken over", l.key)
	}

	return nil
}
