package lock

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	query string
	args  []interface{}
}

// fakeSession answers every GetContext with the next queued result.
type fakeSession struct {
	calls   []call
	results []interface{}
	err     error
}

func (s *fakeSession) ExecContext(_ context.Context, query string, args ...interface{}) (sql.Result, error) {
	s.calls = append(s.calls, call{query: query, args: args})
	return nil, s.err
}

func (s *fakeSession) GetContext(_ context.Context, dest interface{}, query string, args ...interface{}) error {
	s.calls = append(s.calls, call{query: query, args: args})
	if s.err != nil {
		return s.err
	}

	next := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}

	switch d := dest.(type) {
	case *sql.NullInt64:
		*d = next.(sql.NullInt64)
	case *bool:
		*d = next.(bool)
	}

	return nil
}

func TestMySQLLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("lock and unlock", func(t *testing.T) {
		s := &fakeSession{results: []interface{}{sql.NullInt64{Int64: 1, Valid: true}}}
		l := NewMySQLLocker(s, "foo", 5)

		require.NoError(t, l.Lock(ctx))
		require.NoError(t, l.Unlock(ctx))

		assert.Equal(t, []call{
			{query: "SELECT GET_LOCK(?, ?)", args: []interface{}{"foo", 5}},
			{query: "SELECT RELEASE_LOCK(?)", args: []interface{}{"foo"}},
		}, s.calls)
	})

	t.Run("timeout", func(t *testing.T) {
		s := &fakeSession{results: []interface{}{sql.NullInt64{Int64: 0, Valid: true}}}
		err := NewMySQLLocker(s, "foo", 1).Lock(ctx)
		assert.True(t, errors.Is(err, ErrLockTimeout))
	})

	t.Run("unlock of a lock not held", func(t *testing.T) {
		s := &fakeSession{results: []interface{}{sql.NullInt64{}}}
		err := NewMySQLLocker(s, "foo", 1).Unlock(ctx)
		assert.True(t, errors.Is(err, ErrNotLocked))
	})

	t.Run("driver failure", func(t *testing.T) {
		boom := errors.New("bad connection")
		err := NewMySQLLocker(&fakeSession{err: boom}, "foo", 1).Lock(ctx)
		assert.True(t, errors.Is(err, boom))
	})
}

func TestPostgresLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("acquires after the other session lets go", func(t *testing.T) {
		s := &fakeSession{results: []interface{}{false, true}}
		l := NewPostgresLocker(s, 42, 2)

		require.NoError(t, l.Lock(ctx))
		require.Len(t, s.calls, 2)
		assert.Equal(t, "SELECT pg_try_advisory_lock(42)", s.calls[0].query)

		require.NoError(t, l.Unlock(ctx))
		assert.Equal(t, "SELECT pg_advisory_unlock(42)", s.calls[2].query)
	})

	t.Run("gives up after lockFor", func(t *testing.T) {
		s := &fakeSession{results: []interface{}{false}}
		err := NewPostgresLocker(s, 42, 0).Lock(ctx)
		assert.True(t, errors.Is(err, ErrLockTimeout))
	})

	t.Run("unlock of a lock not held", func(t *testing.T) {
		s := &fakeSession{results: []interface{}{false}}
		err := NewPostgresLocker(s, 42, 1).Unlock(ctx)
		assert.True(t, errors.Is(err, ErrNotLocked))
	})
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	first := NewRedisLocker(client, "migrations", time.Minute, 200*time.Millisecond)
	second := NewRedisLocker(client, "migrations", time.Minute, 200*time.Millisecond)

	require.NoError(t, first.Lock(ctx))
	assert.True(t, mr.Exists("migrations"))

	err := second.Lock(ctx)
	assert.True(t, errors.Is(err, ErrLockTimeout))

	require.NoError(t, first.Unlock(ctx))
	assert.False(t, mr.Exists("migrations"))

	require.NoError(t, second.Lock(ctx))

	t.Run("unlock does not release a lock taken over by someone else", func(t *testing.T) {
		mr.FastForward(2 * time.Minute)
		require.False(t, mr.Exists("migrations"))

		third := NewRedisLocker(client, "migrations", time.Minute, time.Second)
		require.NoError(t, third.Lock(ctx))

		err := second.Unlock(ctx)
		assert.True(t, errors.Is(err, ErrNotLocked))
		assert.True(t, mr.Exists("migrations"))

		require.NoError(t, third.Unlock(ctx))
	})

	t.Run("unlock without lock", func(t *testing.T) {
		err := NewRedisLocker(client, "", 0, 0).Unlock(ctx)
		assert.True(t, errors.Is(err, ErrNotLocked))
	})
}

func TestNullLocker(t *testing.T) {
	var l Locker = NullLocker{}
	assert.NoError(t, l.Lock(context.Background()))
	assert.NoError(t, l.Unlock(context.Background()))
}
