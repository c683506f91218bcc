package shale

import (
	"context"

	"github.com/denismitr/shale/internal/database"
	"github.com/denismitr/shale/internal/lock"
	"github.com/denismitr/shale/migration"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type (
	// openFunc builds the adapter and the batch locker of a repository on top of its pinned connection.
	openFunc func(conn *sqlx.Conn) (migration.Adapter, lock.Locker)

	// repository is a named migration target. SQL repositories connect lazily,
	// the first batch that needs them opens the connection.
	repository struct {
		name      string
		adapter   migration.Adapter
		locker    lock.Locker
		connector database.Connector
		open      openFunc
	}
)

func newStaticRepository(name string, a migration.Adapter) *repository {
	return &repository{name: name, adapter: a, locker: lock.NullLocker{}}
}

func newSQLRepository(name string, connector database.Connector, open openFunc) *repository {
	return &repository{name: name, connector: connector, open: open}
}

func (r *repository) prepare(ctx context.Context) (migration.Adapter, error) {
	if r.adapter != nil {
		return r.adapter, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.connector.Timeout())
	defer cancel()

	conn, err := r.connector.Connect(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "could not connect to repository [%s]", r.name)
	}

	r.adapter, r.locker = r.open(conn)
	if r.locker == nil {
		r.locker = lock.NullLocker{}
	}

	return r.adapter, nil
}

func (r *repository) close() error {
	if r.connector == nil {
		return nil
	}

	r.adapter = nil
	r.locker = nil

	return r.connector.Close()
}
