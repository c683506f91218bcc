package shale

import (
	"database/sql"
	"time"

	"github.com/denismitr/shale/internal/database"
	"github.com/denismitr/shale/internal/lock"
	"github.com/denismitr/shale/migration"
	"github.com/denismitr/shale/schema/mysql"
	"github.com/denismitr/shale/schema/postgres"
	"github.com/denismitr/shale/schema/sqlite"
	"github.com/jmoiron/sqlx"
)

type (
	CommonOptions struct {
		Repository string
		NoLock     bool
	}

	MySQLOptions struct {
		CommonOptions
		LockKey string
		LockFor int
		Dialect []mysql.Option
	}

	PostgresOptions struct {
		CommonOptions
		LockKey int64
		LockFor int
	}

	SqliteOptions struct {
		CommonOptions
	}

	MySQLOptionFunc    func(*MySQLOptions, *database.ConnectOptions)
	PostgresOptionFunc func(*PostgresOptions, *database.ConnectOptions)
	SqliteOptionFunc   func(*SqliteOptions, *database.ConnectOptions)
)

// UseMySQL registers a MySQL database. The connection is opened on the first batch.
func UseMySQL(db *sql.DB, options ...MySQLOptionFunc) OptionFunc {
	return func(r *Runner) error {
		mysqlOpts := &MySQLOptions{
			CommonOptions: CommonOptions{Repository: migration.DefaultRepository},
			LockKey:       lock.MySQLDefaultLockKey,
			LockFor:       lock.MySQLDefaultLockSeconds,
		}

		connectOpts := database.NewDefaultConnectOptions()

		for _, oFunc := range options {
			oFunc(mysqlOpts, connectOpts)
		}

		dialect := mysql.New(mysqlOpts.Dialect...)
		connector := database.NewRetryingConnector(sqlx.NewDb(db, "mysql"), connectOpts)

		return r.addRepository(newSQLRepository(mysqlOpts.Repository, connector, func(conn *sqlx.Conn) (migration.Adapter, lock.Locker) {
			a := database.NewSQLAdapter(conn, dialect, r.lg)
			if mysqlOpts.NoLock {
				return a, lock.NullLocker{}
			}

			return a, lock.NewMySQLLocker(a.Conn(), mysqlOpts.LockKey, mysqlOpts.LockFor)
		}))
	}
}

// UsePostgres registers a Postgres database opened with the pgx stdlib driver.
func UsePostgres(db *sql.DB, options ...PostgresOptionFunc) OptionFunc {
	return func(r *Runner) error {
		pgOpts := &PostgresOptions{
			CommonOptions: CommonOptions{Repository: migration.DefaultRepository},
			LockKey:       lock.PostgresDefaultLockKey,
			LockFor:       lock.PostgresDefaultLockSeconds,
		}

		connectOpts := database.NewDefaultConnectOptions()

		for _, oFunc := range options {
			oFunc(pgOpts, connectOpts)
		}

		dialect := postgres.New()
		connector := database.NewRetryingConnector(sqlx.NewDb(db, "pgx"), connectOpts)

		return r.addRepository(newSQLRepository(pgOpts.Repository, connector, func(conn *sqlx.Conn) (migration.Adapter, lock.Locker) {
			a := database.NewSQLAdapter(conn, dialect, r.lg)
			if pgOpts.NoLock {
				return a, lock.NullLocker{}
			}

			return a, lock.NewPostgresLocker(a.Conn(), pgOpts.LockKey, pgOpts.LockFor)
		}))
	}
}

func UseSqlite(db *sql.DB, options ...SqliteOptionFunc) OptionFunc {
	return func(r *Runner) error {
		sqliteOpts := &SqliteOptions{
			CommonOptions: CommonOptions{Repository: migration.DefaultRepository},
		}

		connectOpts := database.NewDefaultConnectOptions()

		for _, oFunc := range options {
			oFunc(sqliteOpts, connectOpts)
		}

		dialect := sqlite.New()
		connector := database.NewRetryingConnector(sqlx.NewDb(db, "sqlite3"), connectOpts)

		return r.addRepository(newSQLRepository(sqliteOpts.Repository, connector, func(conn *sqlx.Conn) (migration.Adapter, lock.Locker) {
			return database.NewSQLAdapter(conn, dialect, r.lg), lock.NullLocker{}
		}))
	}
}

func WithMySQLRepository(name string) MySQLOptionFunc {
	return func(mysqlOpts *MySQLOptions, connectOpts *database.ConnectOptions) {
		mysqlOpts.Repository = name
	}
}

func WithMySQLNoLock() MySQLOptionFunc {
	return func(mysqlOpts *MySQLOptions, connectOpts *database.ConnectOptions) {
		mysqlOpts.NoLock = true
	}
}

func WithMySQLLockKey(key string) MySQLOptionFunc {
	return func(mysqlOpts *MySQLOptions, connectOpts *database.ConnectOptions) {
		mysqlOpts.LockKey = key
	}
}

func WithMySQLLockFor(lockFor int) MySQLOptionFunc {
	return func(mysqlOpts *MySQLOptions, connectOpts *database.ConnectOptions) {
		mysqlOpts.LockFor = lockFor
	}
}

func WithMySQLStorageEngine(engine string) MySQLOptionFunc {
	return func(mysqlOpts *MySQLOptions, connectOpts *database.ConnectOptions) {
		mysqlOpts.Dialect = append(mysqlOpts.Dialect, mysql.WithStorageEngine(engine))
	}
}

// WithMySQLCharset sets the default character set of created tables. An empty
// collation leaves the COLLATE clause out.
func WithMySQLCharset(charset, collation string) MySQLOptionFunc {
	return func(mysqlOpts *MySQLOptions, connectOpts *database.ConnectOptions) {
		mysqlOpts.Dialect = append(mysqlOpts.Dialect, mysql.WithCharset(charset))
		if collation != "" {
			mysqlOpts.Dialect = append(mysqlOpts.Dialect, mysql.WithCollation(collation))
		}
	}
}

func WithMySQLConnectionTimeout(timeout time.Duration) MySQLOptionFunc {
	return func(mysqlOpts *MySQLOptions, connectOpts *database.ConnectOptions) {
		connectOpts.MaxTimeout = timeout
	}
}

func WithMySQLMaxConnectionAttempts(attempts int) MySQLOptionFunc {
	return func(mysqlOpts *MySQLOptions, connectOpts *database.ConnectOptions) {
		connectOpts.MaxAttempts = attempts
	}
}

func WithPostgresRepository(name string) PostgresOptionFunc {
	return func(pgOpts *PostgresOptions, connectOpts *database.ConnectOptions) {
		pgOpts.Repository = name
	}
}

func WithPostgresNoLock() PostgresOptionFunc {
	return func(pgOpts *PostgresOptions, connectOpts *database.ConnectOptions) {
		pgOpts.NoLock = true
	}
}

func WithPostgresLockKey(key int64) PostgresOptionFunc {
	return func(pgOpts *PostgresOptions, connectOpts *database.ConnectOptions) {
		pgOpts.LockKey = key
	}
}

func WithPostgresLockFor(lockFor int) PostgresOptionFunc {
	return func(pgOpts *PostgresOptions, connectOpts *database.ConnectOptions) {
		pgOpts.LockFor = lockFor
	}
}

func WithPostgresConnectionTimeout(timeout time.Duration) PostgresOptionFunc {
	return func(pgOpts *PostgresOptions, connectOpts *database.ConnectOptions) {
		connectOpts.MaxTimeout = timeout
	}
}

func WithPostgresMaxConnectionAttempts(attempts int) PostgresOptionFunc {
	return func(pgOpts *PostgresOptions, connectOpts *database.ConnectOptions) {
		connectOpts.MaxAttempts = attempts
	}
}

func WithSqliteRepository(name string) SqliteOptionFunc {
	return func(sqliteOpts *SqliteOptions, connectOpts *database.ConnectOptions) {
		sqliteOpts.Repository = name
	}
}

func WithSqliteMaxConnectionAttempts(attempts int) SqliteOptionFunc {
	return func(sqliteOpts *SqliteOptions, connectOpts *database.ConnectOptions) {
		connectOpts.MaxAttempts = attempts
	}
}

func WithSqliteConnectionTimeout(timeout time.Duration) SqliteOptionFunc {
	return func(sqliteOpts *SqliteOptions, connectOpts *database.ConnectOptions) {
		connectOpts.MaxTimeout = timeout
	}
}
