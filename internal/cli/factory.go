package cli

import (
	"database/sql"
	"log"
	"os"
	"strings"

	"github.com/denismitr/shale"
	"github.com/denismitr/shale/migration"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/xo/dburl"
)

const yamlScheme = "yaml://"

var ErrUnknownDriver = errors.New("unknown database driver")

type (
	runnerFactory    func(cfg Config, u *dburl.URL) (shale.OptionFunc, func() error, error)
	runnerFactoryMap map[string]runnerFactory
)

func defaultFactories() runnerFactoryMap {
	return runnerFactoryMap{
		"mysql":    createMySQL,
		"postgres": createPostgres,
		"sqlite3":  createSqlite,
	}
}

func createMySQL(cfg Config, u *dburl.URL) (shale.OptionFunc, func() error, error) {
	if _, err := mysql.ParseDSN(u.DSN); err != nil {
		return nil, nil, errors.Wrap(err, "invalid mysql connection string")
	}

	db, err := sql.Open("mysql", u.DSN)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not open mysql database")
	}

	return shale.UseMySQL(db, shale.WithMySQLRepository(cfg.repository())), db.Close, nil
}

func createPostgres(cfg Config, u *dburl.URL) (shale.OptionFunc, func() error, error) {
	db, err := sql.Open("pgx", u.DSN)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not open postgres database")
	}

	return shale.UsePostgres(db, shale.WithPostgresRepository(cfg.repository())), db.Close, nil
}

func createSqlite(cfg Config, u *dburl.URL) (shale.OptionFunc, func() error, error) {
	db, err := sql.Open("sqlite3", u.DSN)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not open sqlite database")
	}

	return shale.UseSqlite(db, shale.WithSqliteRepository(cfg.repository())), db.Close, nil
}

// createRunner picks the repository option from the database URL and wires the
// folder source, the console logger and the optional redis lock.
func createRunner(cfg Config, factories runnerFactoryMap) (*shale.Runner, shale.CloserFunc, error) {
	var (
		opts    []shale.OptionFunc
		closers []func() error
	)

	if strings.HasPrefix(cfg.DatabaseURL, yamlScheme) {
		opts = append(opts, shale.UseYAMLStore(cfg.repository(), strings.TrimPrefix(cfg.DatabaseURL, yamlScheme)))
	} else {
		u, err := dburl.Parse(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "could not parse database url")
		}

		factory, ok := factories[u.Driver]
		if !ok {
			return nil, nil, errors.Wrapf(ErrUnknownDriver, "[%s]", u.Driver)
		}

		opt, closer, err := factory(cfg, u)
		if err != nil {
			return nil, nil, err
		}

		opts = append(opts, opt)
		closers = append(closers, closer)
	}

	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			closeAll(closers)
			return nil, nil, errors.Wrap(err, "invalid redis url")
		}

		client := redis.NewClient(redisOpts)
		closers = append(closers, client.Close)
		opts = append(opts, shale.UseRedisLock(client, cfg.LockKey, 0, 0))
	}

	opts = append(
		opts,
		shale.UseLocalFolder(cfg.MigrationsFolder, migration.WithRepository(cfg.repository())),
		shale.UseColorLogger(log.New(os.Stdout, "", 0), cfg.PrintSQL, cfg.Debug),
	)

	r, closer, err := shale.NewRunner(opts...)
	if err != nil {
		closeAll(closers)
		return nil, nil, err
	}

	return r, func() error {
		err := closer()
		if closeErr := closeAll(closers); err == nil {
			err = closeErr
		}

		return err
	}, nil
}

func closeAll(closers []func() error) error {
	var result error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil && result == nil {
			result = err
		}
	}

	return result
}
