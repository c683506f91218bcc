package shale

import (
	"time"

	"github.com/denismitr/shale/internal/database"
	"github.com/denismitr/shale/internal/lock"
	"github.com/denismitr/shale/internal/metrics"
	"github.com/denismitr/shale/internal/source"
	"github.com/denismitr/shale/logger"
	"github.com/denismitr/shale/migration"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

type OptionFunc func(*Runner) error

type localFolder struct {
	dir  string
	opts []migration.Option
}

// UseAdapter registers a ready made adapter as repository name. Batches run on
// it without a lock.
func UseAdapter(name string, a migration.Adapter) OptionFunc {
	return func(r *Runner) error {
		if a == nil {
			return errors.Wrapf(ErrAdapterNotInitialized, "repository [%s]", name)
		}

		return r.addRepository(newStaticRepository(name, a))
	}
}

// UseYAMLStore registers a flat file store kept in dir as repository name.
func UseYAMLStore(name, dir string) OptionFunc {
	return func(r *Runner) error {
		store, err := database.NewYAMLStore(dir)
		if err != nil {
			return err
		}

		return r.addRepository(newStaticRepository(name, store))
	}
}

func WithMigrations(migrations ...*migration.Migration) OptionFunc {
	return func(r *Runner) error {
		r.selectors = append(r.selectors, source.NewInMemorySource(migrations...))
		return nil
	}
}

// UseLocalFolder reads SQL migration files from dir, opts apply to each of them.
func UseLocalFolder(dir string, opts ...migration.Option) OptionFunc {
	return func(r *Runner) error {
		r.folders = append(r.folders, localFolder{dir: dir, opts: opts})
		return nil
	}
}

func UseLogger(p logger.Printer, printSQL, printDebug bool) OptionFunc {
	return func(r *Runner) error {
		r.lg = logger.NewBWLogger(p, printSQL, printDebug)
		return nil
	}
}

func UseColorLogger(p logger.Printer, printSQL, printDebug bool) OptionFunc {
	return func(r *Runner) error {
		r.lg = logger.NewColorLogger(p, printSQL, printDebug)
		return nil
	}
}

// UseRedisLock adds a lock held in redis around every batch, on top of the
// repository locks. Zero values fall back to the lock defaults.
func UseRedisLock(client redis.UniversalClient, key string, ttl, wait time.Duration) OptionFunc {
	return func(r *Runner) error {
		if client == nil {
			return errors.New("redis client is required for the redis lock")
		}

		r.lockers = append(r.lockers, lock.NewRedisLocker(client, key, ttl, wait))
		return nil
	}
}

// UseMetrics counts and times performed migrations. A nil registerer gets a private registry.
func UseMetrics(namespace string, reg prometheus.Registerer) OptionFunc {
	return func(r *Runner) error {
		r.metrics = metrics.NewCollector(namespace, reg)
		return nil
	}
}
