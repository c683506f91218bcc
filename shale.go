// Package shale applies and reverts ordered schema migrations and records
// which of them have been applied in a ledger table of every repository.
package shale

import (
	"context"
	"sort"
	"time"

	"github.com/denismitr/shale/internal/lock"
	"github.com/denismitr/shale/internal/metrics"
	"github.com/denismitr/shale/internal/source"
	"github.com/denismitr/shale/logger"
	"github.com/denismitr/shale/migration"
	"github.com/pkg/errors"
)

var (
	ErrAdapterNotInitialized = errors.New("migration adapter has not been initialized")
	ErrDuplicateMigration    = errors.New("duplicate migration name")
)

type CloserFunc func() error

type (
	Runner struct {
		lg           logger.Logger
		repositories map[string]*repository
		order        []string
		selectors    []source.Selector
		folders      []localFolder
		lockers      []lock.Locker
		metrics      *metrics.Collector
		closerFns    []CloserFunc
	}

	MigrationStatus struct {
		Position   int
		Name       string
		Repository string
		Applied    bool
	}
)

// NewRunner creates a runner from option callbacks. At least one repository
// option is required. When no migrations are given, ./migrations is read if it exists.
func NewRunner(opts ...OptionFunc) (*Runner, CloserFunc, error) {
	r := &Runner{
		lg:           logger.NullLogger{},
		repositories: make(map[string]*repository),
	}

	for _, oFunc := range opts {
		if err := oFunc(r); err != nil {
			_ = r.close()
			return nil, nil, err
		}
	}

	if len(r.repositories) == 0 {
		_ = r.close()
		return nil, nil, ErrAdapterNotInitialized
	}

	for _, f := range r.folders {
		r.selectors = append(r.selectors, source.NewLocalFolder(f.dir, r.lg, f.opts...))
	}

	if len(r.selectors) == 0 {
		if folder := source.NewLocalFolder(source.DefaultMigrationsFolder, r.lg); folder.IsValid() {
			r.selectors = append(r.selectors, folder)
		}
	}

	if _, err := r.collect(context.Background()); err != nil {
		_ = r.close()
		return nil, nil, err
	}

	return r, r.close, nil
}

func (r *Runner) addRepository(repo *repository) error {
	if _, ok := r.repositories[repo.name]; ok {
		return errors.Errorf("repository [%s] is already configured", repo.name)
	}

	r.repositories[repo.name] = repo
	r.order = append(r.order, repo.name)

	if repo.connector != nil {
		r.closerFns = append(r.closerFns, repo.close)
	}

	return nil
}

// collect gathers the migrations of every source.
func (r *Runner) collect(ctx context.Context) (migration.Migrations, error) {
	var result migration.Migrations
	for _, s := range r.selectors {
		ms, err := s.Select(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "could not select migrations")
		}
		result = append(result, ms...)
	}

	seen := make(map[string]bool, len(result))
	for _, m := range result {
		key := m.Repository() + "/" + m.Name()
		if seen[key] {
			return nil, errors.Wrapf(ErrDuplicateMigration, "[%s] in repository [%s]", m.Name(), m.Repository())
		}
		seen[key] = true

		if _, ok := r.repositories[m.Repository()]; !ok {
			return nil, errors.Wrapf(ErrAdapterNotInitialized, "repository [%s] of migration %s", m.Repository(), m)
		}
	}

	sort.Sort(result)

	return result, nil
}

func (r *Runner) target(ctx context.Context, name string) (migration.Target, error) {
	repo, ok := r.repositories[name]
	if !ok {
		return migration.Target{}, errors.Wrapf(ErrAdapterNotInitialized, "repository [%s]", name)
	}

	a, err := repo.prepare(ctx)
	if err != nil {
		return migration.Target{}, err
	}

	return migration.Target{Adapter: a, Logger: r.lg}, nil
}

// Up applies pending migrations in ascending order and returns the ones it performed.
// It stops at the first failure, returning what was performed before it.
func (r *Runner) Up(ctx context.Context, cfs ...ActionConfigurator) (migration.Migrations, error) {
	act := newAction(cfs)

	var performed migration.Migrations
	err := r.execUnderLock(ctx, func(ms migration.Migrations) error {
		for _, m := range act.forUp(ms) {
			if act.exhausted(len(performed)) {
				break
			}

			t, err := r.target(ctx, m.Repository())
			if err != nil {
				return err
			}

			start := time.Now()
			res, err := m.PerformUp(ctx, t)
			r.metrics.Observe(metrics.DirectionUp, m.Repository(), res, time.Since(start), err)
			if err != nil {
				return err
			}

			if res == migration.Performed {
				r.lg.Successf("migrated: position: %d name: %s repository: %s", m.Position(), m.Name(), m.Repository())
				performed = append(performed, m)
			}
		}

		return nil
	})

	if err != nil {
		r.lg.Error(err)
		return performed, err
	}

	return performed, nil
}

// Down reverts applied migrations in descending order and returns the ones it performed.
func (r *Runner) Down(ctx context.Context, cfs ...ActionConfigurator) (migration.Migrations, error) {
	act := newAction(cfs)

	var performed migration.Migrations
	err := r.execUnderLock(ctx, func(ms migration.Migrations) error {
		ms = act.forDown(ms)
		sort.Sort(sort.Reverse(ms))

		for _, m := range ms {
			if act.exhausted(len(performed)) {
				break
			}

			t, err := r.target(ctx, m.Repository())
			if err != nil {
				return err
			}

			start := time.Now()
			res, err := m.PerformDown(ctx, t)
			r.metrics.Observe(metrics.DirectionDown, m.Repository(), res, time.Since(start), err)
			if err != nil {
				return err
			}

			if res == migration.Performed {
				r.lg.Successf("rolled back: position: %d name: %s repository: %s", m.Position(), m.Name(), m.Repository())
				performed = append(performed, m)
			}
		}

		return nil
	})

	if err != nil {
		r.lg.Error(err)
		return performed, errors.Wrap(err, "could not rollback migrations")
	}

	return performed, nil
}

// Refresh first reverts the migrations and then applies them again.
func (r *Runner) Refresh(ctx context.Context, cfs ...ActionConfigurator) (migration.Migrations, migration.Migrations, error) {
	rolledBack, err := r.Down(ctx, cfs...)
	if err != nil {
		return rolledBack, nil, err
	}

	migrated, err := r.Up(ctx, cfs...)
	if err != nil {
		return rolledBack, migrated, err
	}

	return rolledBack, migrated, nil
}

// Status reports for every known migration whether its repository ledger has it.
// Migrations of schemaless repositories are always reported as applied.
func (r *Runner) Status(ctx context.Context) ([]MigrationStatus, error) {
	ms, err := r.collect(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]MigrationStatus, 0, len(ms))
	for _, m := range ms {
		t, err := r.target(ctx, m.Repository())
		if err != nil {
			return nil, err
		}

		pending, err := m.NeedsUp(ctx, t.Adapter)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read status of %s", m)
		}

		result = append(result, MigrationStatus{
			Position:   m.Position(),
			Name:       m.Name(),
			Repository: m.Repository(),
			Applied:    !pending,
		})
	}

	return result, nil
}

// Source returns the first configured source that can create migrations, if any.
func (r *Runner) Source() source.Source {
	for _, s := range r.selectors {
		if src, ok := s.(source.Source); ok {
			return src
		}
	}

	return nil
}

func (r *Runner) execUnderLock(ctx context.Context, f func(ms migration.Migrations) error) error {
	ms, err := r.collect(ctx)
	if err != nil {
		return err
	}

	var held []lock.Locker
	unlock := func() error {
		var result error
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Unlock(ctx); err != nil && result == nil {
				result = errors.Wrap(err, "could not release migration lock")
			}
		}

		return result
	}

	for _, l := range r.lockers {
		if err := l.Lock(ctx); err != nil {
			return r.handleError(errors.Wrap(err, "migration lock failed"), unlock)
		}
		held = append(held, l)
	}

	for _, name := range r.order {
		repo := r.repositories[name]
		if _, err := repo.prepare(ctx); err != nil {
			return r.handleError(err, unlock)
		}

		if err := repo.locker.Lock(ctx); err != nil {
			return r.handleError(errors.Wrapf(err, "repository [%s] lock failed", name), unlock)
		}
		held = append(held, repo.locker)
	}

	if err := f(ms); err != nil {
		return r.handleError(err, unlock)
	}

	return unlock()
}

func (r *Runner) handleError(err error, unlock func() error) error {
	if unlockErr := unlock(); unlockErr != nil {
		r.lg.Error(unlockErr)
		return errors.Wrap(err, unlockErr.Error())
	}

	return err
}

func (r *Runner) close() error {
	var result error
	for i := len(r.closerFns) - 1; i >= 0; i-- {
		if err := r.closerFns[i](); err != nil {
			r.lg.Error(err)
			if result == nil {
				result = err
			}
		}
	}

	r.closerFns = nil

	return result
}
