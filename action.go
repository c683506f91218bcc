package shale

import (
	"strconv"

	"github.com/denismitr/shale/migration"
	"github.com/pkg/errors"
)

type ActionConfigurator func(a *Action)

// Action narrows down a batch. The zero value runs every migration.
type Action struct {
	steps  int
	names  []string
	upTo   *int
	downTo *int
}

func newAction(cfs []ActionConfigurator) *Action {
	act := new(Action)
	for _, f := range cfs {
		f(act)
	}

	return act
}

// WithSteps caps the number of migrations actually performed.
func WithSteps(steps int) ActionConfigurator {
	return func(a *Action) {
		a.steps = steps
	}
}

func WithNames(names ...string) ActionConfigurator {
	return func(a *Action) {
		a.names = names
	}
}

// UpTo limits Up to migrations at or below position.
func UpTo(position int) ActionConfigurator {
	return func(a *Action) {
		a.upTo = &position
	}
}

// DownTo limits Down to migrations above position.
func DownTo(position int) ActionConfigurator {
	return func(a *Action) {
		a.downTo = &position
	}
}

func (a *Action) exhausted(performed int) bool {
	return a.steps > 0 && performed >= a.steps
}

func (a *Action) filter(ms migration.Migrations, keep func(m *migration.Migration) bool) migration.Migrations {
	var result migration.Migrations
	for _, m := range ms {
		if len(a.names) > 0 && !inNames(m.Name(), a.names) {
			continue
		}

		if keep != nil && !keep(m) {
			continue
		}

		result = append(result, m)
	}

	return result
}

func (a *Action) forUp(ms migration.Migrations) migration.Migrations {
	if a.upTo == nil {
		return a.filter(ms, nil)
	}

	return a.filter(ms, func(m *migration.Migration) bool { return m.Position() <= *a.upTo })
}

func (a *Action) forDown(ms migration.Migrations) migration.Migrations {
	if a.downTo == nil {
		return a.filter(ms, nil)
	}

	return a.filter(ms, func(m *migration.Migration) bool { return m.Position() > *a.downTo })
}

func inNames(name string, names []string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}

	return false
}

// CreateConfigurators turns command line input into action configurators.
// An empty level means no level.
func CreateConfigurators(steps int, names []string, upTo, downTo string) ([]ActionConfigurator, error) {
	var configurators []ActionConfigurator
	if steps > 0 {
		configurators = append(configurators, WithSteps(steps))
	}

	if len(names) > 0 {
		configurators = append(configurators, WithNames(names...))
	}

	if upTo != "" {
		position, err := strconv.Atoi(upTo)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid up to level [%s]", upTo)
		}
		configurators = append(configurators, UpTo(position))
	}

	if downTo != "" {
		position, err := strconv.Atoi(downTo)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid down to level [%s]", downTo)
		}
		configurators = append(configurators, DownTo(position))
	}

	return configurators, nil
}
