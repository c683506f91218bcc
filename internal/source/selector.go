package source

import (
	"context"

	"github.com/denismitr/shale/migration"
	"github.com/pkg/errors"
)

var (
	ErrNotAMigrationFile  = errors.New("not a migration file")
	ErrTooManyFilesForKey = errors.New("too many files for a single migration")
	ErrMissingUpScript    = errors.New("migration has no up script")
	ErrAlreadyExists      = errors.New("migration already exists")
)

type Selector interface {
	Select(ctx context.Context) (migration.Migrations, error)
}

type Source interface {
	Selector

	IsValid() bool
	AlreadyExists(name string) bool
	Create(position int, name string, withDown bool) (*migration.Migration, error)
}

// scriptAction runs the statements of a script one by one.
func scriptAction(statements []string) migration.Action {
	return func(ctx context.Context, c migration.Context) error {
		for _, stmt := range statements {
			if err := c.Execute(ctx, stmt); err != nil {
				return err
			}
		}

		return nil
	}
}
