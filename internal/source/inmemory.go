package source

import (
	"context"

	"github.com/denismitr/shale/migration"
)

// InMemorySource serves migrations declared in code.
type InMemorySource struct {
	migrations migration.Migrations
}

var _ Selector = (*InMemorySource)(nil)

func NewInMemorySource(migrations ...*migration.Migration) *InMemorySource {
	return &InMemorySource{migrations: migrations}
}

func (s *InMemorySource) Select(ctx context.Context) (migration.Migrations, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := make(migration.Migrations, len(s.migrations))
	copy(result, s.migrations)

	return result, nil
}
