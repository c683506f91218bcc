package migration

import (
	"context"

	"github.com/denismitr/shale/logger"
	"github.com/denismitr/shale/schema"
)

// Adapter is the database connection a migration runs against.
type Adapter interface {
	schema.Querier

	Dialect() schema.Dialect
	Exec(ctx context.Context, query string, args ...interface{}) error
	StorageExists(ctx context.Context, name string) (bool, error)
}

// Transactor is implemented by adapters that can run a migration and its ledger
// write atomically. It is used only when the dialect supports transactional DDL.
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx Adapter) error) error
}

// Schemaless is implemented by stores without a schema to migrate,
// every migration is reported as satisfied against them.
type Schemaless interface {
	Schemaless() bool
}

// Target is where and how a migration is performed.
type Target struct {
	Adapter Adapter
	Logger  logger.Logger
}

func isSchemaless(a Adapter) bool {
	s, ok := a.(Schemaless)
	return ok && s.Schemaless()
}
