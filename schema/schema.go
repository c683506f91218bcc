// Package schema holds the dialect contract shared by the DDL builders and the
// migration runner, the abstract column types and options, and the read model
// of introspected tables.
package schema

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrDialectUnsupported = errors.New("operation is not supported by the dialect")
	ErrTableNotFound      = errors.New("table not found")
	ErrColumnNotFound     = errors.New("column not found")
)

// Querier runs a read query and scans all resulting rows into dest, which is
// a pointer to a slice. Placeholders are written as ? and rebound by the implementation.
type Querier interface {
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Dialect maps abstract schema descriptions to the SQL of one database family.
type Dialect interface {
	Name() string

	QuoteName(name string) string
	QuoteColumnName(name string) string

	ColumnType(t Type, opts ColumnOptions) (string, error)
	ColumnDefinition(def ColumnDef) (string, error)
	TableOptions(opts TableOptions) (string, error)

	SupportsSchemaTransactions() bool
	SupportsSerial() bool

	IntrospectTable(ctx context.Context, q Querier, name string) (*Table, error)
	StorageExistsQuery(name string) (string, []interface{})

	// IntrospectsOnAlter reports whether ChangeColumn and RenameColumn
	// need the current column state.
	IntrospectsOnAlter() bool
	AddColumn(table string, def ColumnDef) (string, error)
	ChangeColumn(table string, def ColumnDef, current *Column) (string, error)
	RenameColumn(table, from, to string, current *Column) (string, error)
	DropColumn(table, column string) (string, error)
}
