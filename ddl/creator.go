// Package ddl builds CREATE TABLE and ALTER TABLE statements on top of a schema.Dialect.
package ddl

import (
	"strings"

	"github.com/denismitr/shale/schema"
	"github.com/pkg/errors"
)

// TableCreator collects the columns of a new table in declaration order.
type TableCreator struct {
	dialect schema.Dialect
	name    string
	options schema.TableOptions
	columns []schema.ColumnDef
}

func NewTableCreator(
	d schema.Dialect,
	name string,
	body func(tc *TableCreator),
	opts ...schema.TableOption,
) *TableCreator {
	tc := &TableCreator{
		dialect: d,
		name:    name,
		options: schema.NewTableOptions(opts...),
	}

	if body != nil {
		body(tc)
	}

	return tc
}

func (tc *TableCreator) Name() string {
	return tc.name
}

func (tc *TableCreator) QuotedName() string {
	return tc.dialect.QuoteName(tc.name)
}

func (tc *TableCreator) Options() schema.TableOptions {
	return tc.options
}

func (tc *TableCreator) Columns() []schema.ColumnDef {
	columns := make([]schema.ColumnDef, len(tc.columns))
	copy(columns, tc.columns)
	return columns
}

// Column declares a column. Columns are rendered in the order they are declared.
func (tc *TableCreator) Column(name string, t schema.Type, opts ...schema.ColumnOption) *TableCreator {
	tc.columns = append(tc.columns, schema.NewColumnDef(name, t, opts...))
	return tc
}

// SQL renders the complete CREATE TABLE statement or fails as a whole.
func (tc *TableCreator) SQL() (string, error) {
	if tc.name == "" {
		return "", errors.New("table name must not be empty")
	}

	columns := make([]string, 0, len(tc.columns))
	for _, def := range tc.columns {
		col, err := tc.dialect.ColumnDefinition(def)
		if err != nil {
			return "", errors.Wrapf(err, "could not create table [%s]", tc.name)
		}

		columns = append(columns, col)
	}

	options, err := tc.dialect.TableOptions(tc.options)
	if err != nil {
		return "", errors.Wrapf(err, "could not create table [%s]", tc.name)
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(tc.QuotedName())
	b.WriteString(" (")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(")")

	if options != "" {
		b.WriteString(" ")
		b.WriteString(options)
	}

	return b.String(), nil
}
