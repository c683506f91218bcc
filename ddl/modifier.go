package ddl

import (
	"context"

	"github.com/denismitr/shale/schema"
	"github.com/pkg/errors"
)

type alterKind int

const (
	addColumn alterKind = iota
	changeColumn
	renameColumn
	dropColumn
)

type alteration struct {
	kind alterKind
	def  schema.ColumnDef
	to   string
}

// TableModifier records alterations of an existing table. Statements are rendered
// in two phases: the current column state is read first, then the SQL is built.
type TableModifier struct {
	dialect     schema.Dialect
	name        string
	alterations []alteration
}

func NewTableModifier(d schema.Dialect, name string, body func(tm *TableModifier)) *TableModifier {
	tm := &TableModifier{dialect: d, name: name}
	if body != nil {
		body(tm)
	}

	return tm
}

func (tm *TableModifier) Name() string {
	return tm.name
}

func (tm *TableModifier) AddColumn(name string, t schema.Type, opts ...schema.ColumnOption) *TableModifier {
	tm.alterations = append(tm.alterations, alteration{kind: addColumn, def: schema.NewColumnDef(name, t, opts...)})
	return tm
}

// ChangeColumn alters the type, default or nullability of a column. An empty type
// keeps the current one on dialects that introspect before altering.
func (tm *TableModifier) ChangeColumn(name string, t schema.Type, opts ...schema.ColumnOption) *TableModifier {
	tm.alterations = append(tm.alterations, alteration{kind: changeColumn, def: schema.NewColumnDef(name, t, opts...)})
	return tm
}

func (tm *TableModifier) RenameColumn(from, to string) *TableModifier {
	tm.alterations = append(tm.alterations, alteration{kind: renameColumn, def: schema.ColumnDef{Name: from}, to: to})
	return tm
}

func (tm *TableModifier) DropColumn(names ...string) *TableModifier {
	for _, name := range names {
		tm.alterations = append(tm.alterations, alteration{kind: dropColumn, def: schema.ColumnDef{Name: name}})
	}

	return tm
}

// Statements renders one statement per recorded alteration, in call order.
// q is only used by dialects that need the current column state and may be nil otherwise.
func (tm *TableModifier) Statements(ctx context.Context, q schema.Querier) ([]string, error) {
	if tm.name == "" {
		return nil, errors.New("table name must not be empty")
	}

	statements := make([]string, 0, len(tm.alterations))
	for _, a := range tm.alterations {
		stmt, err := tm.render(ctx, q, a)
		if err != nil {
			return nil, errors.Wrapf(err, "could not modify table [%s]", tm.name)
		}

		statements = append(statements, stmt)
	}

	return statements, nil
}

func (tm *TableModifier) render(ctx context.Context, q schema.Querier, a alteration) (string, error) {
	switch a.kind {
	case addColumn:
		return tm.dialect.AddColumn(tm.name, a.def)
	case dropColumn:
		return tm.dialect.DropColumn(tm.name, a.def.Name)
	case changeColumn:
		current, err := tm.current(ctx, q, a.def.Name)
		if err != nil {
			return "", err
		}
		return tm.dialect.ChangeColumn(tm.name, a.def, current)
	case renameColumn:
		current, err := tm.current(ctx, q, a.def.Name)
		if err != nil {
			return "", err
		}
		return tm.dialect.RenameColumn(tm.name, a.def.Name, a.to, current)
	default:
		return "", errors.Errorf("unknown alteration %d", a.kind)
	}
}

// current reads a fresh snapshot of the column, nil when the table or the column
// does not exist. The dialect decides whether a missing column is an error.
func (tm *TableModifier) current(ctx context.Context, q schema.Querier, column string) (*schema.Column, error) {
	if !tm.dialect.IntrospectsOnAlter() {
		return nil, nil
	}

	if q == nil {
		return nil, errors.Errorf("%s needs a database connection to alter column [%s]", tm.dialect.Name(), column)
	}

	table, err := tm.dialect.IntrospectTable(ctx, q, tm.name)
	if err != nil {
		if errors.Is(err, schema.ErrTableNotFound) {
			return nil, nil
		}
		return nil, err
	}

	c, ok := table.Column(column)
	if !ok {
		return nil, nil
	}

	return c, nil
}
