package schema

import (
	"strings"

	"github.com/pkg/errors"
)

// ColumnDef describes a column to be created or changed.
type ColumnDef struct {
	Name    string
	Type    Type
	Options ColumnOptions
}

func NewColumnDef(name string, t Type, opts ...ColumnOption) ColumnDef {
	return ColumnDef{Name: name, Type: t, Options: NewColumnOptions(opts...)}
}

// IsSerial reports whether the column is an auto incrementing key.
func (def ColumnDef) IsSerial() bool {
	return def.Type == Serial || def.Options.Serial
}

// Table is the introspected state of a table. It is a snapshot and is never cached.
type Table struct {
	Name    string
	Columns []*Column
}

// Column returns the first column with exactly the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}

	return nil, false
}

func (t *Table) String() string {
	return t.Name
}

// Column is a column as the database catalog reports it. Type is the native type
// and Default the catalog's raw default expression, nil when there is none.
type Column struct {
	Name    string
	Type    string
	Default *string
	// DefaultIsExpression marks a default the catalog reports as an expression, not a literal.
	DefaultIsExpression bool
	NotNull             bool
	PrimaryKey          bool
	AutoIncrement       bool
}

// RenderColumn assembles a column clause out of an already mapped native type.
// Dialects share it so that every one of them renders the parts in the same order.
func RenderColumn(d Dialect, nativeType string, def ColumnDef) (string, error) {
	if def.Name == "" {
		return "", errors.New("column name must not be empty")
	}

	var b strings.Builder
	b.WriteString(d.QuoteColumnName(def.Name))
	b.WriteString(" ")
	b.WriteString(nativeType)

	if def.Options.HasDefault {
		lit, err := Literal(def.Options.Default)
		if err != nil {
			return "", errors.Wrapf(err, "column [%s]", def.Name)
		}

		b.WriteString(" DEFAULT ")
		b.WriteString(lit)
	}

	if def.Options.Nullability == NotNullable {
		b.WriteString(" NOT NULL")
	}

	if def.Options.Unique {
		b.WriteString(" UNIQUE")
	}

	// serial types carry their own key clause
	if def.Options.PrimaryKey && !def.IsSerial() {
		b.WriteString(" PRIMARY KEY")
	}

	return b.String(), nil
}

// CheckSize validates the size and precision options against the type they are applied to.
func CheckSize(t Type, opts ColumnOptions) error {
	if opts.Size < 0 || opts.Precision < 0 || opts.Scale < 0 {
		return errors.Wrapf(ErrDialectUnsupported, "negative size for type [%s]", t)
	}

	if opts.Size > 0 {
		switch t {
		case String, Binary:
		default:
			return errors.Wrapf(ErrDialectUnsupported, "size option on type [%s]", t)
		}
	}

	if opts.Precision > 0 || opts.Scale > 0 {
		if t != Decimal {
			return errors.Wrapf(ErrDialectUnsupported, "precision option on type [%s]", t)
		}

		if opts.Scale > opts.Precision {
			return errors.Wrapf(
				ErrDialectUnsupported,
				"scale %d is greater than precision %d", opts.Scale, opts.Precision)
		}
	}

	return nil
}

// StringSize returns the explicit size or the process wide default.
func StringSize(opts ColumnOptions) int {
	if opts.Size > 0 {
		return opts.Size
	}

	return DefaultStringLength()
}
