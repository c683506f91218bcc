package postgres

import (
	"fmt"
	"strings"

	"github.com/denismitr/shale/schema"
	"github.com/pkg/errors"
)

const Name = "postgres"

type Dialect struct{}

var _ schema.Dialect = (*Dialect)(nil)

func New() *Dialect {
	return &Dialect{}
}

func (d *Dialect) Name() string {
	return Name
}

func (d *Dialect) QuoteName(name string) string {
	return schema.QuoteIdent(name, `"`)
}

func (d *Dialect) QuoteColumnName(name string) string {
	return schema.QuoteIdent(name, `"`)
}

func (d *Dialect) SupportsSchemaTransactions() bool {
	return true
}

func (d *Dialect) SupportsSerial() bool {
	return true
}

func (d *Dialect) IntrospectsOnAlter() bool {
	return false
}

func (d *Dialect) ColumnType(t schema.Type, opts schema.ColumnOptions) (string, error) {
	if err := schema.CheckSize(t, opts); err != nil {
		return "", err
	}

	if t == schema.Serial || opts.Serial {
		switch t {
		case schema.Serial, schema.Integer:
			return "SERIAL PRIMARY KEY", nil
		case schema.BigInt:
			return "BIGSERIAL PRIMARY KEY", nil
		default:
			return "", errors.Wrapf(schema.ErrDialectUnsupported, "auto increment on type [%s]", t)
		}
	}

	switch t {
	case schema.String:
		return fmt.Sprintf("VARCHAR(%d)", schema.StringSize(opts)), nil
	case schema.Text:
		return "TEXT", nil
	case schema.Integer:
		return "INTEGER", nil
	case schema.BigInt:
		return "BIGINT", nil
	case schema.Boolean:
		return "BOOLEAN", nil
	case schema.Float:
		return "DOUBLE PRECISION", nil
	case schema.Decimal:
		if opts.Precision > 0 {
			return fmt.Sprintf("NUMERIC(%d, %d)", opts.Precision, opts.Scale), nil
		}
		return "NUMERIC", nil
	case schema.DateTime:
		return "TIMESTAMP", nil
	case schema.Date:
		return "DATE", nil
	case schema.Time:
		return "TIME", nil
	case schema.Binary:
		if opts.Size > 0 {
			return "", errors.Wrap(schema.ErrDialectUnsupported, "bytea has no size")
		}
		return "BYTEA", nil
	case "":
		return "", errors.New("column type must not be empty")
	}

	return string(t), nil
}

func (d *Dialect) ColumnDefinition(def schema.ColumnDef) (string, error) {
	nativeType, err := d.ColumnType(def.Type, def.Options)
	if err != nil {
		return "", errors.Wrapf(err, "column [%s]", def.Name)
	}

	return schema.RenderColumn(d, nativeType, def)
}

func (d *Dialect) TableOptions(opts schema.TableOptions) (string, error) {
	if !opts.IsZero() {
		return "", errors.Wrap(schema.ErrDialectUnsupported, "postgres has no storage engine, charset or collation table options")
	}

	return "", nil
}

func (d *Dialect) AddColumn(table string, def schema.ColumnDef) (string, error) {
	col, err := d.ColumnDefinition(def)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.QuoteName(table), col), nil
}

// ChangeColumn renders every requested change as an action of a single ALTER TABLE.
func (d *Dialect) ChangeColumn(table string, def schema.ColumnDef, _ *schema.Column) (string, error) {
	if def.IsSerial() {
		return "", errors.Wrap(schema.ErrDialectUnsupported, "changing a column into serial")
	}

	col := d.QuoteColumnName(def.Name)
	var actions []string

	if def.Type != "" {
		nativeType, err := d.ColumnType(def.Type, def.Options)
		if err != nil {
			return "", errors.Wrapf(err, "column [%s]", def.Name)
		}

		actions = append(actions, fmt.Sprintf("ALTER COLUMN %s TYPE %s", col, nativeType))
	}

	switch def.Options.Nullability {
	case schema.NotNullable:
		actions = append(actions, fmt.Sprintf("ALTER COLUMN %s SET NOT NULL", col))
	case schema.Null:
		actions = append(actions, fmt.Sprintf("ALTER COLUMN %s DROP NOT NULL", col))
	}

	if def.Options.HasDefault {
		if def.Options.Default == nil {
			actions = append(actions, fmt.Sprintf("ALTER COLUMN %s DROP DEFAULT", col))
		} else {
			lit, err := schema.Literal(def.Options.Default)
			if err != nil {
				return "", errors.Wrapf(err, "column [%s]", def.Name)
			}
			actions = append(actions, fmt.Sprintf("ALTER COLUMN %s SET DEFAULT %s", col, lit))
		}
	}

	if def.Options.Unique {
		actions = append(actions, fmt.Sprintf("ADD UNIQUE (%s)", col))
	}

	if def.Options.PrimaryKey {
		actions = append(actions, fmt.Sprintf("ADD PRIMARY KEY (%s)", col))
	}

	if len(actions) == 0 {
		return "", errors.Errorf("nothing to change for column [%s]", def.Name)
	}

	return fmt.Sprintf("ALTER TABLE %s %s", d.QuoteName(table), strings.Join(actions, ", ")), nil
}

func (d *Dialect) RenameColumn(table, from, to string, _ *schema.Column) (string, error) {
	return fmt.Sprintf(
		"ALTER TABLE %s RENAME COLUMN %s TO %s",
		d.QuoteName(table), d.QuoteColumnName(from), d.QuoteColumnName(to),
	), nil
}

func (d *Dialect) DropColumn(table, column string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.QuoteName(table), d.QuoteColumnName(column)), nil
}
