package sqlite

import (
	"fmt"

	"github.com/denismitr/shale/schema"
	"github.com/pkg/errors"
)

const Name = "sqlite"

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
		case schema.Serial, schema.Integer, schema.BigInt:
			// only an INTEGER PRIMARY KEY aliases the rowid
			return "INTEGER PRIMARY KEY AUTOINCREMENT", nil
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
		return "REAL", nil
	case schema.Decimal:
		if opts.Precision > 0 {
			return fmt.Sprintf("DECIMAL(%d, %d)", opts.Precision, opts.Scale), nil
		}
		return "NUMERIC", nil
	case schema.DateTime:
		return "DATETIME", nil
	case schema.Date:
		return "DATE", nil
	case schema.Time:
		return "TIME", nil
	case schema.Binary:
		return "BLOB", nil
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
		return "", errors.Wrap(schema.ErrDialectUnsupported, "sqlite has no storage engine, charset or collation table options")
	}

	return "", nil
}

// AddColumn follows the ALTER TABLE ADD COLUMN restrictions of SQLite:
// no key or unique columns and no NOT NULL without a default.
func (d *Dialect) AddColumn(table string, def schema.ColumnDef) (string, error) {
	if def.IsSerial() || def.Options.PrimaryKey || def.Options.Unique {
		return "", errors.Wrapf(schema.ErrDialectUnsupported, "adding key column [%s]", def.Name)
	}

	if def.Options.Nullability == schema.NotNullable && (!def.Options.HasDefault || def.Options.Default == nil) {
		return "", errors.Wrapf(schema.ErrDialectUnsupported, "adding NOT NULL column [%s] without a default", def.Name)
	}

	col, err := d.ColumnDefinition(def)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.QuoteName(table), col), nil
}

func (d *Dialect) ChangeColumn(table string, def schema.ColumnDef, _ *schema.Column) (string, error) {
	return "", errors.Wrapf(schema.ErrDialectUnsupported, "sqlite cannot alter column [%s] of table [%s]", def.Name, table)
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
