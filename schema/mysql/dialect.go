package mysql

import (
	"fmt"
	"strings"

	"github.com/denismitr/shale/schema"
	"github.com/pkg/errors"
)

const (
	Name = "mysql"

	DefaultStorageEngine = "InnoDB"
	DefaultCharset       = "utf8mb4"
	DefaultCollation     = "utf8mb4_unicode_ci"
)

type Dialect struct {
	engine    string
	charset   string
	collation string
}

var _ schema.Dialect = (*Dialect)(nil)

type Option func(*Dialect)

func WithStorageEngine(engine string) Option {
	return func(d *Dialect) {
		d.engine = engine
	}
}

func WithCharset(charset string) Option {
	return func(d *Dialect) {
		d.charset = charset
	}
}

func WithCollation(collation string) Option {
	return func(d *Dialect) {
		d.collation = collation
	}
}

func New(opts ...Option) *Dialect {
	d := &Dialect{
		engine:    DefaultStorageEngine,
		charset:   DefaultCharset,
		collation: DefaultCollation,
	}

	for _, fn := range opts {
		fn(d)
	}

	return d
}

func (d *Dialect) Name() string {
	return Name
}

func (d *Dialect) QuoteName(name string) string {
	return schema.QuoteIdent(name, "`")
}

func (d *Dialect) QuoteColumnName(name string) string {
	return schema.QuoteIdent(name, "`")
}

// SupportsSchemaTransactions is false since every DDL statement commits implicitly.
func (d *Dialect) SupportsSchemaTransactions() bool {
	return false
}

func (d *Dialect) SupportsSerial() bool {
	return true
}

func (d *Dialect) IntrospectsOnAlter() bool {
	return true
}

func (d *Dialect) ColumnType(t schema.Type, opts schema.ColumnOptions) (string, error) {
	if err := schema.CheckSize(t, opts); err != nil {
		return "", err
	}

	if t == schema.Serial || opts.Serial {
		switch t {
		case schema.Serial:
			return "SERIAL PRIMARY KEY", nil
		case schema.Integer:
			return "INT AUTO_INCREMENT PRIMARY KEY", nil
		case schema.BigInt:
			return "BIGINT AUTO_INCREMENT PRIMARY KEY", nil
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
		return "INT", nil
	case schema.BigInt:
		return "BIGINT", nil
	case schema.Boolean:
		return "BOOLEAN", nil
	case schema.Float:
		return "DOUBLE", nil
	case schema.Decimal:
		if opts.Precision > 0 {
			return fmt.Sprintf("DECIMAL(%d, %d)", opts.Precision, opts.Scale), nil
		}
		return "DECIMAL", nil
	case schema.DateTime:
		return "DATETIME", nil
	case schema.Date:
		return "DATE", nil
	case schema.Time:
		return "TIME", nil
	case schema.Binary:
		if opts.Size > 0 {
			return fmt.Sprintf("VARBINARY(%d)", opts.Size), nil
		}
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

// TableOptions renders the engine, charset and collation, falling back to the dialect
// defaults for whatever opts leave out. A charset other than the default one without
// an explicit collation lets the server pick the charset's own default collation.
func (d *Dialect) TableOptions(opts schema.TableOptions) (string, error) {
	engine := d.engine
	if opts.StorageEngine != "" {
		engine = opts.StorageEngine
	}

	charset := d.charset
	if opts.CharacterSet != "" {
		charset = opts.CharacterSet
	}

	collation := d.collation
	if opts.Collation != "" {
		collation = opts.Collation
	} else if charset != d.charset {
		collation = ""
	}

	var parts []string
	if engine != "" {
		parts = append(parts, "ENGINE = "+engine)
	}

	if charset != "" {
		parts = append(parts, "CHARACTER SET "+charset)
	}

	if collation != "" {
		parts = append(parts, "COLLATE "+collation)
	}

	return strings.Join(parts, " "), nil
}

func (d *Dialect) AddColumn(table string, def schema.ColumnDef) (string, error) {
	col, err := d.ColumnDefinition(def)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.QuoteName(table), col), nil
}

// ChangeColumn renders MODIFY COLUMN. MODIFY replaces the whole definition, so the
// default, nullability and auto increment that def leaves unspecified are carried over from current.
func (d *Dialect) ChangeColumn(table string, def schema.ColumnDef, current *schema.Column) (string, error) {
	var nativeType string
	if def.Type == "" {
		if current == nil {
			return "", errors.Wrapf(schema.ErrColumnNotFound, "no type given for column [%s] and it does not exist", def.Name)
		}
		nativeType = current.Type
	} else {
		t, err := d.ColumnType(def.Type, def.Options)
		if err != nil {
			return "", errors.Wrapf(err, "column [%s]", def.Name)
		}
		nativeType = t
	}

	if current != nil {
		if !def.Options.HasDefault && current.Default != nil {
			def.Options.Default = schema.Raw(defaultExpression(current))
			def.Options.HasDefault = true
		}

		if def.Options.Nullability == schema.NullUnspecified && current.NotNull {
			def.Options.Nullability = schema.NotNullable
		}
	}

	col, err := schema.RenderColumn(d, nativeType, def)
	if err != nil {
		return "", err
	}

	if current != nil && current.AutoIncrement && !def.IsSerial() {
		col += " AUTO_INCREMENT"
	}

	return fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", d.QuoteName(table), col), nil
}

// RenameColumn renders CHANGE, which needs the full current definition of the column.
func (d *Dialect) RenameColumn(table, from, to string, current *schema.Column) (string, error) {
	if current == nil {
		return "", errors.Wrapf(schema.ErrColumnNotFound, "column [%s] of table [%s]", from, table)
	}

	var b strings.Builder
	b.WriteString("ALTER TABLE ")
	b.WriteString(d.QuoteName(table))
	b.WriteString(" CHANGE ")
	b.WriteString(d.QuoteColumnName(from))
	b.WriteString(" ")
	b.WriteString(d.QuoteColumnName(to))
	b.WriteString(" ")
	b.WriteString(current.Type)

	if current.Default != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(defaultExpression(current))
	}

	if current.NotNull {
		b.WriteString(" NOT NULL")
	}

	if current.AutoIncrement {
		b.WriteString(" AUTO_INCREMENT")
	}

	return b.String(), nil
}

func (d *Dialect) DropColumn(table, column string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.QuoteName(table), d.QuoteColumnName(column)), nil
}

var numericTypes = map[string]bool{
	"tinyint": true, "smallint": true, "mediumint": true, "int": true, "integer": true,
	"bigint": true, "decimal": true, "numeric": true, "dec": true, "fixed": true,
	"float": true, "double": true, "real": true, "bit": true, "year": true,
	"bool": true, "boolean": true,
}

var temporalTypes = map[string]bool{
	"datetime": true, "timestamp": true,
}

// baseType is the lowercase type name of an information_schema column_type,
// "int unsigned" and "decimal(5,2)" give "int" and "decimal".
func baseType(columnType string) string {
	t := strings.ToLower(strings.TrimSpace(columnType))
	if i := strings.IndexAny(t, "( "); i >= 0 {
		t = t[:i]
	}

	return t
}

// defaultExpression turns the information_schema default of c back into SQL.
// The catalog reports string literals unquoted, so only numeric columns keep the
// value bare. Expression defaults are wrapped in parentheses.
func defaultExpression(c *schema.Column) string {
	v := *c.Default
	upper := strings.ToUpper(v)
	base := baseType(c.Type)

	switch {
	case strings.HasPrefix(v, "'"), upper == "NULL":
		return v
	case (c.DefaultIsExpression || temporalTypes[base]) &&
		(strings.HasPrefix(upper, "CURRENT_TIMESTAMP") || strings.HasPrefix(upper, "NOW(")):
		return v
	case c.DefaultIsExpression:
		return "(" + v + ")"
	case numericTypes[base]:
		return v
	}

	return schema.QuoteString(v)
}
