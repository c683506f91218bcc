package schema

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// Type is either one of the abstract tokens below or a native type
// that is passed to the database verbatim, e.g. "VARCHAR(50)".
type Type string

const (
	String   Type = "string"
	Text     Type = "text"
	Integer  Type = "integer"
	BigInt   Type = "bigint"
	Serial   Type = "serial"
	Boolean  Type = "boolean"
	Float    Type = "float"
	Decimal  Type = "decimal"
	DateTime Type = "datetime"
	Date     Type = "date"
	Time     Type = "time"
	Binary   Type = "binary"
)

var abstractTypes = map[Type]struct{}{
	String: {}, Text: {}, Integer: {}, BigInt: {}, Serial: {}, Boolean: {},
	Float: {}, Decimal: {}, DateTime: {}, Date: {}, Time: {}, Binary: {},
}

// IsAbstract reports whether t is one of the dialect independent type tokens.
func (t Type) IsAbstract() bool {
	_, ok := abstractTypes[t]
	return ok
}

const initialStringLength = 50

var defaultStringLength int64 = initialStringLength

// DefaultStringLength is the length used for String columns declared without a size.
func DefaultStringLength() int {
	return int(atomic.LoadInt64(&defaultStringLength))
}

// SetDefaultStringLength changes the process wide default string length and returns
// the previous value so that callers (tests mostly) can restore it.
func SetDefaultStringLength(n int) int {
	if n <= 0 {
		n = initialStringLength
	}

	return int(atomic.SwapInt64(&defaultStringLength, int64(n)))
}

// Nullability is tri-state, unspecified columns leave the decision to the database
// or, when altering, to the current column state.
type Nullability int

const (
	NullUnspecified Nullability = iota
	Null
	NotNullable
)

type ColumnOptions struct {
	Size        int
	Precision   int
	Scale       int
	Nullability Nullability
	Default     interface{}
	HasDefault  bool
	PrimaryKey  bool
	Unique      bool
	Serial      bool
}

type ColumnOption func(*ColumnOptions)

func NewColumnOptions(opts ...ColumnOption) ColumnOptions {
	var o ColumnOptions
	for _, fn := range opts {
		fn(&o)
	}

	return o
}

func Size(n int) ColumnOption {
	return func(o *ColumnOptions) {
		o.Size = n
	}
}

func Precision(precision, scale int) ColumnOption {
	return func(o *ColumnOptions) {
		o.Precision = precision
		o.Scale = scale
	}
}

func NotNull() ColumnOption {
	return func(o *ColumnOptions) {
		o.Nullability = NotNullable
	}
}

func Nullable() ColumnOption {
	return func(o *ColumnOptions) {
		o.Nullability = Null
	}
}

// Default sets the column default. Strings are quoted as literals,
// wrap an expression in Raw to pass it through unchanged.
func Default(v interface{}) ColumnOption {
	return func(o *ColumnOptions) {
		o.Default = v
		o.HasDefault = true
	}
}

func PrimaryKey() ColumnOption {
	return func(o *ColumnOptions) {
		o.PrimaryKey = true
	}
}

func Unique() ColumnOption {
	return func(o *ColumnOptions) {
		o.Unique = true
	}
}

func AutoIncrement() ColumnOption {
	return func(o *ColumnOptions) {
		o.Serial = true
	}
}

// Raw is an SQL expression rendered without quoting, e.g. Raw("CURRENT_TIMESTAMP").
type Raw string

// Literal renders a default value as an SQL literal.
func Literal(v interface{}) (string, error) {
	switch value := v.(type) {
	case nil:
		return "NULL", nil
	case Raw:
		return string(value), nil
	case string:
		return QuoteString(value), nil
	case bool:
		if value {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(value), nil
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", value), nil
	case float32:
		return strconv.FormatFloat(float64(value), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(value, 'g', -1, 64), nil
	case time.Time:
		return QuoteString(value.Format("2006-01-02 15:04:05")), nil
	default:
		return "", errors.Wrapf(ErrDialectUnsupported, "default value of type %T", v)
	}
}

// QuoteIdent wraps an identifier in q, doubling any q inside it.
func QuoteIdent(name, q string) string {
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// QuoteString renders s as a single quoted SQL string literal.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

type TableOptions struct {
	StorageEngine string
	CharacterSet  string
	Collation     string
}

func (o TableOptions) IsZero() bool {
	return o.StorageEngine == "" && o.CharacterSet == "" && o.Collation == ""
}

type TableOption func(*TableOptions)

func NewTableOptions(opts ...TableOption) TableOptions {
	var o TableOptions
	for _, fn := range opts {
		fn(&o)
	}

	return o
}

func StorageEngine(engine string) TableOption {
	return func(o *TableOptions) {
		o.StorageEngine = engine
	}
}

func CharacterSet(charset string) TableOption {
	return func(o *TableOptions) {
		o.CharacterSet = charset
	}
}

func Collation(collation string) TableOption {
	return func(o *TableOptions) {
		o.Collation = collation
	}
}
