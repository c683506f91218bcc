package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/denismitr/shale/schema"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	rows []columnRow
	err  error
}

func (f *fakeQuerier) Select(_ context.Context, dest interface{}, _ string, _ ...interface{}) error {
	if f.err != nil {
		return f.err
	}

	rows, ok := dest.(*[]columnRow)
	if !ok {
		return fmt.Errorf("unexpected destination %T", dest)
	}

	*rows = f.rows
	return nil
}

func str(s string) *string {
	return &s
}

func TestDialect_ColumnDefinition(t *testing.T) {
	d := New()

	tt := []struct {
		name string
		def  schema.ColumnDef
		sql  string
	}{
		{name: "serial", def: schema.NewColumnDef("id", schema.Serial), sql: "`id` SERIAL PRIMARY KEY"},
		{name: "int auto increment", def: schema.NewColumnDef("id", schema.Integer, schema.AutoIncrement()), sql: "`id` INT AUTO_INCREMENT PRIMARY KEY"},
		{name: "string", def: schema.NewColumnDef("name", schema.String, schema.NotNull()), sql: "`name` VARCHAR(50) NOT NULL"},
		{name: "sized binary", def: schema.NewColumnDef("hash", schema.Binary, schema.Size(32)), sql: "`hash` VARBINARY(32)"},
		{name: "boolean default", def: schema.NewColumnDef("active", schema.Boolean, schema.Default(true)), sql: "`active` BOOLEAN DEFAULT TRUE"},
		{name: "backtick in name", def: schema.NewColumnDef("a`b", schema.Date), sql: "`a``b` DATE"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := d.ColumnDefinition(tc.def)
			require.NoError(t, err)
			assert.Equal(t, tc.sql, got)
		})
	}
}

func TestDialect_TableOptions(t *testing.T) {
	tt := []struct {
		name    string
		dialect *Dialect
		opts    schema.TableOptions
		out     string
	}{
		{
			name:    "defaults",
			dialect: New(),
			out:     "ENGINE = InnoDB CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci",
		},
		{
			name:    "per table options",
			dialect: New(),
			opts: schema.NewTableOptions(
				schema.StorageEngine("MyISAM"), schema.CharacterSet("big5"), schema.Collation("big5_chinese_ci"),
			),
			out: "ENGINE = MyISAM CHARACTER SET big5 COLLATE big5_chinese_ci",
		},
		{
			name:    "charset without collation",
			dialect: New(),
			opts:    schema.NewTableOptions(schema.CharacterSet("latin1")),
			out:     "ENGINE = InnoDB CHARACTER SET latin1",
		},
		{
			name:    "dialect configured defaults",
			dialect: New(WithStorageEngine("Aria"), WithCharset("utf8"), WithCollation("utf8_general_ci")),
			out:     "ENGINE = Aria CHARACTER SET utf8 COLLATE utf8_general_ci",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			out, err := tc.dialect.TableOptions(tc.opts)
			require.NoError(t, err)
			assert.Equal(t, tc.out, out)
		})
	}
}

func TestDialect_ChangeColumn(t *testing.T) {
	d := New()

	t.Run("column without default", func(t *testing.T) {
		current := &schema.Column{Name: "name", Type: "varchar(50)"}
		got, err := d.ChangeColumn("people", schema.NewColumnDef("name", schema.String, schema.Size(200)), current)
		require.NoError(t, err)
		assert.Equal(t, "ALTER TABLE `people` MODIFY COLUMN `name` VARCHAR(200)", got)
	})

	t.Run("keeps current default and nullability", func(t *testing.T) {
		current := &schema.Column{Name: "name", Type: "varchar(50)", Default: str("John"), NotNull: true}
		got, err := d.ChangeColumn("people", schema.NewColumnDef("name", schema.String, schema.Size(200)), current)
		require.NoError(t, err)
		assert.Equal(t, "ALTER TABLE `people` MODIFY COLUMN `name` VARCHAR(200) DEFAULT 'John' NOT NULL", got)
	})

	t.Run("keeps auto increment when widening a key", func(t *testing.T) {
		current := &schema.Column{Name: "id", Type: "int", NotNull: true, PrimaryKey: true, AutoIncrement: true}
		got, err := d.ChangeColumn("people", schema.NewColumnDef("id", schema.BigInt), current)
		require.NoError(t, err)
		assert.Equal(t, "ALTER TABLE `people` MODIFY COLUMN `id` BIGINT NOT NULL AUTO_INCREMENT", got)
	})

	t.Run("auto increment is not repeated for a serial definition", func(t *testing.T) {
		current := &schema.Column{Name: "id", Type: "int", NotNull: true, PrimaryKey: true, AutoIncrement: true}
		got, err := d.ChangeColumn("people", schema.NewColumnDef("id", schema.BigInt, schema.AutoIncrement()), current)
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(got, "AUTO_INCREMENT"), got)
	})

	t.Run("string default that looks numeric stays quoted", func(t *testing.T) {
		current := &schema.Column{Name: "code", Type: "varchar(5)", Default: str("007")}
		got, err := d.ChangeColumn("people", schema.NewColumnDef("code", schema.String, schema.Size(10)), current)
		require.NoError(t, err)
		assert.Equal(t, "ALTER TABLE `people` MODIFY COLUMN `code` VARCHAR(10) DEFAULT '007'", got)
	})

	t.Run("expression default stays an expression", func(t *testing.T) {
		current := &schema.Column{Name: "uid", Type: "varchar(36)", Default: str("uuid()"), DefaultIsExpression: true}
		got, err := d.ChangeColumn("people", schema.NewColumnDef("uid", schema.String, schema.Size(64)), current)
		require.NoError(t, err)
		assert.Equal(t, "ALTER TABLE `people` MODIFY COLUMN `uid` VARCHAR(64) DEFAULT (uuid())", got)
	})

	t.Run("explicit options win", func(t *testing.T) {
		current := &schema.Column{Name: "name", Type: "varchar(50)", Default: str("John"), NotNull: true}
		got, err := d.ChangeColumn("people", schema.NewColumnDef(
			"name", schema.String, schema.Size(200), schema.Default("Jane"), schema.Nullable(),
		), current)
		require.NoError(t, err)
		assert.Equal(t, "ALTER TABLE `people` MODIFY COLUMN `name` VARCHAR(200) DEFAULT 'Jane'", got)
	})

	t.Run("missing column without type", func(t *testing.T) {
		_, err := d.ChangeColumn("people", schema.NewColumnDef("name", "", schema.NotNull()), nil)
		assert.True(t, errors.Is(err, schema.ErrColumnNotFound))
	})

	t.Run("missing column with type", func(t *testing.T) {
		got, err := d.ChangeColumn("people", schema.NewColumnDef("age", schema.Integer), nil)
		require.NoError(t, err)
		assert.Equal(t, "ALTER TABLE `people` MODIFY COLUMN `age` INT", got)
	})
}

func TestDialect_RenameColumn(t *testing.T) {
	d := New()

	t.Run("carries the full definition", func(t *testing.T) {
		current := &schema.Column{Name: "name", Type: "varchar(50)", Default: str("John"), NotNull: true}
		got, err := d.RenameColumn("people", "name", "first_name", current)
		require.NoError(t, err)
		assert.Equal(t, "ALTER TABLE `people` CHANGE `name` `first_name` varchar(50) DEFAULT 'John' NOT NULL", got)
	})

	t.Run("auto increment key", func(t *testing.T) {
		current := &schema.Column{Name: "id", Type: "int", NotNull: true, PrimaryKey: true, AutoIncrement: true}
		got, err := d.RenameColumn("people", "id", "person_id", current)
		require.NoError(t, err)
		assert.Equal(t, "ALTER TABLE `people` CHANGE `id` `person_id` int NOT NULL AUTO_INCREMENT", got)
	})

	t.Run("string default that looks numeric", func(t *testing.T) {
		current := &schema.Column{Name: "code", Type: "varchar(10)", Default: str("007"), NotNull: true}
		got, err := d.RenameColumn("people", "code", "zip", current)
		require.NoError(t, err)
		assert.Equal(t, "ALTER TABLE `people` CHANGE `code` `zip` varchar(10) DEFAULT '007' NOT NULL", got)
	})

	t.Run("numeric and expression defaults", func(t *testing.T) {
		current := &schema.Column{Name: "age", Type: "int unsigned", Default: str("18")}
		got, err := d.RenameColumn("people", "age", "years", current)
		require.NoError(t, err)
		assert.Equal(t, "ALTER TABLE `people` CHANGE `age` `years` int unsigned DEFAULT 18", got)

		current = &schema.Column{Name: "uid", Type: "char(36)", Default: str("uuid()"), DefaultIsExpression: true}
		got, err = d.RenameColumn("people", "uid", "guid", current)
		require.NoError(t, err)
		assert.Equal(t, "ALTER TABLE `people` CHANGE `uid` `guid` char(36) DEFAULT (uuid())", got)
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := d.RenameColumn("people", "name", "first_name", nil)
		assert.True(t, errors.Is(err, schema.ErrColumnNotFound))
	})
}

func TestDefaultExpression(t *testing.T) {
	tt := []struct {
		name       string
		column     schema.Column
		expression string
	}{
		{name: "string", column: schema.Column{Type: "varchar(50)", Default: str("John")}, expression: "'John'"},
		{name: "numeric looking string", column: schema.Column{Type: "varchar(10)", Default: str("007")}, expression: "'007'"},
		{name: "escaped quote", column: schema.Column{Type: "text", Default: str("it's")}, expression: "'it''s'"},
		{name: "already quoted", column: schema.Column{Type: "varchar(10)", Default: str("'quoted'")}, expression: "'quoted'"},
		{name: "integer", column: schema.Column{Type: "int", Default: str("0")}, expression: "0"},
		{name: "unsigned integer", column: schema.Column{Type: "bigint unsigned", Default: str("7")}, expression: "7"},
		{name: "decimal", column: schema.Column{Type: "decimal(5,2)", Default: str("1.25")}, expression: "1.25"},
		{name: "bit", column: schema.Column{Type: "bit(1)", Default: str("b'1'")}, expression: "b'1'"},
		{name: "null", column: schema.Column{Type: "int", Default: str("NULL")}, expression: "NULL"},
		{name: "timestamp", column: schema.Column{Type: "timestamp", Default: str("CURRENT_TIMESTAMP")}, expression: "CURRENT_TIMESTAMP"},
		{
			name:       "generated timestamp",
			column:     schema.Column{Type: "datetime(3)", Default: str("current_timestamp(3)"), DefaultIsExpression: true},
			expression: "current_timestamp(3)",
		},
		{
			name:       "generated expression",
			column:     schema.Column{Type: "varchar(36)", Default: str("uuid()"), DefaultIsExpression: true},
			expression: "(uuid())",
		},
		{
			name:       "timestamp text in a string column",
			column:     schema.Column{Type: "varchar(20)", Default: str("CURRENT_TIMESTAMP")},
			expression: "'CURRENT_TIMESTAMP'",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			c := tc.column
			assert.Equal(t, tc.expression, defaultExpression(&c))
		})
	}
}

func TestDialect_IntrospectTable(t *testing.T) {
	d := New()

	q := &fakeQuerier{rows: []columnRow{
		{Name: "id", Type: "bigint unsigned", IsNullable: "NO", Key: "PRI", Extra: "auto_increment"},
		{Name: "name", Type: "varchar(50)", IsNullable: "NO", Default: sql.NullString{String: "John", Valid: true}},
		{Name: "bio", Type: "text", IsNullable: "YES", Key: "MUL"},
		{Name: "uid", Type: "varchar(36)", IsNullable: "YES", Default: sql.NullString{String: "uuid()", Valid: true}, Extra: "DEFAULT_GENERATED"},
	}}

	table, err := d.IntrospectTable(context.Background(), q, "people")
	require.NoError(t, err)
	require.Len(t, table.Columns, 4)

	id, _ := table.Column("id")
	assert.True(t, id.PrimaryKey)
	assert.True(t, id.AutoIncrement)
	assert.True(t, id.NotNull)

	name, _ := table.Column("name")
	require.NotNil(t, name.Default)
	assert.Equal(t, "John", *name.Default)
	assert.False(t, name.PrimaryKey)

	bio, _ := table.Column("bio")
	assert.False(t, bio.NotNull)
	assert.Nil(t, bio.Default)
	assert.False(t, name.DefaultIsExpression)

	uid, _ := table.Column("uid")
	assert.True(t, uid.DefaultIsExpression)

	_, err = d.IntrospectTable(context.Background(), &fakeQuerier{}, "ghosts")
	assert.True(t, errors.Is(err, schema.ErrTableNotFound))

	query, args := d.StorageExistsQuery("people")
	assert.Contains(t, query, "information_schema.tables")
	assert.Equal(t, []interface{}{"people"}, args)
}
