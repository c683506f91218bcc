package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/denismitr/shale/schema"
	"github.com/pkg/errors"
)

const (
	columnsQuery = `SELECT column_name, data_type, column_default, is_nullable
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = ?
		ORDER BY ordinal_position`

	primaryKeyQuery = `SELECT a.attname
		FROM pg_index i
		JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		WHERE i.indrelid = ?::regclass AND i.indisprimary`

	storageExistsQuery = `SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = ?`
)

type columnRow struct {
	Name       string         `db:"column_name"`
	DataType   string         `db:"data_type"`
	Default    sql.NullString `db:"column_default"`
	IsNullable string         `db:"is_nullable"`
}

type keyRow struct {
	Name string `db:"attname"`
}

func (d *Dialect) IntrospectTable(ctx context.Context, q schema.Querier, name string) (*schema.Table, error) {
	var rows []columnRow
	if err := q.Select(ctx, &rows, columnsQuery, name); err != nil {
		return nil, errors.Wrapf(err, "could not read columns of table [%s]", name)
	}

	if len(rows) == 0 {
		return nil, errors.Wrapf(schema.ErrTableNotFound, "table [%s]", name)
	}

	var keys []keyRow
	if err := q.Select(ctx, &keys, primaryKeyQuery, d.QuoteName(name)); err != nil {
		return nil, errors.Wrapf(err, "could not read primary key of table [%s]", name)
	}

	pk := make(map[string]bool, len(keys))
	for _, k := range keys {
		pk[k.Name] = true
	}

	table := &schema.Table{Name: name}
	for _, r := range rows {
		c := &schema.Column{
			Name:       r.Name,
			Type:       r.DataType,
			NotNull:    r.IsNullable == "NO",
			PrimaryKey: pk[r.Name],
		}

		if r.Default.Valid {
			v := r.Default.String
			c.Default = &v
			c.AutoIncrement = strings.HasPrefix(v, "nextval(")
		}

		table.Columns = append(table.Columns, c)
	}

	return table, nil
}

func (d *Dialect) StorageExistsQuery(name string) (string, []interface{}) {
	return storageExistsQuery, []interface{}{name}
}
