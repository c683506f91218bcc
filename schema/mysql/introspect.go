package mysql

import (
	"context"
	"database/sql"
	"strings"

	"github.com/denismitr/shale/schema"
	"github.com/pkg/errors"
)

const (
	columnsQuery = `SELECT column_name AS column_name, column_type AS column_type,
			column_default AS column_default, is_nullable AS is_nullable,
			column_key AS column_key, extra AS extra
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`

	storageExistsQuery = `SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name = ?`
)

type columnRow struct {
	Name       string         `db:"column_name"`
	Type       string         `db:"column_type"`
	Default    sql.NullString `db:"column_default"`
	IsNullable string         `db:"is_nullable"`
	Key        string         `db:"column_key"`
	Extra      string         `db:"extra"`
}

func (d *Dialect) IntrospectTable(ctx context.Context, q schema.Querier, name string) (*schema.Table, error) {
	var rows []columnRow
	if err := q.Select(ctx, &rows, columnsQuery, name); err != nil {
		return nil, errors.Wrapf(err, "could not read columns of table [%s]", name)
	}

	if len(rows) == 0 {
		return nil, errors.Wrapf(schema.ErrTableNotFound, "table [%s]", name)
	}

	table := &schema.Table{Name: name}
	for _, r := range rows {
		extra := strings.ToLower(r.Extra)
		c := &schema.Column{
			Name:                r.Name,
			Type:                r.Type,
			NotNull:             r.IsNullable == "NO",
			PrimaryKey:          r.Key == "PRI",
			AutoIncrement:       strings.Contains(extra, "auto_increment"),
			DefaultIsExpression: strings.Contains(extra, "default_generated"),
		}

		if r.Default.Valid {
			v := r.Default.String
			c.Default = &v
		}

		table.Columns = append(table.Columns, c)
	}

	return table, nil
}

func (d *Dialect) StorageExistsQuery(name string) (string, []interface{}) {
	return storageExistsQuery, []interface{}{name}
}
