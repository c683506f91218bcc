package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/denismitr/shale/schema"
	"github.com/pkg/errors"
)

const storageExistsQuery = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`

type columnInfo struct {
	CID       int            `db:"cid"`
	Name      string         `db:"name"`
	Type      string         `db:"type"`
	NotNull   int            `db:"notnull"`
	DfltValue sql.NullString `db:"dflt_value"`
	PK        int            `db:"pk"`
}

func (d *Dialect) IntrospectTable(ctx context.Context, q schema.Querier, name string) (*schema.Table, error) {
	var rows []columnInfo
	if err := q.Select(ctx, &rows, "PRAGMA table_info("+d.QuoteName(name)+")"); err != nil {
		return nil, errors.Wrapf(err, "could not read columns of table [%s]", name)
	}

	if len(rows) == 0 {
		return nil, errors.Wrapf(schema.ErrTableNotFound, "table [%s]", name)
	}

	table := &schema.Table{Name: name}
	for _, r := range rows {
		c := &schema.Column{
			Name:          r.Name,
			Type:          r.Type,
			NotNull:       r.NotNull != 0,
			PrimaryKey:    r.PK > 0,
			AutoIncrement: r.PK > 0 && strings.EqualFold(r.Type, "INTEGER"),
		}

		if r.DfltValue.Valid {
			v := r.DfltValue.String
			c.Default = &v
		}

		table.Columns = append(table.Columns, c)
	}

	return table, nil
}

func (d *Dialect) StorageExistsQuery(name string) (string, []interface{}) {
	return storageExistsQuery, []interface{}{name}
}
