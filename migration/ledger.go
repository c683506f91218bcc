package migration

import (
	"context"
	"fmt"

	"github.com/denismitr/shale/ddl"
	"github.com/denismitr/shale/schema"
	"github.com/pkg/errors"
)

const (
	LedgerTable  = "migration_info"
	LedgerColumn = "migration_name"
	ledgerSize   = 255
)

// Ledger records which migrations have been applied, one row per migration name.
type Ledger struct {
	adapter Adapter
	dialect schema.Dialect
}

func NewLedger(a Adapter) *Ledger {
	return &Ledger{adapter: a, dialect: a.Dialect()}
}

func (l *Ledger) table() string {
	return l.dialect.QuoteName(LedgerTable)
}

func (l *Ledger) column() string {
	return l.dialect.QuoteColumnName(LedgerColumn)
}

// qualifiedColumn is table.column. An unqualified double quoted name that does not
// resolve reads as a string literal on SQLite, a qualified one is always an error.
func (l *Ledger) qualifiedColumn() string {
	return l.table() + "." + l.column()
}

func (l *Ledger) Exists(ctx context.Context) (bool, error) {
	exists, err := l.adapter.StorageExists(ctx, LedgerTable)
	if err != nil {
		return false, errors.Wrapf(err, "could not check if [%s] exists", LedgerTable)
	}

	return exists, nil
}

// CreateSQL renders the statement creating the ledger table.
func (l *Ledger) CreateSQL() (string, error) {
	return ddl.NewTableCreator(l.dialect, LedgerTable, func(tc *ddl.TableCreator) {
		tc.Column(LedgerColumn, schema.String, schema.Size(ledgerSize), schema.Unique())
	}).SQL()
}

func (l *Ledger) ensureTable(ctx context.Context) error {
	exists, err := l.Exists(ctx)
	if err != nil || exists {
		return err
	}

	query, err := l.CreateSQL()
	if err != nil {
		return errors.Wrap(err, "could not build the ledger table")
	}

	if err := l.adapter.Exec(ctx, query); err != nil {
		return errors.Wrapf(err, "could not create [%s]", LedgerTable)
	}

	return nil
}

// Has reports whether name is recorded. An absent table means nothing is recorded.
// A failing read falls back to absent only when the table vanished meanwhile, a table
// without the name column is ErrLedgerInconsistent on every dialect.
func (l *Ledger) Has(ctx context.Context, name string) (bool, error) {
	exists, err := l.Exists(ctx)
	if err != nil || !exists {
		return false, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", l.qualifiedColumn(), l.table(), l.qualifiedColumn())

	var names []string
	if err := l.adapter.Select(ctx, &names, query, name); err != nil {
		if stillExists, existsErr := l.Exists(ctx); existsErr == nil && !stillExists {
			return false, nil
		}

		return false, errors.Wrapf(ErrLedgerInconsistent, "could not read record [%s]: %v", name, err)
	}

	return len(names) > 0, nil
}

// Insert records name, creating the ledger table first if needed.
func (l *Ledger) Insert(ctx context.Context, name string) error {
	if err := l.ensureTable(ctx); err != nil {
		return err
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?)", l.table(), l.column())
	if err := l.adapter.Exec(ctx, query, name); err != nil {
		return errors.Wrapf(err, "could not record migration [%s]", name)
	}

	return nil
}

func (l *Ledger) Remove(ctx context.Context, name string) error {
	exists, err := l.Exists(ctx)
	if err != nil || !exists {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", l.table(), l.qualifiedColumn())
	if err := l.adapter.Exec(ctx, query, name); err != nil {
		return errors.Wrapf(err, "could not remove record of migration [%s]", name)
	}

	return nil
}

// Names lists every recorded migration name, nil when the table is absent.
func (l *Ledger) Names(ctx context.Context) ([]string, error) {
	exists, err := l.Exists(ctx)
	if err != nil || !exists {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", l.qualifiedColumn(), l.table(), l.qualifiedColumn())

	var names []string
	if err := l.adapter.Select(ctx, &names, query); err != nil {
		return nil, errors.Wrapf(ErrLedgerInconsistent, "could not read records: %v", err)
	}

	return names, nil
}
