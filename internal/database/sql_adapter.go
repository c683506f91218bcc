package database

import (
	"context"
	"database/sql"
	"strings"

	"github.com/denismitr/shale/logger"
	"github.com/denismitr/shale/migration"
	"github.com/denismitr/shale/schema"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var ErrTxDeadlock = errors.New("transaction deadlock occurred")

// executor is what *sqlx.Conn and *sqlx.Tx have in common.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Rebind(query string) string
}

// SQLAdapter runs migrations over one dedicated connection. Queries are written
// with ? placeholders and rebound to the driver's bind type.
type SQLAdapter struct {
	conn    *sqlx.Conn
	ex      executor
	dialect schema.Dialect
	lg      logger.Logger
}

var _ migration.Adapter = (*SQLAdapter)(nil)
var _ migration.Transactor = (*SQLAdapter)(nil)

func NewSQLAdapter(conn *sqlx.Conn, d schema.Dialect, lg logger.Logger) *SQLAdapter {
	if lg == nil {
		lg = logger.NullLogger{}
	}

	return &SQLAdapter{conn: conn, ex: conn, dialect: d, lg: lg}
}

func (a *SQLAdapter) Dialect() schema.Dialect {
	return a.dialect
}

// Conn is the underlying connection, shared with session level lockers.
func (a *SQLAdapter) Conn() *sqlx.Conn {
	return a.conn
}

func (a *SQLAdapter) bind(query string, args []interface{}) string {
	// DDL may legitimately contain ? inside literals, only bound queries are rebound
	if len(args) == 0 {
		return query
	}

	return a.ex.Rebind(query)
}

func (a *SQLAdapter) Exec(ctx context.Context, query string, args ...interface{}) error {
	a.lg.SQL(query, args...)

	if _, err := a.ex.ExecContext(ctx, a.bind(query, args), args...); err != nil {
		return err
	}

	return nil
}

func (a *SQLAdapter) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	a.lg.SQL(query, args...)
	return a.ex.SelectContext(ctx, dest, a.bind(query, args), args...)
}

func (a *SQLAdapter) StorageExists(ctx context.Context, name string) (bool, error) {
	query, args := a.dialect.StorageExistsQuery(name)
	a.lg.SQL(query, args...)

	var count int
	if err := a.ex.GetContext(ctx, &count, a.bind(query, args), args...); err != nil {
		return false, errors.Wrapf(err, "could not check if storage [%s] exists", name)
	}

	return count > 0, nil
}

// Transaction runs fn inside a transaction on the adapter's connection.
// Calls nested inside fn reuse the transaction that is already open.
func (a *SQLAdapter) Transaction(ctx context.Context, fn func(tx migration.Adapter) error) error {
	if _, inTx := a.ex.(*sqlx.Tx); inTx {
		return fn(a)
	}

	txx, err := a.conn.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "could not start transaction")
	}

	txAdapter := &SQLAdapter{conn: a.conn, ex: txx, dialect: a.dialect, lg: a.lg}

	if err := fn(txAdapter); err != nil {
		if isDeadlock(err) {
			err = errors.Wrapf(ErrTxDeadlock, "on callback: %s", err.Error())
		}

		if rbErr := txx.Rollback(); rbErr != nil {
			return errors.Wrap(err, " : ROLLBACK : "+rbErr.Error())
		}

		return err
	}

	if err := txx.Commit(); err != nil {
		if isDeadlock(err) {
			return errors.Wrapf(ErrTxDeadlock, "on commit: %s", err.Error())
		}

		return errors.Wrap(err, "could not commit transaction")
	}

	return nil
}

func isDeadlock(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "deadlock")
}
