package database

import (
	"context"
	"time"

	"github.com/denismitr/shale/internal/retry"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const (
	DefaultConnectionAttempts    = 100
	DefaultConnectionTimeout     = 60 * time.Second
	DefaultConnectionAttemptStep = 2 * time.Second
)

type ConnectOptions struct {
	MaxAttempts int
	MaxTimeout  time.Duration
	RetryStep   time.Duration
}

func NewDefaultConnectOptions() *ConnectOptions {
	return &ConnectOptions{
		MaxAttempts: DefaultConnectionAttempts,
		MaxTimeout:  DefaultConnectionTimeout,
		RetryStep:   DefaultConnectionAttemptStep,
	}
}

// Connector hands out the single connection a repository works on. Session level
// locks and transactions only hold when every statement goes through the same connection.
type Connector interface {
	Connect(ctx context.Context) (*sqlx.Conn, error)
	Timeout() time.Duration
	Close() error
}

type RetryingConnector struct {
	options *ConnectOptions
	db      *sqlx.DB
	conn    *sqlx.Conn
}

var _ Connector = (*RetryingConnector)(nil)

func NewRetryingConnector(db *sqlx.DB, options *ConnectOptions) *RetryingConnector {
	if options == nil {
		options = NewDefaultConnectOptions()
	}

	return &RetryingConnector{db: db, options: options}
}

func (c *RetryingConnector) Timeout() time.Duration {
	return c.options.MaxTimeout
}

func (c *RetryingConnector) Connect(ctx context.Context) (*sqlx.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}

	conn, err := retry.Incremental(ctx, c.options.RetryStep, c.options.MaxAttempts, func(attempt int) (*sqlx.Conn, error) {
		conn, err := c.db.Connx(ctx)
		if err != nil {
			return nil, retry.Error(errors.Wrap(err, "could not establish DB connection"), attempt)
		}

		if err := conn.PingContext(ctx); err != nil {
			_ = conn.Close()
			return nil, retry.Error(errors.Wrap(err, "db ping failed"), attempt)
		}

		return conn, nil
	})

	if err != nil {
		return nil, err
	}

	c.conn = conn

	return conn, nil
}

func (c *RetryingConnector) Close() error {
	if c.conn == nil {
		return nil
	}

	if err := c.conn.Close(); err != nil {
		return errors.Wrap(err, "retrying connector could not close the connection")
	}

	c.conn = nil

	return nil
}
