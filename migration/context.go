package migration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/denismitr/shale/ddl"
	"github.com/denismitr/shale/logger"
	"github.com/denismitr/shale/schema"
)

// Context is what an action body sees: statement execution, table builders
// and status output bound to the migration being performed.
type Context interface {
	Execute(ctx context.Context, query string, args ...interface{}) error
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error

	CreateTable(ctx context.Context, name string, body func(tc *ddl.TableCreator), opts ...schema.TableOption) error
	ModifyTable(ctx context.Context, name string, body func(tm *ddl.TableModifier)) error
	DropTable(ctx context.Context, name string) error

	Say(msg string)
	SayWithTime(msg string, fn func() error) error

	Dialect() schema.Dialect
}

// StatementError carries the failed statement. It matches ErrStatementExecutionFailed
// and unwraps to the driver error.
type StatementError struct {
	Query string
	Err   error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("%s: [%s]: %v", ErrStatementExecutionFailed, e.Query, e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

func (e *StatementError) Is(target error) bool {
	return target == ErrStatementExecutionFailed
}

const (
	sayIndent         = 4
	sayWithTimeIndent = 2
)

type actionContext struct {
	m       *Migration
	adapter Adapter
	lg      logger.Logger
}

var _ Context = (*actionContext)(nil)

func newActionContext(m *Migration, a Adapter, lg logger.Logger) *actionContext {
	return &actionContext{m: m, adapter: a, lg: lg}
}

func (c *actionContext) Dialect() schema.Dialect {
	return c.adapter.Dialect()
}

func (c *actionContext) Execute(ctx context.Context, query string, args ...interface{}) error {
	return c.SayWithTime(query, func() error {
		if err := c.adapter.Exec(ctx, query, args...); err != nil {
			return &StatementError{Query: query, Err: err}
		}

		return nil
	})
}

func (c *actionContext) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return c.SayWithTime(query, func() error {
		if err := c.adapter.Select(ctx, dest, query, args...); err != nil {
			return &StatementError{Query: query, Err: err}
		}

		return nil
	})
}

func (c *actionContext) CreateTable(
	ctx context.Context,
	name string,
	body func(tc *ddl.TableCreator),
	opts ...schema.TableOption,
) error {
	query, err := ddl.NewTableCreator(c.Dialect(), name, body, opts...).SQL()
	if err != nil {
		return err
	}

	return c.Execute(ctx, query)
}

// ModifyTable reads the state it needs for every alteration first and then
// executes the statements in call order.
func (c *actionContext) ModifyTable(ctx context.Context, name string, body func(tm *ddl.TableModifier)) error {
	statements, err := ddl.NewTableModifier(c.Dialect(), name, body).Statements(ctx, c.adapter)
	if err != nil {
		return err
	}

	for _, stmt := range statements {
		if err := c.Execute(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}

func (c *actionContext) DropTable(ctx context.Context, name string) error {
	return c.Execute(ctx, "DROP TABLE "+c.Dialect().QuoteName(name))
}

func (c *actionContext) Say(msg string) {
	c.m.say(c.lg, msg, sayIndent)
}

// SayWithTime reports msg, runs fn and reports how long it took.
func (c *actionContext) SayWithTime(msg string, fn func() error) error {
	c.m.say(c.lg, msg, sayWithTimeIndent)

	start := time.Now()
	err := fn()
	c.m.say(c.lg, fmt.Sprintf("-> %.4fs", time.Since(start).Seconds()), sayWithTimeIndent)

	return err
}

func (m *Migration) say(lg logger.Logger, msg string, indent int) {
	m.write(lg, strings.Repeat(" ", indent)+msg)
}

func (m *Migration) write(lg logger.Logger, msg string) {
	if m.verbose && lg != nil {
		lg.Infof("%s", msg)
	}
}
