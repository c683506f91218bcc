package migration

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

var errNoDialect = errors.New("adapter has no dialect")

// NeedsUp is true while the migration is not recorded in the ledger.
func (m *Migration) NeedsUp(ctx context.Context, a Adapter) (bool, error) {
	if isSchemaless(a) {
		return false, nil
	}

	if a.Dialect() == nil {
		return false, errNoDialect
	}

	has, err := NewLedger(a).Has(ctx, m.name)
	if err != nil {
		return false, err
	}

	return !has, nil
}

// NeedsDown is true when the migration is recorded in the ledger.
func (m *Migration) NeedsDown(ctx context.Context, a Adapter) (bool, error) {
	if isSchemaless(a) {
		return false, nil
	}

	if a.Dialect() == nil {
		return false, errNoDialect
	}

	return NewLedger(a).Has(ctx, m.name)
}

// PerformUp applies the migration unless the ledger already has it. The ledger is
// written only after the up action succeeded, in the same transaction when the
// dialect can roll schema changes back.
func (m *Migration) PerformUp(ctx context.Context, t Target) (Result, error) {
	needed, err := m.NeedsUp(ctx, t.Adapter)
	if err != nil || !needed {
		return Skipped, err
	}

	m.write(t.Logger, fmt.Sprintf("== Performing Up Migration #%d: %s", m.position, m.name))

	if err := m.perform(ctx, t, m.up, func(l *Ledger) error { return l.Insert(ctx, m.name) }); err != nil {
		return Skipped, errors.Wrapf(err, "up migration #%d %s failed", m.position, m.name)
	}

	return Performed, nil
}

// PerformDown reverts the migration if the ledger has it and removes the record.
func (m *Migration) PerformDown(ctx context.Context, t Target) (Result, error) {
	needed, err := m.NeedsDown(ctx, t.Adapter)
	if err != nil || !needed {
		return Skipped, err
	}

	m.write(t.Logger, fmt.Sprintf("== Performing Down Migration #%d: %s", m.position, m.name))

	if err := m.perform(ctx, t, m.down, func(l *Ledger) error { return l.Remove(ctx, m.name) }); err != nil {
		return Skipped, errors.Wrapf(err, "down migration #%d %s failed", m.position, m.name)
	}

	return Performed, nil
}

func (m *Migration) perform(ctx context.Context, t Target, action Action, record func(l *Ledger) error) error {
	run := func(a Adapter) error {
		if action != nil {
			if err := action(ctx, newActionContext(m, a, t.Logger)); err != nil {
				return err
			}
		}

		return record(NewLedger(a))
	}

	if tx, ok := t.Adapter.(Transactor); ok && t.Adapter.Dialect().SupportsSchemaTransactions() {
		return tx.Transaction(ctx, run)
	}

	return run(t.Adapter)
}
