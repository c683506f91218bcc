// Package migration holds a single named, positioned schema change, its ledger
// and the mini-language its actions are written in.
package migration

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrStatementExecutionFailed = errors.New("statement execution failed")
	ErrLedgerInconsistent       = errors.New("migration ledger is inconsistent")
)

// DefaultRepository names the database connection migrations run against
// unless WithRepository says otherwise.
var DefaultRepository = "default"

type (
	// Action is the body of an up or down migration.
	Action func(ctx context.Context, c Context) error

	Option func(*Migration)

	Migration struct {
		position   int
		name       string
		repository string
		verbose    bool
		up         Action
		down       Action
	}

	// Actions registers the up and down bodies of a migration under construction.
	Actions struct {
		m *Migration
	}

	Result int
)

const (
	Skipped Result = iota
	Performed
)

func (r Result) String() string {
	if r == Performed {
		return "performed"
	}

	return "skipped"
}

func (a *Actions) Up(fn Action) {
	a.m.up = fn
}

func (a *Actions) Down(fn Action) {
	a.m.down = fn
}

func WithRepository(name string) Option {
	return func(m *Migration) {
		m.repository = name
	}
}

func WithVerbose(verbose bool) Option {
	return func(m *Migration) {
		m.verbose = verbose
	}
}

// New builds a migration. body may register an up and a down action,
// an action left unset does nothing but still updates the ledger.
func New(position int, name string, body func(a *Actions), opts ...Option) *Migration {
	m := &Migration{
		position:   position,
		name:       name,
		repository: DefaultRepository,
		verbose:    true,
	}

	for _, o := range opts {
		o(m)
	}

	if body != nil {
		body(&Actions{m: m})
	}

	return m
}

func (m *Migration) Position() int {
	return m.position
}

func (m *Migration) Name() string {
	return m.name
}

func (m *Migration) Repository() string {
	return m.repository
}

func (m *Migration) Verbose() bool {
	return m.verbose
}

func (m *Migration) HasUp() bool {
	return m.up != nil
}

func (m *Migration) HasDown() bool {
	return m.down != nil
}

func (m *Migration) String() string {
	return fmt.Sprintf("#%d %s", m.position, m.name)
}

// Compare orders by position and then by name.
func Compare(a, b *Migration) int {
	switch {
	case a.position < b.position:
		return -1
	case a.position > b.position:
		return 1
	}

	return strings.Compare(a.name, b.name)
}

type Migrations []*Migration

func (ms Migrations) Len() int {
	return len(ms)
}

func (ms Migrations) Less(i, j int) bool {
	return Compare(ms[i], ms[j]) < 0
}

func (ms Migrations) Swap(i, j int) {
	ms[i], ms[j] = ms[j], ms[i]
}

func (ms Migrations) Names() []string {
	names := make([]string, len(ms))
	for i := range ms {
		names[i] = ms[i].name
	}

	return names
}
