package logger

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestBWLogger(t *testing.T) {
	t.Run("status lines are printed verbatim", func(t *testing.T) {
		var buf bytes.Buffer
		lg := NewBWLogger(log.New(&buf, "", 0), false, false)

		lg.Infof("== Performing Up Migration #%d: %s", 1, "create_people")
		lg.Successf("migrated %d", 2)
		lg.Error(errors.New("boom"))

		assert.Equal(t, "== Performing Up Migration #1: create_people\nshale: migrated 2\nshale error: boom\n", buf.String())
	})

	t.Run("sql and debug are off by default", func(t *testing.T) {
		var buf bytes.Buffer
		lg := NewBWLogger(log.New(&buf, "", 0), false, false)

		lg.SQL("SELECT 1")
		lg.Debugf("hidden")

		assert.Empty(t, buf.String())
	})

	t.Run("sql with parameters", func(t *testing.T) {
		var buf bytes.Buffer
		lg := NewBWLogger(log.New(&buf, "", 0), true, true)

		lg.SQL("DELETE FROM migration_info WHERE migration_name = ?", "create_people", 5)
		lg.Debugf("visible %s", "now")

		assert.Equal(t,
			"shale running sql: DELETE FROM migration_info WHERE migration_name = ?\n"+
				"query parameters: {\"create_people\"}, {5}\nshale debug: visible now\n",
			buf.String())
	})
}

func TestColoredLogger(t *testing.T) {
	var buf bytes.Buffer
	lg := NewColorLogger(log.New(&buf, "", 0), true, false)

	lg.Infof("    %s", "say")
	lg.SQL("SELECT 1")
	lg.Debugf("hidden")

	out := buf.String()
	assert.Contains(t, out, "    say")
	assert.Contains(t, out, "shale running sql: SELECT 1")
	assert.NotContains(t, out, "hidden")
}

func TestNullLogger(t *testing.T) {
	var lg Logger = NullLogger{}
	assert.NotPanics(t, func() {
		lg.Infof("x")
		lg.Successf("x")
		lg.Debugf("x")
		lg.SQL("x")
		lg.Error(errors.New("x"))
	})
}
