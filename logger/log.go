// Package logger prints migration status lines and, optionally, the SQL being run.
package logger

import (
	"bytes"
	"fmt"

	"github.com/logrusorgru/aurora/v3"
)

type Printer interface {
	Output(calldepth int, s string) error
}

type Logger interface {
	Successf(format string, args ...interface{})
	// Infof prints migration status lines as they are, without a prefix.
	Infof(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Error(err error)
	SQL(query string, args ...interface{})
}

type ColoredLogger struct {
	printer Printer
	debug   bool
	sql     bool
}

type BWLogger struct {
	printer Printer
	debug   bool
	sql     bool
}

var _ Logger = (*ColoredLogger)(nil)
var _ Logger = (*BWLogger)(nil)

func NewColorLogger(p Printer, sql, debug bool) *ColoredLogger {
	return &ColoredLogger{
		printer: p,
		debug:   debug,
		sql:     sql,
	}
}

func NewBWLogger(p Printer, sql, debug bool) *BWLogger {
	return &BWLogger{
		printer: p,
		debug:   debug,
		sql:     sql,
	}
}

func (cl *ColoredLogger) Infof(format string, args ...interface{}) {
	_ = cl.printer.Output(2, aurora.Cyan(fmt.Sprintf(format, args...)).String())
}

func (cl *ColoredLogger) Debugf(format string, args ...interface{}) {
	if cl.debug {
		msg := fmt.Sprintf("shale debug: "+format, args...)
		_ = cl.printer.Output(2, aurora.Yellow(msg).String())
	}
}

func (cl *ColoredLogger) Successf(format string, args ...interface{}) {
	msg := fmt.Sprintf("shale: "+format, args...)
	_ = cl.printer.Output(2, aurora.Green(msg).String())
}

func (cl *ColoredLogger) Error(err error) {
	msg := fmt.Sprintf("shale error: %s", err.Error())
	_ = cl.printer.Output(2, aurora.Red(msg).String())
}

func (cl *ColoredLogger) SQL(query string, args ...interface{}) {
	if cl.sql {
		_ = cl.printer.Output(2, aurora.Gray(15, formatSQL(query, args)).String())
	}
}

func (bwl *BWLogger) Infof(format string, args ...interface{}) {
	_ = bwl.printer.Output(2, fmt.Sprintf(format, args...))
}

func (bwl *BWLogger) Debugf(format string, args ...interface{}) {
	if bwl.debug {
		_ = bwl.printer.Output(2, fmt.Sprintf("shale debug: "+format, args...))
	}
}

func (bwl *BWLogger) Successf(format string, args ...interface{}) {
	_ = bwl.printer.Output(2, fmt.Sprintf("shale: "+format, args...))
}

func (bwl *BWLogger) Error(err error) {
	_ = bwl.printer.Output(2, fmt.Sprintf("shale error: %s", err.Error()))
}

func (bwl *BWLogger) SQL(query string, args ...interface{}) {
	if bwl.sql {
		_ = bwl.printer.Output(2, formatSQL(query, args))
	}
}

func formatSQL(query string, args []interface{}) string {
	var buf bytes.Buffer
	buf.WriteString("shale running sql: ")
	buf.WriteString(query)

	if len(args) == 0 {
		return buf.String()
	}

	buf.WriteString("\nquery parameters: ")
	for i := range args {
		if i+1 < len(args) {
			buf.WriteString(fmt.Sprintf("{%#v}, ", args[i]))
		} else {
			buf.WriteString(fmt.Sprintf("{%#v}", args[i]))
		}
	}

	return buf.String()
}
