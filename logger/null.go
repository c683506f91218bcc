package logger

// NullLogger discards everything, it is the default when no logger is configured.
type NullLogger struct{}

var _ Logger = (*NullLogger)(nil)

func (NullLogger) Successf(_ string, _ ...interface{}) {}

func (NullLogger) Infof(_ string, _ ...interface{}) {}

func (NullLogger) Debugf(_ string, _ ...interface{}) {}

func (NullLogger) SQL(_ string, _ ...interface{}) {}

func (NullLogger) Error(_ error) {}
