// Package observability defines shared logging primitives.
package observability

// Logger captures structured logging behaviours shared across layers.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field represents a key/value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

var defaultLogger Logger = noopLogger{}

// SetLogger overrides the global logger used by the system.
func SetLogger(logger Logger) {
	if logger == nil {
		defaultLogger = noopLogger{}
		return
	}
	defaultLogger = logger
}

// Log returns the current global logger instance.
func Log() Logger {
	return defaultLogger
}

// With returns a logger that prepends fields to every entry.
func With(logger Logger, fields ...Field) Logger {
	if logger == nil {
		logger = Log()
	}
	if len(fields) == 0 {
		return logger
	}
	if scoped, ok := logger.(scopedLogger); ok {
		return scopedLogger{base: scoped.base, fields: concat(scoped.fields, fields)}
	}
	return scopedLogger{base: logger, fields: concat(nil, fields)}
}

type scopedLogger struct {
	base   Logger
	fields []Field
}

func (l scopedLogger) Debug(msg string, fields ...Field) {
	l.base.Debug(msg, concat(l.fields, fields)...)
}

func (l scopedLogger) Info(msg string, fields ...Field) {
	l.base.Info(msg, concat(l.fields, fields)...)
}

func (l scopedLogger) Warn(msg string, fields ...Field) {
	l.base.Warn(msg, concat(l.fields, fields)...)
}

func (l scopedLogger) Error(msg string, fields ...Field) {
	l.base.Error(msg, concat(l.fields, fields)...)
}

func concat(head, tail []Field) []Field {
	out := make([]Field, 0, len(head)+len(tail))
	out = append(out, head...)
	return append(out, tail...)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...Field) {}
func (noopLogger) Info(string, ...Field)  {}
func (noopLogger) Warn(string, ...Field)  {}
func (noopLogger) Error(string, ...Field) {}
