package ftdc

import "go.uber.org/zap"

// Logger is the narrow logging capability the core depends on. Schema
// drift is logged through it at varying depths as a side channel only:
// logging verbosity never changes a SchemaChanged outcome, only how much
// gets said about why one happened.
type Logger interface {
	Debugw(msg string, keysAndValues ...any)
}

// NewLogger returns a Logger backed by a production zap configuration,
// named for the component doing the logging.
func NewLogger(name string) Logger {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	return l.Sugar().Named(name)
}

// NopLogger returns a Logger that discards everything. It is the default
// for a Compressor or Decompressor constructed without WithLogger.
func NopLogger() Logger {
	return zap.NewNop().Sugar()
}
