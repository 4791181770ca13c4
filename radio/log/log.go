// Package log provides the simulator's thin structured-logging wrapper
// around zap. A nil *Logger is valid and discards everything, so components
// never need to check whether a logger was supplied.
package log

import "go.uber.org/zap"

// Logger wraps a *zap.SugaredLogger. The zero value is not usable; use Nop
// or New.
type Logger struct {
	s *zap.SugaredLogger
}

// Nop returns a Logger that discards all output.
func Nop() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

// New wraps an existing zap logger. If z is nil, the returned Logger
// discards output.
func New(z *zap.Logger) *Logger {
	if z == nil {
		return Nop()
	}
	return &Logger{s: z.Sugar()}
}

// orNop returns l if non-nil, otherwise a discarding logger. Every method
// below calls this first so a nil *Logger receiver is always safe.
func (l *Logger) orNop() *zap.SugaredLogger {
	if l == nil || l.s == nil {
		return zap.NewNop().Sugar()
	}
	return l.s
}

// Debugw logs scheduler decisions and other high-volume diagnostics.
func (l *Logger) Debugw(msg string, kv ...interface{}) { l.orNop().Debugw(msg, kv...) }

// Infow logs TTI milestones and lifecycle events.
func (l *Logger) Infow(msg string, kv ...interface{}) { l.orNop().Infow(msg, kv...) }

// Warnw logs recoverable anomalies (e.g. non-positive SE with granted RBGs).
func (l *Logger) Warnw(msg string, kv ...interface{}) { l.orNop().Warnw(msg, kv...) }

// Errorw logs construction errors and invariant violations.
func (l *Logger) Errorw(msg string, kv ...interface{}) { l.orNop().Errorw(msg, kv...) }

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error { return l.orNop().Sync() }
