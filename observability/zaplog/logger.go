// Package zaplog adapts go.uber.org/zap to the core.Logger interface.
package zaplog

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Swind/go-async-task/core"
)

// DefaultName is the logger name attached by Wrap.
const DefaultName = "asynctask"

// Logger implements core.Logger on a sugared zap logger.
type Logger struct {
	s *zap.SugaredLogger
}

var _ core.Logger = (*Logger)(nil)

// New builds a zap logger at the given level ("debug", "info", "warn", "error").
// development selects zap's console encoder and development defaults.
func New(level string, development bool) (*Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}
	return Wrap(l), nil
}

// Wrap adapts an existing zap logger.
func Wrap(l *zap.Logger) *Logger {
	return &Logger{s: l.Sugar().Named(DefaultName)}
}

// Named returns a child logger with name appended, e.g. the pool name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{s: l.s.Named(name)}
}

func (l *Logger) Debug(msg string, fields ...core.Field) {
	l.s.Debugw(msg, keysAndValues(fields)...)
}

func (l *Logger) Info(msg string, fields ...core.Field) {
	l.s.Infow(msg, keysAndValues(fields)...)
}

func (l *Logger) Warn(msg string, fields ...core.Field) {
	l.s.Warnw(msg, keysAndValues(fields)...)
}

func (l *Logger) Error(msg string, fields ...core.Field) {
	l.s.Errorw(msg, keysAndValues(fields)...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.s.Sync()
}

func keysAndValues(fields []core.Field) []any {
	if len(fields) == 0 {
		return nil
	}
	kv := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		kv = append(kv, f.Key, f.Value)
	}
	return kv
}
