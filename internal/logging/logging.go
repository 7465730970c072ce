// Package logging provides the structured event sink the core packages
// log through. The concrete implementation is zap; everything else in
// this repository depends only on the Sink interface.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a single structured key/value pair attached to an event.
type Field struct {
	Key   string
	Value any
}

// F constructs a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Sink receives structured events from the executor core.
type Sink interface {
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Critical(msg string, fields ...Field)
}

type zapSink struct {
	l *zap.Logger
}

// New builds a zap-backed Sink at the given level. Additional output
// paths (e.g. a per-run log file) are appended to stdout.
func New(level string, extraPaths ...string) (Sink, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = append([]string{"stdout"}, extraPaths...)
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapSink{l: l}, nil
}

func (s *zapSink) Info(msg string, fields ...Field)  { s.l.Info(msg, zapFields(fields)...) }
func (s *zapSink) Warn(msg string, fields ...Field)  { s.l.Warn(msg, zapFields(fields)...) }
func (s *zapSink) Error(msg string, fields ...Field) { s.l.Error(msg, zapFields(fields)...) }

// Critical logs at error level with a severity marker; zap has no
// native level above Error that does not panic or exit.
func (s *zapSink) Critical(msg string, fields ...Field) {
	s.l.Error(msg, append(zapFields(fields), zap.String("severity", "critical"))...)
}

func zapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

type nopSink struct{}

// Nop returns a Sink that discards all events.
func Nop() Sink { return nopSink{} }

func (nopSink) Info(string, ...Field)     {}
func (nopSink) Warn(string, ...Field)     {}
func (nopSink) Error(string, ...Field)    {}
func (nopSink) Critical(string, ...Field) {}
