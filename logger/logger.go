package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a structured key/value attached to a log line.
type Field = zap.Field

// Field constructors re-exported so callers don't import zap directly.
var (
	String  = zap.String
	Float64 = zap.Float64
	Int     = zap.Int
	Bool    = zap.Bool
	Err     = zap.Error
)

// Logger is a thin wrapper around zap.SugaredLogger that provides the
// three log levels we need throughout the codebase.
type Logger interface {
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// zapLogger implements Logger using a SugaredLogger internally.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l *zapLogger) Info(msg string, fields ...Field) {
	l.sugar.Infow(msg, zapFieldsToArgs(fields)...)
}
func (l *zapLogger) Warn(msg string, fields ...Field) {
	l.sugar.Warnw(msg, zapFieldsToArgs(fields)...)
}
func (l *zapLogger) Error(msg string, fields ...Field) {
	l.sugar.Errorw(msg, zapFieldsToArgs(fields)...)
}

// NewZapLogger creates a production‑ready logger (JSON encoding, level INFO).
func NewZapLogger() (Logger, error) {
	return NewZapLoggerWithLevel("info")
}

// NewZapLoggerWithLevel is NewZapLogger with a configurable minimum level
// ("debug", "info", "warn", "error"). Unknown levels fall back to info.
func NewZapLoggerWithLevel(level string) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapLogger{sugar: z.Sugar()}, nil
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &zapLogger{sugar: zap.NewNop().Sugar()}
}

// Helper – converts zap.Field slice to key/value pairs for SugaredLogger.
// Fields are passed through as-is so zap encodes them with their own type.
func zapFieldsToArgs(fields []Field) []interface{} {
	out := make([]interface{}, 0, len(fields))
	for _, f := range fields {
		out = append(out, f)
	}
	return out
}
