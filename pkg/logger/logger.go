// Package logger wraps zap with the field-helper API used throughout the
// pipeline (Field, ErrorField, StringField, IntField, and *Context
// variants that thread a context.Context through for future trace
// correlation).
package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger used across the pipeline.
type Logger struct {
	z *zap.Logger
}

// New builds a Logger for the given level ("debug", "info", "warn",
// "error") and encoding ("json" or "console").
func New(level string, encoding string) (*Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if encoding == "" {
		cfg.Encoding = "json"
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{z: z}, nil
}

// Field builds an arbitrary structured field.
func Field(key string, value interface{}) zap.Field {
	return zap.Any(key, value)
}

// ErrorField wraps an error as a structured field.
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

// StringField builds a string field.
func StringField(key, value string) zap.Field {
	return zap.String(key, value)
}

// IntField builds an int field.
func IntField(key string, value int) zap.Field {
	return zap.Int(key, value)
}

// Float64Field builds a float64 field.
func Float64Field(key string, value float64) zap.Field {
	return zap.Float64(key, value)
}

// BoolField builds a bool field.
func BoolField(key string, value bool) zap.Field {
	return zap.Bool(key, value)
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.z.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.z.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...zap.Field) { l.z.Fatal(msg, fields...) }

// DebugContext, InfoContext, WarnContext, ErrorContext accept a context
// so call sites that carry one can pass it through uniformly; the plain
// zap logger has no per-request context binding today, so ctx is
// currently unused beyond call-site symmetry with the *Context family.
func (l *Logger) DebugContext(_ context.Context, msg string, fields ...zap.Field) {
	l.z.Debug(msg, fields...)
}

func (l *Logger) InfoContext(_ context.Context, msg string, fields ...zap.Field) {
	l.z.Info(msg, fields...)
}

func (l *Logger) WarnContext(_ context.Context, msg string, fields ...zap.Field) {
	l.z.Warn(msg, fields...)
}

func (l *Logger) ErrorContext(_ context.Context, msg string, fields ...zap.Field) {
	l.z.Error(msg, fields...)
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}
