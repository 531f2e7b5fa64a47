package logging

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ILogger is the narrow capability the order and strategy packages depend on.
type ILogger interface {
	Info(ctx context.Context, msg string, fields ...zap.Field)
	Warn(ctx context.Context, msg string, fields ...zap.Field)
	Error(ctx context.Context, msg string, fields ...zap.Field)
	// LogError records a failure together with the operation context it happened in.
	LogError(ctx context.Context, err error, op string, fields ...zap.Field)
}

// Logger wraps zap.Logger with context support
type Logger struct {
	logger *zap.Logger
}

// LogLevel defines the logging level
type LogLevel zapcore.Level

const (
	DEBUG LogLevel = LogLevel(zapcore.DebugLevel)
	INFO  LogLevel = LogLevel(zapcore.InfoLevel)
	WARN  LogLevel = LogLevel(zapcore.WarnLevel)
	ERROR LogLevel = LogLevel(zapcore.ErrorLevel)
	FATAL LogLevel = LogLevel(zapcore.FatalLevel)
)

// ParseLevel maps a config string to a level, defaulting to INFO.
func ParseLevel(s string) LogLevel {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return INFO
	}
	return LogLevel(lvl)
}

type contextKey string

const requestIDKey contextKey = "request_id"

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// NewLogger creates a JSON logger writing to stderr.
func NewLogger(level LogLevel) *Logger {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.Level(level))
	config.EncoderConfig = encoderConfig()
	logger, _ := config.Build()
	return &Logger{logger: logger}
}

// NewLoggerWithFile tees JSON entries to stderr and to an append-only file.
func NewLoggerWithFile(level LogLevel, path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	enabler := zap.NewAtomicLevelAt(zapcore.Level(level))
	enc := zapcore.NewJSONEncoder(encoderConfig())
	core := zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.Lock(os.Stderr), enabler),
		zapcore.NewCore(enc, zapcore.AddSync(f), enabler),
	)
	return &Logger{logger: zap.New(core)}, nil
}

// NewFromZap wraps an existing zap logger, e.g. an observer core in tests.
func NewFromZap(l *zap.Logger) *Logger {
	return &Logger{logger: l}
}

func NewNopLogger() *Logger {
	return &Logger{logger: zap.NewNop()}
}

// Zap exposes the underlying logger, e.g. to install it as the global one.
func (l *Logger) Zap() *zap.Logger { return l.logger }

// WithRequestID adds request_id to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the request_id stored in ctx, if any.
func RequestID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	reqID, ok := ctx.Value(requestIDKey).(string)
	return reqID, ok
}

// logMessage logs a message with the specified level and context
func (l *Logger) logMessage(ctx context.Context, level LogLevel, msg string, fields ...zap.Field) {
	if reqID, ok := RequestID(ctx); ok {
		fields = append(fields, zap.String("request_id", reqID))
	}
	switch level {
	case DEBUG:
		l.logger.Debug(msg, fields...)
	case INFO:
		l.logger.Info(msg, fields...)
	case WARN:
		l.logger.Warn(msg, fields...)
	case ERROR:
		l.logger.Error(msg, fields...)
	case FATAL:
		l.logger.Fatal(msg, fields...)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	l.logMessage(ctx, DEBUG, msg, fields...)
}

// Info logs an info message
func (l *Logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	l.logMessage(ctx, INFO, msg, fields...)
}

// Warn logs a warning message
func (l *Logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	l.logMessage(ctx, WARN, msg, fields...)
}

// Error logs an error message
func (l *Logger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	l.logMessage(ctx, ERROR, msg, fields...)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(ctx context.Context, msg string, fields ...zap.Field) {
	l.logMessage(ctx, FATAL, msg, fields...)
}

func (l *Logger) LogError(ctx context.Context, err error, op string, fields ...zap.Field) {
	fields = append(fields, zap.String("op", op), zap.Error(err))
	l.logMessage(ctx, ERROR, "operation failed", fields...)
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.logger.Sync()
}
