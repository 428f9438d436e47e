package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"docstore-gateway/internal/shared/contextkeys"

	"github.com/sirupsen/logrus"
)

// Constants for configuration
const (
	// Log formats
	logFormatJSON = "json"
	logFormatText = "text"

	// Backends
	backendLogrus = "logrus"
	backendZap    = "zap"

	// Environment types
	envProduction = "production"
	envProd       = "prod"

	// Timestamp format
	timestampFormat = "2006-01-02T15:04:05.000Z07:00"
	textTimestamp   = "2006-01-02 15:04:05"
)

// Logger defines the interface for structured logging operations
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Fatal(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	WithFields(fields map[string]interface{}) Logger
	WithContext(ctx context.Context) Logger
	WithComponent(component string) Logger
}

// contextFields lists the context keys lifted into log fields by WithContext.
var contextFields = []struct {
	key  interface{}
	name string
}{
	{contextkeys.RequestIDKey, "request_id"},
	{contextkeys.CollectionKey, "collection"},
	{contextkeys.PartitionKeyKey, "partition_key"},
	{contextkeys.OperationKey, "operation"},
	{contextkeys.ComponentKey, "component"},
}

// extractContextFields returns the string values found in ctx for the known keys.
func extractContextFields(ctx context.Context) map[string]interface{} {
	fields := make(map[string]interface{})
	if ctx == nil {
		return fields
	}
	for _, cf := range contextFields {
		if val, ok := ctx.Value(cf.key).(string); ok && val != "" {
			fields[cf.name] = val
		}
	}
	return fields
}

// LogrusLogger implements the Logger interface using logrus
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogger creates a new logger from the LOG_BACKEND, LOG_LEVEL, LOG_FORMAT
// and ENVIRONMENT variables. logrus is the default backend.
func NewLogger() Logger {
	return NewLoggerForBackend(os.Getenv("LOG_BACKEND"), os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Getenv("ENVIRONMENT"))
}

// NewLoggerForBackend builds a stdout logger on the named backend ("logrus" or
// "zap"). Unknown backends fall back to logrus.
func NewLoggerForBackend(backend, level, format, environment string) Logger {
	format = resolveFormat(format, environment)
	if strings.EqualFold(backend, backendZap) {
		if zl, err := NewZapLogger(level, format, os.Stdout); err == nil {
			return zl
		}
	}
	return NewLoggerWithOutput(level, format, os.Stdout)
}

// NewLoggerWithConfig creates a logrus logger with custom configuration
func NewLoggerWithConfig(level string, format string) Logger {
	return NewLoggerWithOutput(level, format, os.Stdout)
}

// NewLoggerWithOutput creates a logrus logger writing to out.
func NewLoggerWithOutput(level string, format string, out io.Writer) Logger {
	logger := logrus.New()
	logger.SetLevel(parseLogrusLevel(level))
	logger.SetFormatter(logrusFormatter(format))
	logger.SetOutput(out)

	return &LogrusLogger{
		entry: logrus.NewEntry(logger),
	}
}

// Debug logs a debug message
func (l *LogrusLogger) Debug(args ...interface{}) {
	l.entry.Debug(args...)
}

// Info logs an info message
func (l *LogrusLogger) Info(args ...interface{}) {
	l.entry.Info(args...)
}

// Warn logs a warning message
func (l *LogrusLogger) Warn(args ...interface{}) {
	l.entry.Warn(args...)
}

// Error logs an error message
func (l *LogrusLogger) Error(args ...interface{}) {
	l.entry.Error(args...)
}

// Fatal logs a fatal message and exits
func (l *LogrusLogger) Fatal(args ...interface{}) {
	l.entry.Fatal(args...)
}

// Debugf logs a formatted debug message
func (l *LogrusLogger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

// Infof logs a formatted info message
func (l *LogrusLogger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// Warnf logs a formatted warning message
func (l *LogrusLogger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// Errorf logs a formatted error message
func (l *LogrusLogger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// Fatalf logs a formatted fatal message and exits
func (l *LogrusLogger) Fatalf(format string, args ...interface{}) {
	l.entry.Fatalf(format, args...)
}

// WithFields adds structured fields to the logger
func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{
		entry: l.entry.WithFields(logrus.Fields(fields)),
	}
}

// WithContext adds request-scoped values carried by ctx to the logger
func (l *LogrusLogger) WithContext(ctx context.Context) Logger {
	return &LogrusLogger{
		entry: l.entry.WithFields(logrus.Fields(extractContextFields(ctx))),
	}
}

// WithComponent adds component name to the logger
func (l *LogrusLogger) WithComponent(component string) Logger {
	return &LogrusLogger{
		entry: l.entry.WithField("component", component),
	}
}

// Helper functions

// resolveFormat picks the output format; production environments always log JSON.
func resolveFormat(format, environment string) string {
	if environment == envProduction || environment == envProd {
		return logFormatJSON
	}
	if strings.EqualFold(format, logFormatJSON) {
		return logFormatJSON
	}
	return logFormatText
}

// parseLogrusLevel maps a level name onto logrus, defaulting to info
func parseLogrusLevel(level string) logrus.Level {
	if strings.EqualFold(level, "WARNING") {
		return logrus.WarnLevel
	}
	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}

func logrusFormatter(format string) logrus.Formatter {
	if format == logFormatJSON {
		return &logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		}
	}

	// Text formatter for development
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: textTimestamp,
	}
}

// nopLogger implements Logger but discards everything
type nopLogger struct{}

// NewNopLogger returns a Logger that drops every entry.
func NewNopLogger() Logger {
	return nopLogger{}
}

func (nopLogger) Debug(args ...interface{})                  {}
func (nopLogger) Info(args ...interface{})                   {}
func (nopLogger) Warn(args ...interface{})                   {}
func (nopLogger) Error(args ...interface{})                  {}
func (nopLogger) Fatal(args ...interface{})                  {}
func (nopLogger) Debugf(format string, args ...interface{})  {}
func (nopLogger) Infof(format string, args ...interface{})   {}
func (nopLogger) Warnf(format string, args ...interface{})   {}
func (nopLogger) Errorf(format string, args ...interface{})  {}
func (nopLogger) Fatalf(format string, args ...interface{})  {}
func (n nopLogger) WithFields(map[string]interface{}) Logger { return n }
func (n nopLogger) WithContext(context.Context) Logger       { return n }
func (n nopLogger) WithComponent(string) Logger              { return n }
