package logger

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type contextKey string

const traceIDKey contextKey = "trace_id"

const jsonTimestamp = "2006-01-02T15:04:05.000Z07:00"

var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(formatterFor("production"))
	return l
}

// formatterFor picks text output for local runs and JSON everywhere else.
func formatterFor(mode string) logrus.Formatter {
	switch mode {
	case "development", "debug":
		return &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"}
	}
	return &logrus.JSONFormatter{
		TimestampFormat: jsonTimestamp,
		FieldMap:        logrus.FieldMap{logrus.FieldKeyMsg: "message"},
	}
}

// Setup applies the app.log_level and app.mode settings. Unknown levels fall
// back to info.
func Setup(level, mode string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	log.SetFormatter(formatterFor(mode))
}

func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	traceID, _ := ctx.Value(traceIDKey).(string)
	return traceID
}

// WithContext tags an entry with the request trace id carried by ctx, if any.
func WithContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(log)
	if traceID := TraceIDFromContext(ctx); traceID != "" {
		entry = entry.WithField("trace_id", traceID)
	}
	return entry
}

func WithField(key string, value interface{}) *logrus.Entry {
	return log.WithField(key, value)
}

func WithFields(fields map[string]interface{}) *logrus.Entry {
	return log.WithFields(fields)
}

func WithServer(serverID string) *logrus.Entry {
	return log.WithField("server_id", serverID)
}

// WithEvent tags an entry with a simulation event's identity.
func WithEvent(eventID, eventType, serverID string) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"event_id":   eventID,
		"event_type": eventType,
		"server_id":  serverID,
	})
}

// Writer exposes the output at level, for libraries that log through io.Writer.
func Writer(level logrus.Level) *io.PipeWriter {
	return log.WriterLevel(level)
}

func Info(msg string) {
	log.Info(msg)
}

func Warn(msg string) {
	log.Warn(msg)
}

func Infof(format string, args ...interface{}) {
	log.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

func WarnCtxf(ctx context.Context, format string, args ...interface{}) {
	WithContext(ctx).Warnf(format, args...)
}

func ErrorCtxf(ctx context.Context, format string, args ...interface{}) {
	WithContext(ctx).Errorf(format, args...)
}
