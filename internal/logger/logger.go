// Package logger configures logrus for the CLI, the core components and the sandbox.
package logger

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

const serviceName = "staffline"

type requestIDKey struct{}

// New builds a logger writing to out. format is "text" or "json".
func New(level, format string, out io.Writer) (*logrus.Logger, error) {
	l := logrus.New()
	l.Out = out
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		l.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	case "json":
		l.Formatter = &logrus.JSONFormatter{}
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	l.SetLevel(lvl)
	l.AddHook(&DefaultFieldsHook{})
	return l, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return Discard()
	}
	return l
}

type DefaultFieldsHook struct{}

func (hook *DefaultFieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (hook *DefaultFieldsHook) Fire(e *logrus.Entry) error {
	if _, ok := e.Data["service"]; !ok {
		e.Data["service"] = serviceName
	}
	return nil
}

// WithRequestID returns a new context carrying the given request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// FromContext attaches the request id of ctx, if any, to base.
func FromContext(ctx context.Context, base logrus.FieldLogger) logrus.FieldLogger {
	base = OrDiscard(base)
	if reqID := RequestIDFromContext(ctx); reqID != "" {
		return base.WithField("request_id", reqID)
	}
	return base
}
