package logging

import (
	"context"
	"log/slog"
	"time"
)

// Attr is a convenience alias for slog.Attr.
type Attr = slog.Attr

// Well-known attribute keys shared across packages.
const (
	FieldComponent     = "component"
	FieldJobID         = "job_id"
	FieldStage         = "stage"
	FieldProvider      = "provider"
	FieldCorrelationID = "correlation_id"
	FieldEventType     = "event_type"
	FieldErrorHint     = "error_hint"
)

func String(key, value string) Attr { return slog.String(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func Uint64(key string, value uint64) Attr { return slog.Uint64(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Any(key string, value any) Attr { return slog.Any(key, value) }

// Error returns a standard attribute for error values.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Args converts attrs to the variadic any form accepted by slog methods.
func Args(attrs ...Attr) []any {
	out := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, attr)
	}
	return out
}

// NewNop returns a logger that discards all records.
func NewNop() *slog.Logger {
	return slog.New(noopHandler{})
}

// NewComponentLogger tags a child logger with the component field.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (noopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h noopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h noopHandler) WithGroup(string) slog.Handler           { return h }
