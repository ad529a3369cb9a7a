package logging

import (
	"context"
	"log/slog"

	"reelscan/internal/services"
)

// ContextFields extracts well-known request metadata from ctx as attributes.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}

	var attrs []Attr
	if jobID, ok := services.JobIDFromContext(ctx); ok && jobID != "" {
		attrs = append(attrs, String(FieldJobID, jobID))
	}
	if stage, ok := services.StageFromContext(ctx); ok && stage != "" {
		attrs = append(attrs, String(FieldStage, stage))
	}
	if provider, ok := services.ProviderFromContext(ctx); ok && provider != "" {
		attrs = append(attrs, String(FieldProvider, provider))
	}
	if requestID, ok := services.RequestIDFromContext(ctx); ok && requestID != "" {
		attrs = append(attrs, String(FieldCorrelationID, requestID))
	}
	return attrs
}

// WithContext returns a child logger annotated with request metadata from ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	attrs := ContextFields(ctx)
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(Args(attrs...)...)
}
