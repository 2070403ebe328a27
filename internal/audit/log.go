// Package audit records who did what to the session and the journals.
package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"lifedrop.org/internal/obs"
)

type ctxKey string

const (
	requestIDKey ctxKey = "audit_request_id"
	userIDKey    ctxKey = "audit_user_id"
)

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithUserID attaches the acting profile id.
func WithUserID(ctx context.Context, userID string) context.Context {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey, userID)
}

// RequestIDFromContext returns the request id set by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, requestIDKey)
}

func stringFromContext(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// Log writes an audit entry enriched with request and user context. A nil
// logger means obs.Logger(). An unnamed event is recorded as a warning
// instead of an audit entry.
func Log(ctx context.Context, logger *slog.Logger, event string, fields map[string]any) {
	if logger == nil {
		logger = obs.Logger()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	event = strings.TrimSpace(event)
	if event == "" {
		logger.WarnContext(ctx, "audit_event_unnamed", "fields", len(fields))
		return
	}
	attrs := []slog.Attr{
		slog.String("type", "audit"),
		slog.String("event", event),
		slog.String("ts", time.Now().UTC().Format(time.RFC3339Nano)),
	}
	if rid := stringFromContext(ctx, requestIDKey); rid != "" {
		attrs = append(attrs, slog.String("request_id", rid))
	}
	if uid := stringFromContext(ctx, userIDKey); uid != "" {
		attrs = append(attrs, slog.String("user_id", uid))
	}
	group := make([]any, 0, len(fields))
	for k, v := range fields {
		group = append(group, slog.Any(k, v))
	}
	attrs = append(attrs, slog.Group("fields", group...))
	logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
}
