package logger

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
)

type contextKey string

const (
	traceIDKey   contextKey = "trace_id"
	sessionIDKey contextKey = "session_id"
)

// WithTrace mints a trace id for one logical operation and stamps it on the
// context. A context that already carries one is returned unchanged, so
// nested operations share the caller's trace.
func WithTrace(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return context.WithValue(ctx, traceIDKey, strings.ToLower(ulid.Make().String()))
}

func GetTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return ""
}

// WithSessionID tags the context with the session the operation belongs to.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}
