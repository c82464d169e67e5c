// Package logging carries request-scoped identifiers through a context so the
// logger can attach them to every line.
package logging

import (
	"context"
)

// Field names as they appear in log lines.
const (
	TraceIDKey     = "trace_id"
	MessageIDKey   = "message_id"
	ServiceNameKey = "service_name"
	ScopeIDKey     = "scope_id"
	ImportIDKey    = "import_id"
	RequestIDKey   = "request_id"
)

type ctxKey string

// logOrder fixes the order of identifiers in log lines.
var logOrder = []string{TraceIDKey, RequestIDKey, MessageIDKey, ServiceNameKey, ScopeIDKey, ImportIDKey}

func with(ctx context.Context, field, value string) context.Context {
	return context.WithValue(ctx, ctxKey(field), value)
}

func get(ctx context.Context, field string) string {
	value, _ := ctx.Value(ctxKey(field)).(string)
	return value
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return with(ctx, TraceIDKey, traceID)
}

func WithMessageID(ctx context.Context, messageID string) context.Context {
	return with(ctx, MessageIDKey, messageID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return with(ctx, ServiceNameKey, serviceName)
}

func WithScopeID(ctx context.Context, scopeID string) context.Context {
	return with(ctx, ScopeIDKey, scopeID)
}

func WithImportID(ctx context.Context, importID string) context.Context {
	return with(ctx, ImportIDKey, importID)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return with(ctx, RequestIDKey, requestID)
}

func GetTraceID(ctx context.Context) string     { return get(ctx, TraceIDKey) }
func GetMessageID(ctx context.Context) string   { return get(ctx, MessageIDKey) }
func GetServiceName(ctx context.Context) string { return get(ctx, ServiceNameKey) }
func GetScopeID(ctx context.Context) string     { return get(ctx, ScopeIDKey) }
func GetImportID(ctx context.Context) string    { return get(ctx, ImportIDKey) }
func GetRequestID(ctx context.Context) string   { return get(ctx, RequestIDKey) }

// GetLogFields returns the identifiers carried by ctx as zap key/value pairs.
// Unset identifiers are skipped.
func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 2*len(logOrder))
	for _, field := range logOrder {
		if value := get(ctx, field); value != "" {
			fields = append(fields, field, value)
		}
	}
	return fields
}
