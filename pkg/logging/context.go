package logging

import (
	"context"
)

type contextKey string

const (
	TraceIDKey     = "trace_id"
	MessageIDKey   = "message_id"
	ServiceNameKey = "service_name"
	EventIDKey     = "event_id"
	RepositoryKey  = "repository"
)

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, contextKey(TraceIDKey), traceID)
}

func WithMessageID(ctx context.Context, messageID string) context.Context {
	return context.WithValue(ctx, contextKey(MessageIDKey), messageID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, contextKey(ServiceNameKey), serviceName)
}

// WithEvent tags the context with the push event being processed so every
// log line for that event can be correlated.
func WithEvent(ctx context.Context, eventID, repository string) context.Context {
	if eventID != "" {
		ctx = context.WithValue(ctx, contextKey(EventIDKey), eventID)
	}
	if repository != "" {
		ctx = context.WithValue(ctx, contextKey(RepositoryKey), repository)
	}
	return ctx
}

func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, TraceIDKey)
}

func GetMessageID(ctx context.Context) string {
	return stringValue(ctx, MessageIDKey)
}

func GetServiceName(ctx context.Context) string {
	return stringValue(ctx, ServiceNameKey)
}

func GetEventID(ctx context.Context) string {
	return stringValue(ctx, EventIDKey)
}

func GetRepository(ctx context.Context) string {
	return stringValue(ctx, RepositoryKey)
}

func stringValue(ctx context.Context, key string) string {
	if v, ok := ctx.Value(contextKey(key)).(string); ok {
		return v
	}
	return ""
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 10)

	for _, key := range []string{TraceIDKey, MessageIDKey, ServiceNameKey, EventIDKey, RepositoryKey} {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, key, v)
		}
	}

	return fields
}
