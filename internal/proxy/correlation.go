package proxy

import "context"

type contextKey string

const correlationIDKey contextKey = "correlationId"

// WithCorrelationID stores the inbound request's correlation ID so it is
// forwarded upstream
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID retrieves the correlation ID from context
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}
