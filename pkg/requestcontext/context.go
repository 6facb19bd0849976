// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them, services read them, and tests
// can inject them without running the full middleware chain.
package requestcontext

import "context"

type (
	requestIDKey     struct{}
	correlationIDKey struct{}
)

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// CorrelationID retrieves the caller-supplied correlation ID, the idempotency
// key for downstream persistence.
func CorrelationID(ctx context.Context) string {
	if cid, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return cid
	}
	return ""
}

// WithCorrelationID injects a correlation ID into the context.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, correlationID)
}
