package middleware

import "context"

// Context keys used to store request metadata on echo.Context.
const (
	ContextKeyUsername  = "username"
	ContextKeyUserRole  = "user_role"
	ContextKeyRequestID = "request_id"
)

type requestIDKey struct{}

// WithRequestID returns a copy of ctx carrying the request identifier.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestIDFrom extracts the request identifier from a standard context, for
// outbound calls made below the handler layer.
func RequestIDFrom(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey{}).(string)
	return rid
}
