package container

import "context"

type requestIDKey struct{}

// ContextWithRequestID labels resolutions made through ResolveContext with id
// instead of a generated one. Each resolution still gets its own per-request
// instances.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id set by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}
