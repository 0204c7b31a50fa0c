package models

import "context"

type callerContextKey struct{}

// WithCaller attaches the authenticated caller identity to a context.
func WithCaller(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, callerContextKey{}, identity)
}

// CallerFromContext returns the caller identity, or "" when the request was not authenticated.
func CallerFromContext(ctx context.Context) string {
	identity, _ := ctx.Value(callerContextKey{}).(string)
	return identity
}
