package auth

import (
	"context"
)

type ctxKey struct{}

func WithUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, ctxKey{}, username)
}

// UserFromContext returns the agent authenticated for this request.
func UserFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(ctxKey{}).(string)
	return username, ok
}
