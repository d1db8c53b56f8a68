package http

import (
	"context"

	"github.com/example/bizdesk/internal/identity"
)

type contextKey string

const userContextKey contextKey = "user"

// ContextWithUser returns a derived context containing the authenticated user.
func ContextWithUser(ctx context.Context, user identity.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext extracts the authenticated user from context if available.
func UserFromContext(ctx context.Context) (identity.User, bool) {
	user, ok := ctx.Value(userContextKey).(identity.User)
	return user, ok
}
