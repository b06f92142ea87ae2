package auth

import "context"

type contextKey struct{}

// Identity is the authenticated caller, resolved by the auth middleware.
// The lifecycle engine only ever sees the user id; role checks against a
// chore are per-edge predicates, not role-string comparisons.
type Identity struct {
	UserID    int64
	Role      string
	SessionID int64
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

func UserID(ctx context.Context) int64 {
	id, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return id.UserID
}
