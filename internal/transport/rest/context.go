package rest

import "context"

type ctxKeyAuth struct{}

type AuthContext struct {
	UserID string
	Role   string
	Ver    int64
}

func withAuth(ctx context.Context, a AuthContext) context.Context {
	return context.WithValue(ctx, ctxKeyAuth{}, a)
}

func GetAuth(ctx context.Context) (AuthContext, bool) {
	a, ok := ctx.Value(ctxKeyAuth{}).(AuthContext)
	return a, ok
}

// actorID is the admin user id for audit lines, or "" for anonymous callers.
func actorID(ctx context.Context) string {
	a, _ := GetAuth(ctx)
	return a.UserID
}
