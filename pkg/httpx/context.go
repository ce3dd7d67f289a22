package httpx

import "context"

type ctxKey string

// CtxKeyUserID holds the authenticated user's id, injected by
// AuthnMiddleware after the bearer token checks out.
const CtxKeyUserID ctxKey = "user_id"

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(CtxKeyUserID).(string)
	return v, ok && v != ""
}
