package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/copperkettle/tasklist/pkg/jwtx"
	"github.com/copperkettle/tasklist/pkg/slogx"
)

// Rejection reasons surfaced to the client alongside the 401.
const (
	ReasonMissingBearerToken    = "MissingBearerToken"
	ReasonInvalidOrExpiredToken = "InvalidOrExpiredToken"
)

// AuthnMiddleware gates protected routes. It requires an Authorization header
// of the exact form "Bearer <token>", verifies signature and expiry, and
// injects the token subject into the request context as the authenticated
// user id. No store lookup happens here; validity rests on the signature
// alone, which is why access tokens stay short-lived.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || scheme != "Bearer" || token == "" {
				writeBearerError(w, ReasonMissingBearerToken)
				return
			}

			claims, err := v.Verify(token)
			if err != nil {
				slogx.FromContext(ctx).Warn("access token rejected", "err", err)
				writeBearerError(w, ReasonInvalidOrExpiredToken)
				return
			}

			ctx = context.WithValue(ctx, CtxKeyUserID, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeBearerError(w http.ResponseWriter, reason string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":  "Unauthorized",
		"reason": reason,
	})
}
