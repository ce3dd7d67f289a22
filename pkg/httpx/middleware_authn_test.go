package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/copperkettle/tasklist/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func protectedHandler(t *testing.T, wantUserID string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, wantUserID, userID)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthnMiddlewarePassesValidToken(t *testing.T) {
	t.Parallel()

	signer, err := jwtx.NewSignerHS256([]byte("gate-secret"))
	require.NoError(t, err)
	token, err := signer.Sign(jwtx.NewAccessClaims("user-42", time.Minute, time.Now().UTC()))
	require.NoError(t, err)

	h := Chain(protectedHandler(t, "user-42"), AuthnMiddleware(jwtx.NewVerifierHS256([]byte("gate-secret"))))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthnMiddlewareRejectsMissingOrMalformedHeader(t *testing.T) {
	t.Parallel()

	h := Chain(protectedHandler(t, ""), AuthnMiddleware(jwtx.NewVerifierHS256([]byte("gate-secret"))))

	for _, header := range []string{"", "Bearer", "Bearer ", "Basic dXNlcjpwdw==", "bearer sometoken"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/todos", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
		require.Contains(t, rec.Body.String(), ReasonMissingBearerToken, "header %q", header)
	}
}

func TestAuthnMiddlewareRejectsBadToken(t *testing.T) {
	t.Parallel()

	otherSigner, err := jwtx.NewSignerHS256([]byte("other-secret"))
	require.NoError(t, err)
	forged, err := otherSigner.Sign(jwtx.NewAccessClaims("user-42", time.Minute, time.Now().UTC()))
	require.NoError(t, err)

	signer, err := jwtx.NewSignerHS256([]byte("gate-secret"))
	require.NoError(t, err)
	expired, err := signer.Sign(jwtx.NewAccessClaims("user-42", time.Minute, time.Now().UTC().Add(-time.Hour)))
	require.NoError(t, err)

	h := Chain(protectedHandler(t, ""), AuthnMiddleware(jwtx.NewVerifierHS256([]byte("gate-secret"))))

	for _, token := range []string{forged, expired, "garbage"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/todos", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), ReasonInvalidOrExpiredToken)
	}
}
