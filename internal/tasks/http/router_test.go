package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpapi "github.com/copperkettle/tasklist/internal/tasks/http"
	"github.com/copperkettle/tasklist/internal/tasks/service"
	"github.com/copperkettle/tasklist/internal/tasks/store"
	"github.com/copperkettle/tasklist/internal/tasks/store/drivers/sqlite"
	"github.com/copperkettle/tasklist/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	signer, err := jwtx.NewSignerHS256([]byte(testSecret))
	require.NoError(t, err)

	tokens := &service.TokenService{
		Store:           s,
		AccessSigner:    signer,
		RefreshSigner:   signer,
		RefreshVerifier: jwtx.NewVerifierHS256([]byte(testSecret)),
		AccessTTL:       jwtx.DefaultAccessTokenTTL,
		RefreshTTL:      jwtx.DefaultRefreshTokenTTL,
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:    store.Store(s),
		Verifier: jwtx.NewVerifierHS256([]byte(testSecret)),
		Auth:     &service.AuthService{Store: s},
		Tokens:   tokens,
		Todos:    &service.TodoService{Store: s},
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Body.Close() })

	var parsed map[string]any
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &parsed), "body: %s", raw)
	}
	return res, parsed
}

func registerAndLogin(t *testing.T, base, email string) (access, refresh string) {
	t.Helper()

	creds := map[string]string{"email": email, "password": "swordfish-9000", "name": "Router Test"}
	res, _ := doJSON(t, http.MethodPost, base+"/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, res.StatusCode)

	res, body := doJSON(t, http.MethodPost, base+"/auth/login", "", creds)
	require.Equal(t, http.StatusOK, res.StatusCode)
	return body["access_token"].(string), body["refresh_token"].(string)
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	res, body := doJSON(t, http.MethodPost, srv.URL+"/auth/register", "", map[string]string{
		"email":    "not-an-email",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, "ValidationError", body["error"])

	details := body["details"].(map[string]any)
	require.Contains(t, details, "email")
	require.Contains(t, details, "password")
}

func TestRegisterResponseOmitsPasswordHash(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	res, body := doJSON(t, http.MethodPost, srv.URL+"/auth/register", "", map[string]string{
		"email":    "nohash@example.com",
		"password": "long-enough-password",
		"name":     "No Hash",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	require.NotEmpty(t, body["id"])
	require.Equal(t, "nohash@example.com", body["email"])
	require.NotContains(t, body, "password")
	require.NotContains(t, body, "passwordHash")
	require.NotContains(t, body, "password_hash")
}

func TestDuplicateRegistration(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	creds := map[string]string{"email": "twice@example.com", "password": "long-enough-password"}
	res, _ := doJSON(t, http.MethodPost, srv.URL+"/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, res.StatusCode)

	res, body := doJSON(t, http.MethodPost, srv.URL+"/auth/register", "", creds)
	require.Equal(t, http.StatusConflict, res.StatusCode)
	require.Equal(t, "EmailAlreadyUsed", body["error"])
}

func TestLoginShape(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	creds := map[string]string{"email": "shape@example.com", "password": "long-enough-password"}
	res, _ := doJSON(t, http.MethodPost, srv.URL+"/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, res.StatusCode)

	res, body := doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", creds)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "Bearer", body["token_type"])
	require.NotEmpty(t, body["access_token"])
	require.NotEmpty(t, body["refresh_token"])
	require.EqualValues(t, 900, body["expires_in"])
	require.NotEmpty(t, body["refresh_expires_at"])

	user := body["user"].(map[string]any)
	require.Equal(t, "shape@example.com", user["email"])

	// The refresh token also lands in an httpOnly cookie scoped to /auth.
	var cookie *http.Cookie
	for _, c := range res.Cookies() {
		if c.Name == "refresh_token" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, "/auth", cookie.Path)
	require.Equal(t, body["refresh_token"], cookie.Value)
}

func TestLoginBadCredentials(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	res, body := doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", map[string]string{
		"email":    "ghost@example.com",
		"password": "long-enough-password",
	})
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	require.Equal(t, "InvalidCredentials", body["error"])
}

func TestBearerGate(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	res, body := doJSON(t, http.MethodGet, srv.URL+"/todos", "", nil)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	require.Equal(t, "Unauthorized", body["error"])
	require.Equal(t, "MissingBearerToken", body["reason"])

	res, body = doJSON(t, http.MethodGet, srv.URL+"/todos", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	require.Equal(t, "InvalidOrExpiredToken", body["reason"])

	// Lowercase scheme is rejected too; the header format is strict.
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/todos", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "bearer whatever")
	res2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res2.Body.Close()
	require.Equal(t, http.StatusUnauthorized, res2.StatusCode)
}

func TestRefreshRotationFlow(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	_, refresh := registerAndLogin(t, srv.URL, "rotation@example.com")

	// First refresh succeeds and returns a new pair.
	res, body := doJSON(t, http.MethodPost, srv.URL+"/auth/refresh", "", map[string]string{
		"refresh_token": refresh,
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	newRefresh := body["refresh_token"].(string)
	require.NotEqual(t, refresh, newRefresh)
	require.NotEmpty(t, body["access_token"])

	// Replaying the consumed token is rejected.
	res, body = doJSON(t, http.MethodPost, srv.URL+"/auth/refresh", "", map[string]string{
		"refresh_token": refresh,
	})
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	require.Equal(t, "RefreshRevokedOrExpired", body["error"])

	// The successor still works.
	res, _ = doJSON(t, http.MethodPost, srv.URL+"/auth/refresh", "", map[string]string{
		"refresh_token": newRefresh,
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestRefreshMissingAndMalformed(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	res, body := doJSON(t, http.MethodPost, srv.URL+"/auth/refresh", "", nil)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, "MissingRefreshToken", body["error"])

	res, body = doJSON(t, http.MethodPost, srv.URL+"/auth/refresh", "", map[string]string{
		"refresh_token": "not-a-jwt",
	})
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	require.Equal(t, "InvalidOrExpiredRefresh", body["error"])
}

func TestRefreshViaHeader(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	_, refresh := registerAndLogin(t, srv.URL, "header-refresh@example.com")

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/auth/refresh", nil)
	require.NoError(t, err)
	req.Header.Set("x-refresh-token", refresh)

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestLogoutRevokesRefresh(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	access, refresh := registerAndLogin(t, srv.URL, "logout-http@example.com")

	res, _ := doJSON(t, http.MethodPost, srv.URL+"/auth/logout", access, nil)
	require.Equal(t, http.StatusNoContent, res.StatusCode)

	res, body := doJSON(t, http.MethodPost, srv.URL+"/auth/refresh", "", map[string]string{
		"refresh_token": refresh,
	})
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	require.Equal(t, "RefreshRevokedOrExpired", body["error"])

	// Access tokens stay stateless: the one in hand still passes the gate.
	res, _ = doJSON(t, http.MethodGet, srv.URL+"/auth/me", access, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestMe(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	access, _ := registerAndLogin(t, srv.URL, "me@example.com")

	res, body := doJSON(t, http.MethodGet, srv.URL+"/auth/me", access, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "me@example.com", body["email"])
	require.NotContains(t, body, "passwordHash")
}

func TestTodosCRUD(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	access, _ := registerAndLogin(t, srv.URL, "crud@example.com")

	res, body := doJSON(t, http.MethodPost, srv.URL+"/todos", access, map[string]any{
		"title":    "Buy milk",
		"priority": 2,
		"dueDate":  "2026-09-10",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	id := body["id"].(string)
	require.Equal(t, "Buy milk", body["title"])
	require.EqualValues(t, 2, body["priority"])
	require.Equal(t, false, body["completed"])

	res, body = doJSON(t, http.MethodGet, srv.URL+"/todos/"+id, access, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "Buy milk", body["title"])

	res, body = doJSON(t, http.MethodPatch, srv.URL+"/todos/"+id, access, map[string]any{
		"completed": true,
		"dueDate":   nil,
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, true, body["completed"])
	require.Nil(t, body["dueDate"])

	res, _ = doJSON(t, http.MethodDelete, srv.URL+"/todos/"+id, access, nil)
	require.Equal(t, http.StatusNoContent, res.StatusCode)

	res, body = doJSON(t, http.MethodGet, srv.URL+"/todos/"+id, access, nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	require.Equal(t, "NotFound", body["error"])
}

func TestTodosValidation(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	access, _ := registerAndLogin(t, srv.URL, "todo-validation@example.com")

	res, body := doJSON(t, http.MethodPost, srv.URL+"/todos", access, map[string]any{
		"title":    "",
		"priority": 9,
	})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	details := body["details"].(map[string]any)
	require.Contains(t, details, "title")
	require.Contains(t, details, "priority")

	// Overlong titles are rejected.
	res, _ = doJSON(t, http.MethodPost, srv.URL+"/todos", access, map[string]any{
		"title": strings.Repeat("x", 501),
	})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	// PATCH with an empty body fails the at-least-one-field rule.
	res, _ = doJSON(t, http.MethodPost, srv.URL+"/todos", access, map[string]any{"title": "Target"})
	require.Equal(t, http.StatusCreated, res.StatusCode)

	res, body = doJSON(t, http.MethodGet, srv.URL+"/todos?limit=1", access, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	items := body["items"].([]any)
	id := items[0].(map[string]any)["id"].(string)

	res, _ = doJSON(t, http.MethodPatch, srv.URL+"/todos/"+id, access, map[string]any{})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestTodosInvalidID(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	access, _ := registerAndLogin(t, srv.URL, "bad-id@example.com")

	res, body := doJSON(t, http.MethodGet, srv.URL+"/todos/definitely-not-a-ulid", access, nil)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, "InvalidId", body["error"])
}

func TestTodosCrossUserInvisible(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	aliceTok, _ := registerAndLogin(t, srv.URL, "alice-http@example.com")
	bobTok, _ := registerAndLogin(t, srv.URL, "bob-http@example.com")

	res, body := doJSON(t, http.MethodPost, srv.URL+"/todos", aliceTok, map[string]any{
		"title": "Alice only",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	id := body["id"].(string)

	// Bob cannot read, modify or delete it; all three are plain 404s.
	res, body = doJSON(t, http.MethodGet, srv.URL+"/todos/"+id, bobTok, nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	require.Equal(t, "NotFound", body["error"])

	res, _ = doJSON(t, http.MethodPatch, srv.URL+"/todos/"+id, bobTok, map[string]any{"completed": true})
	require.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _ = doJSON(t, http.MethodDelete, srv.URL+"/todos/"+id, bobTok, nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestTodosListQueryValidation(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	access, _ := registerAndLogin(t, srv.URL, "list-validation@example.com")

	for _, query := range []string{
		"completed=maybe",
		"priority=0",
		"sort=passwordHash",
		"order=sideways",
		"page=0",
		"limit=101",
	} {
		res, body := doJSON(t, http.MethodGet, srv.URL+"/todos?"+query, access, nil)
		require.Equal(t, http.StatusBadRequest, res.StatusCode, "query %q", query)
		require.Equal(t, "ValidationError", body["error"], "query %q", query)
	}
}

func TestTodosListPaginationMetadata(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	access, _ := registerAndLogin(t, srv.URL, "list-meta@example.com")

	for i := 0; i < 3; i++ {
		res, _ := doJSON(t, http.MethodPost, srv.URL+"/todos", access, map[string]any{
			"title": fmt.Sprintf("Task %d", i),
		})
		require.Equal(t, http.StatusCreated, res.StatusCode)
	}

	res, body := doJSON(t, http.MethodGet, srv.URL+"/todos?limit=2&page=2", access, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.EqualValues(t, 2, body["page"])
	require.EqualValues(t, 2, body["limit"])
	require.EqualValues(t, 3, body["total"])
	require.EqualValues(t, 2, body["pages"])
	require.Len(t, body["items"].([]any), 1)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	res, body := doJSON(t, http.MethodGet, srv.URL+"/health", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "ok", body["database"])
}

func TestStaticClientServed(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	res, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	page, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Contains(t, string(page), "<title>Tasklist</title>")
}
