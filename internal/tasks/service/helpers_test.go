package service

import (
	"context"
	"testing"
	"time"

	"github.com/copperkettle/tasklist/internal/tasks/domain"
	"github.com/copperkettle/tasklist/internal/tasks/store"
	"github.com/copperkettle/tasklist/internal/tasks/store/drivers/sqlite"
	"github.com/copperkettle/tasklist/pkg/idx"
	"github.com/copperkettle/tasklist/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTestTokenService(t *testing.T, s store.Store) *TokenService {
	t.Helper()

	signer, err := jwtx.NewSignerHS256([]byte("test-secret-please-ignore"))
	require.NoError(t, err)

	return &TokenService{
		Store:           s,
		AccessSigner:    signer,
		RefreshSigner:   signer,
		RefreshVerifier: jwtx.NewVerifierHS256([]byte("test-secret-please-ignore")),
		AccessTTL:       jwtx.DefaultAccessTokenTTL,
		RefreshTTL:      jwtx.DefaultRefreshTokenTTL,
	}
}

func mustRegister(t *testing.T, s store.Store, email string) domain.User {
	t.Helper()

	auth := &AuthService{Store: s}
	u, err := auth.Register(context.Background(), email, "hunter2hunter2", "Test User")
	require.NoError(t, err)
	return u
}

func mustCreateTodo(t *testing.T, svc *TodoService, userID idx.ID, title string, priority int64) domain.Todo {
	t.Helper()

	todo, err := svc.Create(context.Background(), userID, CreateTodoInput{
		Title:    title,
		Priority: &priority,
	})
	require.NoError(t, err)

	// ULIDs share a millisecond timestamp when minted quickly; a short pause
	// keeps createdAt ordering deterministic in listing tests.
	time.Sleep(2 * time.Millisecond)
	return todo
}
