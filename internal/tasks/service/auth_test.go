package service

import (
	"context"
	"strings"
	"testing"

	"github.com/copperkettle/tasklist/internal/tasks/store"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	auth := &AuthService{Store: s}

	u, err := auth.Register(ctx, "dave@example.com", "correct horse battery", "Dave")
	require.NoError(t, err)
	require.False(t, u.ID.IsZero())
	require.Equal(t, "dave@example.com", u.Email)
	require.NotEmpty(t, u.PasswordHash)
	require.NotContains(t, u.PasswordHash, "correct horse battery")
	require.True(t, strings.HasPrefix(u.PasswordHash, "$argon2id$"))

	got, err := auth.Login(ctx, "dave@example.com", "correct horse battery")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	auth := &AuthService{Store: s}

	_, err := auth.Register(ctx, "dup@example.com", "password-one", "First")
	require.NoError(t, err)

	_, err = auth.Register(ctx, "dup@example.com", "password-two", "Second")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginFailureIsUniform(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	auth := &AuthService{Store: s}

	_, err := auth.Register(ctx, "exists@example.com", "the right password", "Someone")
	require.NoError(t, err)

	// Wrong password and unknown account must be indistinguishable, so a
	// caller cannot probe which emails are registered.
	_, wrongPass := auth.Login(ctx, "exists@example.com", "the wrong password")
	_, noUser := auth.Login(ctx, "nobody@example.com", "the wrong password")

	require.ErrorIs(t, wrongPass, ErrInvalidCredentials)
	require.ErrorIs(t, noUser, ErrInvalidCredentials)
	require.Equal(t, wrongPass.Error(), noUser.Error())
}

func TestGetUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	auth := &AuthService{Store: s}

	u := mustRegister(t, s, "lookup@example.com")

	got, err := auth.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, got.Email)

	_, err = auth.GetUser(ctx, u.ID[:10]+"0000000000000000")
	require.ErrorIs(t, err, store.ErrNotFound)
}
