// Package service holds the business logic: account management, the token
// issuance/rotation/revocation core, and task CRUD.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/copperkettle/tasklist/internal/tasks/domain"
	"github.com/copperkettle/tasklist/internal/tasks/store"
	"github.com/copperkettle/tasklist/pkg/cryptox"
	"github.com/copperkettle/tasklist/pkg/idx"
)

var (
	ErrEmailTaken = errors.New("email_already_used")

	// ErrInvalidCredentials is deliberately the same for "no such user" and
	// "wrong password" so login cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid_credentials")
)

type AuthService struct {
	Store store.Store
}

// Register creates a new account. The password is hashed before anything
// touches the store; the plaintext never leaves this function.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (domain.User, error) {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	u := domain.User{
		ID:           idx.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}
	return u, nil
}

// Login checks the credentials and returns the account on success.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// GetUser returns the account for an authenticated user id.
func (s *AuthService) GetUser(ctx context.Context, id idx.ID) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, id)
}
