// Package store defines the data access interfaces. Concrete drivers
// (sqlite today) implement them; services depend only on these interfaces so
// tests and future drivers can swap in freely.
package store

import (
	"context"
	"errors"

	"github.com/copperkettle/tasklist/internal/tasks/domain"
	"github.com/copperkettle/tasklist/pkg/idx"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface, exposing sub-repositories to keep
// concerns tidy and testable.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	Todos() Todos

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns
	// nil and rolling back otherwise. This is the recommended entry point
	// for multi-step operations that must be atomic, e.g. refresh rotation.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts a new user (id is provided by the app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByEmail is used during login.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id idx.ID) (domain.User, error)
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new ledger row.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshToken returns the ledger row for a jti/user pair.
	GetRefreshToken(ctx context.Context, jti string, userID idx.ID) (domain.RefreshToken, error)

	// RevokeRefreshToken conditionally flips is_revoked on the row matching
	// {jti, userID, is_revoked=false} and reports whether a row was hit.
	// Zero rows means the token was already rotated or revoked; under
	// concurrent rotation of the same token at most one caller sees true.
	RevokeRefreshToken(ctx context.Context, jti string, userID idx.ID) (bool, error)

	// RevokeAllUserRefreshTokens revokes every active row for a user.
	// Idempotent; a second call is a no-op.
	RevokeAllUserRefreshTokens(ctx context.Context, userID idx.ID) error
}

// TodoFilter narrows and orders a todo listing. Sort must be a vetted column
// name; handlers validate the client-facing field name and the service maps
// it before it reaches the driver.
type TodoFilter struct {
	Search    string
	Completed *bool
	Priority  *int64
	Sort      string
	Order     string // "asc" or "desc"
	Offset    int
	Limit     int
}

type Todos interface {
	// CreateTodo inserts a new task item.
	CreateTodo(ctx context.Context, t domain.Todo) error

	// GetTodo returns the item only when owned by userID; an ownership
	// mismatch is reported as ErrNotFound, indistinguishable from absence.
	GetTodo(ctx context.Context, id, userID idx.ID) (domain.Todo, error)

	// ListTodos returns the filtered page of the user's items.
	ListTodos(ctx context.Context, userID idx.ID, f TodoFilter) ([]domain.Todo, error)

	// CountTodos returns the total matching the filter, ignoring paging.
	CountTodos(ctx context.Context, userID idx.ID, f TodoFilter) (int64, error)

	// UpdateTodo writes back a full row, scoped to its owner.
	UpdateTodo(ctx context.Context, t domain.Todo) error

	// DeleteTodo removes the item when owned by userID, else ErrNotFound.
	DeleteTodo(ctx context.Context, id, userID idx.ID) error
}
