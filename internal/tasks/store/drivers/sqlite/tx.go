package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/copperkettle/tasklist/internal/tasks/store"
)

// ErrNestedTx reports an attempt to open a transaction inside another one.
var ErrNestedTx = errors.New("sqlite: nested transactions are not supported")

// storeTx scopes the repos to one *sql.Tx.
type storeTx struct {
	tx *sql.Tx
}

func (t *storeTx) Commit() error   { return t.tx.Commit() }
func (t *storeTx) Rollback() error { return t.tx.Rollback() }

func (t *storeTx) Users() store.Users                 { return &usersRepo{q: t.tx} }
func (t *storeTx) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{q: t.tx} }
func (t *storeTx) Todos() store.Todos                 { return &todosRepo{q: t.tx} }

func (t *storeTx) ApplyMigrations() error { return ErrNestedTx }

func (t *storeTx) Tx(context.Context) (store.Tx, error) { return nil, ErrNestedTx }

func (t *storeTx) WithTx(context.Context, func(tx store.Tx) error) error { return ErrNestedTx }

func (t *storeTx) Close() error { return t.tx.Rollback() }

func (t *storeTx) Ping(context.Context) error { return nil }
