package domain

import (
	"time"

	"github.com/copperkettle/tasklist/pkg/idx"
)

// RefreshToken models a ledger row. Rows are append-only: the only mutation
// ever applied is flipping IsRevoked, so the ledger doubles as an audit
// trail of every session a user ever had.
type RefreshToken struct {
	JTI       string // unique token identifier, primary lookup key
	Token     string // the signed token string as handed to the client
	UserID    idx.ID
	UserAgent string // informational only
	IP        string // informational only
	IsRevoked bool
	RevokedAt *time.Time
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IssuedRefresh is what the token issuer hands back to the HTTP layer.
type IssuedRefresh struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// ClientMeta captures issuing-client metadata recorded with each ledger row.
type ClientMeta struct {
	UserAgent string
	IP        string
}
