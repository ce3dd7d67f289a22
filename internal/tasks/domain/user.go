package domain

import (
	"time"

	"github.com/copperkettle/tasklist/pkg/idx"
)

// User is an account record. PasswordHash is the Argon2id hash; the plaintext
// is never stored and the hash never leaves the service.
type User struct {
	ID           idx.ID
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
}
