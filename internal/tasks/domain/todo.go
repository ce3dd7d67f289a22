package domain

import (
	"time"

	"github.com/copperkettle/tasklist/pkg/idx"
)

// Todo is a task item owned by exactly one user. Priority is 1 (high) to
// 3 (low) or unset; DueDate is optional.
type Todo struct {
	ID        idx.ID
	UserID    idx.ID
	Title     string
	Completed bool
	Priority  *int64
	DueDate   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
