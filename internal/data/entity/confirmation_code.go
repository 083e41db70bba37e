package entity

import (
	"time"

	"github.com/google/uuid"
)

// ConfirmationCode is the single live signup secret of a user. Only the
// bcrypt hash is stored; a new signup replaces the previous row.
type ConfirmationCode struct {
	UserID    uuid.UUID `db:"user_id"`
	CodeHash  string    `db:"code_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

func (c *ConfirmationCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
