package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an allow-listed chat user. ChatID is the id assigned by the chat
// gateway; it is the only identity the service trusts.
type User struct {
	ID        uuid.UUID `db:"id"`
	ChatID    int64     `db:"chat_id"`
	Username  *string   `db:"username"`
	FirstName *string   `db:"first_name"`
	IsActive  bool      `db:"is_active"`
	IsAdmin   bool      `db:"is_admin"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
