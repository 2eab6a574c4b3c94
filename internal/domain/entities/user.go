package entities

import (
	"time"
)

// Roles a user can hold
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account that can sign in
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the user may perform admin mutations
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
