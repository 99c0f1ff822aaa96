package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the privilege level of a user.
type Role string

const (
	RoleOperator Role = "operator"
	RolePlayer   Role = "player"
)

// User represents a user in the system
type User struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	Role         Role       `json:"role"`
	Country      string     `json:"country,omitempty"`
	PasswordHash string     `json:"-"`
	IsOnline     bool       `json:"is_online"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Identity returns the authenticated view of the user.
func (u *User) Identity() Identity {
	return Identity{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		Country:  u.Country,
	}
}

// Identity is what a request or connection carries once authenticated.
type Identity struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
	Country  string    `json:"country,omitempty"`
}

// IsOperator reports whether the identity holds the operator role.
func (i Identity) IsOperator() bool {
	return i.Role == RoleOperator
}
