package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/econempire/go/internal/models"
)

// CreateUserRequest represents the data needed to create a user
type CreateUserRequest struct {
	Username     string
	Role         models.Role
	PasswordHash string
	CreatedAt    time.Time
}

// LoginRequest is the login form. Password is optional.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	Country  string `json:"country,omitempty"`
}

// LoginResponse carries the bearer token for later calls.
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// PlayerSummary is a row of the player list.
type PlayerSummary struct {
	ID       uuid.UUID   `json:"id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	Country  string      `json:"country,omitempty"`
	IsOnline bool        `json:"is_online"`
}
