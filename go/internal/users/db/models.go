package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID      `json:"id"`
	Username     string         `json:"username"`
	Role         string         `json:"role"`
	Country      sql.NullString `json:"country"`
	PasswordHash sql.NullString `json:"password_hash"`
	SessionToken sql.NullString `json:"session_token"`
	IsOnline     bool           `json:"is_online"`
	LastLogin    sql.NullTime   `json:"last_login"`
	CreatedAt    time.Time      `json:"created_at"`
}
