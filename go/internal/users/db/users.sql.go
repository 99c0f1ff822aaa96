package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const userColumns = `id, username, role, country, password_hash, session_token, is_online, last_login, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Role,
		&i.Country,
		&i.PasswordHash,
		&i.SessionToken,
		&i.IsOnline,
		&i.LastLogin,
		&i.CreatedAt,
	)
	return i, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (id, username, role, password_hash, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns

type CreateUserParams struct {
	ID           uuid.UUID      `json:"id"`
	Username     string         `json:"username"`
	Role         string         `json:"role"`
	PasswordHash sql.NullString `json:"password_hash"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, createUser,
		arg.ID,
		arg.Username,
		arg.Role,
		arg.PasswordHash,
		arg.CreatedAt,
	))
}

const getUser = `-- name: GetUser :one
SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUser, id))
}

const getUserByUsername = `-- name: GetUserByUsername :one
SELECT ` + userColumns + ` FROM users WHERE username = $1`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByUsername, username))
}

const getUserBySessionToken = `-- name: GetUserBySessionToken :one
SELECT ` + userColumns + ` FROM users WHERE session_token = $1`

func (q *Queries) GetUserBySessionToken(ctx context.Context, token string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserBySessionToken, token))
}

const setSessionToken = `-- name: SetSessionToken :exec
UPDATE users SET session_token = $2, last_login = $3 WHERE id = $1`

type SetSessionTokenParams struct {
	ID           uuid.UUID      `json:"id"`
	SessionToken sql.NullString `json:"session_token"`
	LastLogin    sql.NullTime   `json:"last_login"`
}

func (q *Queries) SetSessionToken(ctx context.Context, arg SetSessionTokenParams) error {
	_, err := q.db.ExecContext(ctx, setSessionToken, arg.ID, arg.SessionToken, arg.LastLogin)
	return err
}

const clearSessionToken = `-- name: ClearSessionToken :exec
UPDATE users SET session_token = NULL WHERE id = $1`

func (q *Queries) ClearSessionToken(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, clearSessionToken, id)
	return err
}

const setUserCountry = `-- name: SetUserCountry :exec
UPDATE users SET country = $2 WHERE id = $1`

type SetUserCountryParams struct {
	ID      uuid.UUID      `json:"id"`
	Country sql.NullString `json:"country"`
}

func (q *Queries) SetUserCountry(ctx context.Context, arg SetUserCountryParams) error {
	_, err := q.db.ExecContext(ctx, setUserCountry, arg.ID, arg.Country)
	return err
}

const setUserOnline = `-- name: SetUserOnline :exec
UPDATE users SET is_online = $2 WHERE id = $1`

type SetUserOnlineParams struct {
	ID       uuid.UUID `json:"id"`
	IsOnline bool      `json:"is_online"`
}

func (q *Queries) SetUserOnline(ctx context.Context, arg SetUserOnlineParams) error {
	_, err := q.db.ExecContext(ctx, setUserOnline, arg.ID, arg.IsOnline)
	return err
}

const resetOnlineFlags = `-- name: ResetOnlineFlags :exec
UPDATE users SET is_online = FALSE WHERE is_online`

func (q *Queries) ResetOnlineFlags(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, resetOnlineFlags)
	return err
}

const listUsers = `-- name: ListUsers :many
SELECT ` + userColumns + ` FROM users ORDER BY role, country NULLS LAST, username`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		i, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
