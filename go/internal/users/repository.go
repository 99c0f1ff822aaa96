package users

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/mcdev12/econempire/go/internal/sqlutil"
	"github.com/mcdev12/econempire/go/internal/users/db"
)

// Querier defines what the repository needs from the database layer
type Querier interface {
	CreateUser(ctx context.Context, arg db.CreateUserParams) (db.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (db.User, error)
	GetUserByUsername(ctx context.Context, username string) (db.User, error)
	GetUserBySessionToken(ctx context.Context, token string) (db.User, error)
	SetSessionToken(ctx context.Context, arg db.SetSessionTokenParams) error
	ClearSessionToken(ctx context.Context, id uuid.UUID) error
	SetUserCountry(ctx context.Context, arg db.SetUserCountryParams) error
	SetUserOnline(ctx context.Context, arg db.SetUserOnlineParams) error
	ResetOnlineFlags(ctx context.Context) error
	ListUsers(ctx context.Context) ([]db.User, error)
}

// Repository implements user data access operations
type Repository struct {
	queries Querier
}

// NewRepository creates a new users repository
func NewRepository(querier Querier) *Repository {
	return &Repository{
		queries: querier,
	}
}

// CreateUser creates a new user
func (r *Repository) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	user, err := r.queries.CreateUser(ctx, db.CreateUserParams{
		ID:           uuid.New(),
		Username:     req.Username,
		Role:         string(req.Role),
		PasswordHash: sqlutil.ToSqlString(req.PasswordHash),
		CreatedAt:    req.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return dbUserToModel(user), nil
}

// GetUser retrieves a user by ID
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := r.queries.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return dbUserToModel(user), nil
}

// GetUserByUsername retrieves a user by username
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := r.queries.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return dbUserToModel(user), nil
}

// GetUserBySessionToken retrieves the user owning a bearer token
func (r *Repository) GetUserBySessionToken(ctx context.Context, token string) (*models.User, error) {
	user, err := r.queries.GetUserBySessionToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by session: %w", err)
	}
	return dbUserToModel(user), nil
}

// SetSessionToken stores a fresh bearer token and the login time.
func (r *Repository) SetSessionToken(ctx context.Context, id uuid.UUID, token string, at time.Time) error {
	err := r.queries.SetSessionToken(ctx, db.SetSessionTokenParams{
		ID:           id,
		SessionToken: sqlutil.ToSqlString(token),
		LastLogin:    sqlutil.ToSqlTime(&at),
	})
	if err != nil {
		return fmt.Errorf("failed to set session token: %w", err)
	}
	return nil
}

// ClearSessionToken invalidates the user's bearer token.
func (r *Repository) ClearSessionToken(ctx context.Context, id uuid.UUID) error {
	if err := r.queries.ClearSessionToken(ctx, id); err != nil {
		return fmt.Errorf("failed to clear session token: %w", err)
	}
	return nil
}

// SetUserCountry binds a country to the user; the empty string unbinds it.
func (r *Repository) SetUserCountry(ctx context.Context, id uuid.UUID, country string) error {
	err := r.queries.SetUserCountry(ctx, db.SetUserCountryParams{
		ID:      id,
		Country: sqlutil.ToSqlString(country),
	})
	if err != nil {
		return fmt.Errorf("failed to set user country: %w", err)
	}
	return nil
}

// SetUserOnline mirrors presence into the users table.
func (r *Repository) SetUserOnline(ctx context.Context, id uuid.UUID, online bool) error {
	if err := r.queries.SetUserOnline(ctx, db.SetUserOnlineParams{ID: id, IsOnline: online}); err != nil {
		return fmt.Errorf("failed to set user online: %w", err)
	}
	return nil
}

// ResetOnlineFlags clears stale online flags left by a previous process.
func (r *Repository) ResetOnlineFlags(ctx context.Context) error {
	if err := r.queries.ResetOnlineFlags(ctx); err != nil {
		return fmt.Errorf("failed to reset online flags: %w", err)
	}
	return nil
}

// ListUsers returns every user
func (r *Repository) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, *dbUserToModel(row))
	}
	return users, nil
}

func dbUserToModel(u db.User) *models.User {
	return &models.User{
		ID:           u.ID,
		Username:     u.Username,
		Role:         models.Role(u.Role),
		Country:      sqlutil.FromSqlString(u.Country),
		PasswordHash: sqlutil.FromSqlString(u.PasswordHash),
		IsOnline:     u.IsOnline,
		LastLogin:    sqlutil.FromSqlTime(u.LastLogin),
		CreatedAt:    u.CreatedAt,
	}
}
