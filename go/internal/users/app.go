package users

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/econempire/go/internal/apperr"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/mcdev12/econempire/go/internal/presence"
	"github.com/mcdev12/econempire/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const maxUsernameLength = 50

// UsersRepository defines what the app layer needs from the repository
type UsersRepository interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserBySessionToken(ctx context.Context, token string) (*models.User, error)
	SetSessionToken(ctx context.Context, id uuid.UUID, token string, at time.Time) error
	ClearSessionToken(ctx context.Context, id uuid.UUID) error
	SetUserCountry(ctx context.Context, id uuid.UUID, country string) error
	SetUserOnline(ctx context.Context, id uuid.UUID, online bool) error
	ResetOnlineFlags(ctx context.Context) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

// CountryPool hands out countries to players.
type CountryPool interface {
	Assign(userID uuid.UUID, preferred string) (string, error)
	Release(userID uuid.UUID) (string, bool)
	Seed(holders map[string]uuid.UUID)
}

// SessionEnder closes a user's live connections.
type SessionEnder interface {
	EndSessions(ctx context.Context, userID uuid.UUID, reason string)
}

// Reasons passed to SessionEnder.
const (
	ReasonLoggedOut       = "logged out"
	ReasonCountryReleased = "country released"
)

// App handles users business logic
type App struct {
	repo             UsersRepository
	pool             CountryPool
	sessions         SessionEnder
	clock            clockwork.Clock
	operatorUsername string
	newToken         func() string
}

// NewApp creates a new users App. operatorUsername names the identity that
// receives the operator role on first login.
func NewApp(repo UsersRepository, pool CountryPool, clock clockwork.Clock, operatorUsername string) *App {
	return &App{
		repo:             repo,
		pool:             pool,
		clock:            clock,
		operatorUsername: operatorUsername,
		newToken:         uuid.NewString,
	}
}

// SetSessions installs the hook that closes live connections on logout and
// country release. The gateway is built after the App, hence the setter.
func (a *App) SetSessions(sessions SessionEnder) {
	a.sessions = sessions
}

// Bootstrap clears stale online flags and loads country holders into the pool.
func (a *App) Bootstrap(ctx context.Context) error {
	if err := a.repo.ResetOnlineFlags(ctx); err != nil {
		return err
	}
	users, err := a.repo.ListUsers(ctx)
	if err != nil {
		return err
	}
	holders := make(map[string]uuid.UUID)
	for _, u := range users {
		if u.Role == models.RolePlayer && u.Country != "" {
			holders[u.Country] = u.ID
		}
	}
	a.pool.Seed(holders)
	log.Info().Int("users", len(users)).Int("countries_held", len(holders)).Msg("user state loaded")
	return nil
}

// Login signs a user in, creating the account on first use. Players without
// a country are given one from the pool.
func (a *App) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, apperr.New(apperr.KindValidationFailed, "username is required")
	}
	if len(username) > maxUsernameLength {
		return nil, apperr.New(apperr.KindValidationFailed, "username is longer than %d characters", maxUsernameLength)
	}

	user, err := a.findOrCreate(ctx, username, req.Password)
	if err != nil {
		return nil, err
	}

	if user.Role == models.RolePlayer && user.Country == "" {
		country, err := a.assignCountry(ctx, user.ID, req.Country)
		if err != nil {
			return nil, err
		}
		user.Country = country
	}

	token := a.newToken()
	now := a.clock.Now()
	if err := a.repo.SetSessionToken(ctx, user.ID, token, now); err != nil {
		return nil, a.internal(err, "store session")
	}
	user.LastLogin = &now

	log.Info().
		Str("user_id", user.ID.String()).
		Str("username", user.Username).
		Str("role", string(user.Role)).
		Str("country", user.Country).
		Msg("user logged in")

	return &LoginResponse{Token: token, User: user}, nil
}

func (a *App) findOrCreate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := a.repo.GetUserByUsername(ctx, username)
	if err == nil {
		if user.PasswordHash != "" {
			if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
				return nil, apperr.New(apperr.KindUnauthorized, "invalid username or password")
			}
		}
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, a.internal(err, "load user")
	}

	role := models.RolePlayer
	if username == a.operatorUsername {
		role = models.RoleOperator
	}
	var hash string
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperr.New(apperr.KindValidationFailed, "password cannot be used: %v", err)
		}
		hash = string(h)
	}

	user, err = a.repo.CreateUser(ctx, CreateUserRequest{
		Username:     username,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    a.clock.Now(),
	})
	if err != nil {
		if sqlutil.IsUniqueViolation(err) {
			// Lost a race with a concurrent first login of the same name.
			return a.findOrCreate(ctx, username, password)
		}
		return nil, a.internal(err, "create user")
	}
	log.Info().Str("username", username).Str("role", string(role)).Msg("created user")
	return user, nil
}

func (a *App) assignCountry(ctx context.Context, userID uuid.UUID, preferred string) (string, error) {
	country, err := a.pool.Assign(userID, preferred)
	switch {
	case errors.Is(err, presence.ErrNoCountryAvailable):
		if preferred != "" {
			return "", apperr.New(apperr.KindValidationFailed, "unknown country %q", preferred)
		}
		return "", apperr.New(apperr.KindPreconditionFailed, "all countries are taken")
	case errors.Is(err, presence.ErrCountryTaken):
		return "", apperr.New(apperr.KindConflict, "country %s is already taken", preferred)
	case err != nil:
		return "", a.internal(err, "assign country")
	}

	if err := a.repo.SetUserCountry(ctx, userID, country); err != nil {
		a.pool.Release(userID)
		if sqlutil.IsUniqueViolation(err) {
			return "", apperr.New(apperr.KindConflict, "country %s is already taken", country)
		}
		return "", a.internal(err, "store country")
	}
	return country, nil
}

// Authenticate resolves a bearer token to an identity.
func (a *App) Authenticate(ctx context.Context, token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, apperr.New(apperr.KindUnauthorized, "missing credentials")
	}
	user, err := a.repo.GetUserBySessionToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Identity{}, apperr.New(apperr.KindUnauthorized, "invalid or expired session")
		}
		return models.Identity{}, a.internal(err, "authenticate")
	}
	return user.Identity(), nil
}

// Logout invalidates the caller's token and closes their live connections;
// closing them takes the user offline. The country stays bound to the player.
func (a *App) Logout(ctx context.Context, caller models.Identity) error {
	if err := a.repo.ClearSessionToken(ctx, caller.UserID); err != nil {
		return a.internal(err, "clear session")
	}
	a.endSessions(ctx, caller.UserID, ReasonLoggedOut)
	return nil
}

// ReleaseCountry unbinds a player's country so someone else can take it.
func (a *App) ReleaseCountry(ctx context.Context, caller models.Identity, userID uuid.UUID) (string, error) {
	if !caller.IsOperator() {
		return "", apperr.New(apperr.KindForbidden, "only the operator can release countries")
	}
	if _, err := a.repo.GetUser(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperr.New(apperr.KindNotFound, "user not found")
		}
		return "", a.internal(err, "load user")
	}
	country, _ := a.pool.Release(userID)
	if err := a.repo.SetUserCountry(ctx, userID, ""); err != nil {
		return "", a.internal(err, "clear country")
	}
	// Open connections still carry the old country and its room.
	a.endSessions(ctx, userID, ReasonCountryReleased)
	return country, nil
}

// Me returns the caller's user record.
func (a *App) Me(ctx context.Context, caller models.Identity) (*models.User, error) {
	user, err := a.repo.GetUser(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "user not found")
		}
		return nil, a.internal(err, "load user")
	}
	return user, nil
}

// ListPlayers lists players ordered by username with their country and online flag.
func (a *App) ListPlayers(ctx context.Context, caller models.Identity) ([]PlayerSummary, error) {
	if !caller.IsOperator() {
		return nil, apperr.New(apperr.KindForbidden, "only the operator can list players")
	}
	users, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, a.internal(err, "list users")
	}
	out := make([]PlayerSummary, 0, len(users))
	for _, u := range users {
		if u.Role != models.RolePlayer {
			continue
		}
		out = append(out, PlayerSummary{
			ID:       u.ID,
			Username: u.Username,
			Role:     u.Role,
			Country:  u.Country,
			IsOnline: u.IsOnline,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// SetOnline mirrors presence into storage. Failures are logged only.
func (a *App) SetOnline(ctx context.Context, userID uuid.UUID, online bool) {
	if err := a.repo.SetUserOnline(ctx, userID, online); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Bool("online", online).Msg("failed to persist online flag")
	}
}

func (a *App) endSessions(ctx context.Context, userID uuid.UUID, reason string) {
	if a.sessions == nil {
		return
	}
	a.sessions.EndSessions(ctx, userID, reason)
}

func (a *App) internal(err error, op string) error {
	log.Error().Err(err).Str("op", op).Msg("users failure")
	return apperr.Internal(err)
}
