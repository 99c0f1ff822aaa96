package users

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/econempire/go/internal/apperr"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/mcdev12/econempire/go/internal/rpc"
)

// ServiceName is the connect service name for user operations.
const ServiceName = "econempire.user.v1.UserService"

// LoginProcedure is the only procedure callable without a bearer token.
const LoginProcedure = "/" + ServiceName + "/Login"

// UsersApp defines what the service layer needs from the users application
type UsersApp interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context, caller models.Identity) error
	Me(ctx context.Context, caller models.Identity) (*models.User, error)
	ListPlayers(ctx context.Context, caller models.Identity) ([]PlayerSummary, error)
	ReleaseCountry(ctx context.Context, caller models.Identity, userID uuid.UUID) (string, error)
}

// Service exposes user operations over connect
type Service struct {
	app UsersApp
}

// NewService creates a new users service
func NewService(app UsersApp) *Service {
	return &Service{
		app: app,
	}
}

type (
	LogoutRequest  struct{}
	LogoutResponse struct {
		Success bool `json:"success"`
	}
	MeRequest  struct{}
	MeResponse struct {
		User *models.User `json:"user"`
	}
	ListPlayersRequest  struct{}
	ListPlayersResponse struct {
		Players []PlayerSummary `json:"players"`
	}
	ReleaseCountryRequest struct {
		UserID string `json:"user_id"`
	}
	ReleaseCountryResponse struct {
		Country string `json:"country"`
	}
)

// Handler returns the mount path and handler for the user service.
func (s *Service) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	r := rpc.NewRouter(ServiceName, opts...)
	rpc.HandlePublic(r, "Login", s.Login)
	rpc.Handle(r, "Logout", s.Logout)
	rpc.Handle(r, "Me", s.Me)
	rpc.Handle(r, "ListPlayers", s.ListPlayers)
	rpc.Handle(r, "ReleaseCountry", s.ReleaseCountry)
	return r.Handler()
}

// Login signs a user in and returns a bearer token
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	return s.app.Login(ctx, *req)
}

// Logout invalidates the caller's token
func (s *Service) Logout(ctx context.Context, caller models.Identity, _ *LogoutRequest) (*LogoutResponse, error) {
	if err := s.app.Logout(ctx, caller); err != nil {
		return nil, err
	}
	return &LogoutResponse{Success: true}, nil
}

// Me returns the caller's user record
func (s *Service) Me(ctx context.Context, caller models.Identity, _ *MeRequest) (*MeResponse, error) {
	user, err := s.app.Me(ctx, caller)
	if err != nil {
		return nil, err
	}
	return &MeResponse{User: user}, nil
}

// ListPlayers lists players for the operator console
func (s *Service) ListPlayers(ctx context.Context, caller models.Identity, _ *ListPlayersRequest) (*ListPlayersResponse, error) {
	players, err := s.app.ListPlayers(ctx, caller)
	if err != nil {
		return nil, err
	}
	return &ListPlayersResponse{Players: players}, nil
}

// ReleaseCountry frees a player's country
func (s *Service) ReleaseCountry(ctx context.Context, caller models.Identity, req *ReleaseCountryRequest) (*ReleaseCountryResponse, error) {
	id, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, apperr.New(apperr.KindValidationFailed, "invalid user id")
	}
	country, err := s.app.ReleaseCountry(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return &ReleaseCountryResponse{Country: country}, nil
}
