package game

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/econempire/go/internal/apperr"
	"github.com/mcdev12/econempire/go/internal/events"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/mcdev12/econempire/go/internal/rpc"
)

// ServiceName is the connect service name for game lifecycle operations.
const ServiceName = "econempire.game.v1.GameService"

// Service exposes the coordinator over connect
type Service struct {
	coordinator *Coordinator
}

// NewService creates a new game service
func NewService(coordinator *Coordinator) *Service {
	return &Service{
		coordinator: coordinator,
	}
}

// GameRequest addresses a single game.
type GameRequest struct {
	GameID string `json:"game_id"`
}

// AdvanceRoundRequest addresses a game and optionally the round being closed.
type AdvanceRoundRequest struct {
	GameID        string `json:"game_id"`
	ExpectedRound int    `json:"expected_round,omitempty"`
}

// GameResponse carries a game after a lifecycle change.
type GameResponse struct {
	Game *models.Game `json:"game"`
}

type ListGamesRequest struct{}

type ListGamesResponse struct {
	Games []GameSummary `json:"games"`
}

// Handler returns the mount path and handler for the game service.
func (s *Service) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	r := rpc.NewRouter(ServiceName, opts...)
	rpc.Handle(r, "CreateGame", s.CreateGame)
	rpc.Handle(r, "StartGame", s.StartGame)
	rpc.Handle(r, "AdvanceRound", s.AdvanceRound)
	rpc.Handle(r, "EndGame", s.EndGame)
	rpc.Handle(r, "ResetGame", s.ResetGame)
	rpc.Handle(r, "ListGames", s.ListGames)
	rpc.Handle(r, "GetState", s.GetState)
	rpc.Handle(r, "SyncRoundTimer", s.SyncRoundTimer)
	return r.Handler()
}

// CreateGame creates a new game
func (s *Service) CreateGame(ctx context.Context, caller models.Identity, req *CreateGameRequest) (*GameResponse, error) {
	return gameResponse(s.coordinator.CreateGame(ctx, caller, *req))
}

// StartGame starts a waiting game
func (s *Service) StartGame(ctx context.Context, caller models.Identity, req *GameRequest) (*GameResponse, error) {
	id, err := parseGameID(req.GameID)
	if err != nil {
		return nil, err
	}
	return gameResponse(s.coordinator.StartGame(ctx, caller, id))
}

// AdvanceRound moves a game to its next round
func (s *Service) AdvanceRound(ctx context.Context, caller models.Identity, req *AdvanceRoundRequest) (*GameResponse, error) {
	id, err := parseGameID(req.GameID)
	if err != nil {
		return nil, err
	}
	return gameResponse(s.coordinator.AdvanceRound(ctx, caller, id, req.ExpectedRound))
}

// EndGame ends a game
func (s *Service) EndGame(ctx context.Context, caller models.Identity, req *GameRequest) (*GameResponse, error) {
	id, err := parseGameID(req.GameID)
	if err != nil {
		return nil, err
	}
	return gameResponse(s.coordinator.EndGame(ctx, caller, id))
}

// ResetGame returns a game to waiting with a new economy
func (s *Service) ResetGame(ctx context.Context, caller models.Identity, req *GameRequest) (*GameResponse, error) {
	id, err := parseGameID(req.GameID)
	if err != nil {
		return nil, err
	}
	return gameResponse(s.coordinator.ResetGame(ctx, caller, id))
}

// ListGames lists all games
func (s *Service) ListGames(ctx context.Context, _ models.Identity, _ *ListGamesRequest) (*ListGamesResponse, error) {
	games, err := s.coordinator.ListGames(ctx)
	if err != nil {
		return nil, err
	}
	return &ListGamesResponse{Games: games}, nil
}

// GetState returns the caller's full view of a game
func (s *Service) GetState(ctx context.Context, caller models.Identity, req *GameRequest) (*State, error) {
	id, err := parseGameID(req.GameID)
	if err != nil {
		return nil, err
	}
	return s.coordinator.State(ctx, caller, id)
}

// SyncRoundTimer re-broadcasts the server round timer
func (s *Service) SyncRoundTimer(ctx context.Context, caller models.Identity, req *GameRequest) (*events.RoundTimerUpdatedPayload, error) {
	id, err := parseGameID(req.GameID)
	if err != nil {
		return nil, err
	}
	return s.coordinator.SyncRoundTimer(ctx, caller, id)
}

func gameResponse(game *models.Game, err error) (*GameResponse, error) {
	if err != nil {
		return nil, err
	}
	return &GameResponse{Game: game}, nil
}

func parseGameID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.New(apperr.KindValidationFailed, "invalid game id")
	}
	return id, nil
}
