package tariff

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/econempire/go/internal/apperr"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/mcdev12/econempire/go/internal/rpc"
)

// ServiceName is the connect service name for tariff operations.
const ServiceName = "econempire.tariff.v1.TariffService"

// Service exposes the ledger over connect
type Service struct {
	ledger *Ledger
}

// NewService creates a new tariff service
func NewService(ledger *Ledger) *Service {
	return &Service{
		ledger: ledger,
	}
}

type SubmitTariffsRequest struct {
	GameID      string   `json:"game_id"`
	RoundNumber int      `json:"round_number"`
	Changes     []Change `json:"changes"`
}

type ListRatesRequest struct {
	GameID string     `json:"game_id"`
	Filter RateFilter `json:"filter"`
}

type ListRatesResponse struct {
	Rates []models.TariffRate `json:"rates"`
}

type HistoryRequest struct {
	GameID string `json:"game_id"`
}

type HistoryResponse struct {
	History []HistoryEntry `json:"history"`
}

// PlayerStatusRequest asks about the caller's country. Operators may name any country.
type PlayerStatusRequest struct {
	GameID      string `json:"game_id"`
	Country     string `json:"country,omitempty"`
	RoundNumber int    `json:"round_number,omitempty"`
}

type MatrixRequest struct {
	GameID      string `json:"game_id"`
	Product     string `json:"product"`
	RoundNumber *int   `json:"round_number,omitempty"`
}

// Handler returns the mount path and handler for the tariff service.
func (s *Service) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	r := rpc.NewRouter(ServiceName, opts...)
	rpc.Handle(r, "SubmitTariffs", s.SubmitTariffs)
	rpc.Handle(r, "ListRates", s.ListRates)
	rpc.Handle(r, "History", s.History)
	rpc.Handle(r, "PlayerStatus", s.PlayerStatus)
	rpc.Handle(r, "Matrix", s.Matrix)
	return r.Handler()
}

// SubmitTariffs applies a batch of tariff changes for the caller's country
func (s *Service) SubmitTariffs(ctx context.Context, caller models.Identity, req *SubmitTariffsRequest) (*SubmitResult, error) {
	if caller.IsOperator() {
		return nil, apperr.New(apperr.KindForbidden, "only players can submit tariffs")
	}
	id, err := parseGameID(req.GameID)
	if err != nil {
		return nil, err
	}
	return s.ledger.Submit(ctx, SubmitRequest{
		GameID:      id,
		RoundNumber: req.RoundNumber,
		Submitter:   caller,
		Changes:     req.Changes,
	})
}

// ListRates lists the rates of a game. Operators only.
func (s *Service) ListRates(ctx context.Context, caller models.Identity, req *ListRatesRequest) (*ListRatesResponse, error) {
	if !caller.IsOperator() {
		return nil, apperr.New(apperr.KindForbidden, "only the operator can list all tariff rates")
	}
	id, err := parseGameID(req.GameID)
	if err != nil {
		return nil, err
	}
	rates, err := s.ledger.RatesFor(ctx, id, req.Filter)
	if err != nil {
		return nil, err
	}
	return &ListRatesResponse{Rates: rates}, nil
}

// History returns rates grouped by round and country. Operators only.
func (s *Service) History(ctx context.Context, caller models.Identity, req *HistoryRequest) (*HistoryResponse, error) {
	if !caller.IsOperator() {
		return nil, apperr.New(apperr.KindForbidden, "only the operator can view tariff history")
	}
	id, err := parseGameID(req.GameID)
	if err != nil {
		return nil, err
	}
	history, err := s.ledger.HistoryFor(ctx, id)
	if err != nil {
		return nil, err
	}
	return &HistoryResponse{History: history}, nil
}

// PlayerStatus reports which products still need a rate this round
func (s *Service) PlayerStatus(ctx context.Context, caller models.Identity, req *PlayerStatusRequest) (*PlayerStatus, error) {
	id, err := parseGameID(req.GameID)
	if err != nil {
		return nil, err
	}
	country := caller.Country
	if caller.IsOperator() && req.Country != "" {
		country = req.Country
	}
	return s.ledger.PlayerStatus(ctx, id, country, req.RoundNumber)
}

// Matrix returns the from × to grid for a product. Operators only.
func (s *Service) Matrix(ctx context.Context, caller models.Identity, req *MatrixRequest) (*Matrix, error) {
	if !caller.IsOperator() {
		return nil, apperr.New(apperr.KindForbidden, "only the operator can view the tariff matrix")
	}
	id, err := parseGameID(req.GameID)
	if err != nil {
		return nil, err
	}
	return s.ledger.MatrixFor(ctx, id, req.Product, req.RoundNumber)
}

func parseGameID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.New(apperr.KindValidationFailed, "invalid game id")
	}
	return id, nil
}
