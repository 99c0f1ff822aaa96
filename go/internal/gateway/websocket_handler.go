package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/econempire/go/internal/apperr"
	"github.com/mcdev12/econempire/go/internal/rpc"
	"github.com/rs/zerolog/log"
)

// RegisterRoutes registers the WebSocket and state routes
func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/ws", s.HandleConnection)
	r.Get("/ws/stats", s.HandleConnectionStats)
	r.Get("/api/games/{gameID}/state", s.HandleGetState)
	log.Info().Msg("gateway routes registered")
}

// HandleConnection authenticates the bearer token (Authorization header or
// ?token=) and upgrades the request to a WebSocket.
func (s *Service) HandleConnection(w http.ResponseWriter, r *http.Request) {
	identity, err := s.deps.Auth.Authenticate(r.Context(), requestToken(r))
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := s.manager.UpgradeConnection(w, r, identity); err != nil {
		// The upgrader has already replied to the client.
		log.Warn().
			Err(err).
			Str("user_id", identity.UserID.String()).
			Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats returns statistics about active connections
func (s *Service) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.GetConnectionStats())
}

// HandleGetState handles GET /api/games/{gameID}/state. Clients call it after
// reconnecting, since missed events are never replayed.
func (s *Service) HandleGetState(w http.ResponseWriter, r *http.Request) {
	identity, err := s.deps.Auth.Authenticate(r.Context(), requestToken(r))
	if err != nil {
		writeError(w, err)
		return
	}

	gameID, err := uuid.Parse(chi.URLParam(r, "gameID"))
	if err != nil {
		writeError(w, apperr.New(apperr.KindValidationFailed, "invalid game id"))
		return
	}

	state, err := s.deps.Games.State(r.Context(), identity, gameID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func requestToken(r *http.Request) string {
	if token := rpc.BearerToken(r.Header); token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

// ErrorResponse is the JSON body of a failed HTTP request.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, apperr.HTTPStatus(kind), ErrorResponse{Kind: string(kind), Message: apperr.PublicMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
