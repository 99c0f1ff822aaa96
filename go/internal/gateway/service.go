// Package gateway is the realtime side of the game: websocket connections
// grouped into rooms, the broadcaster that addresses events to them, and the
// commands clients send back.
package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/econempire/go/internal/chat"
	"github.com/mcdev12/econempire/go/internal/events"
	"github.com/mcdev12/econempire/go/internal/game"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/mcdev12/econempire/go/internal/presence"
	"github.com/mcdev12/econempire/go/internal/tariff"
	"github.com/rs/zerolog/log"
)

// Authenticator resolves a bearer token to an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Identity, error)
}

// PresenceTracker records which identities hold live connections.
type PresenceTracker interface {
	Connect(connectionID string, identity models.Identity) bool
	Disconnect(connectionID string) (presence.Entry, bool)
	Online() []presence.UserStatus
}

// OnlineRecorder mirrors presence into storage.
type OnlineRecorder interface {
	SetOnline(ctx context.Context, userID uuid.UUID, online bool)
}

// ChatSender posts chat messages.
type ChatSender interface {
	Send(ctx context.Context, sender models.Identity, req chat.SendRequest) (*models.ChatMessage, error)
}

// TariffRelayer announces unrecorded tariff changes.
type TariffRelayer interface {
	Relay(ctx context.Context, caller models.Identity, req tariff.RelayRequest) (*events.TariffUpdatedPayload, error)
}

// GameController runs lifecycle actions and serves game state.
type GameController interface {
	Apply(ctx context.Context, caller models.Identity, cmd events.GameStateUpdateCommand) (*models.Game, error)
	SyncRoundTimer(ctx context.Context, caller models.Identity, gameID uuid.UUID) (*events.RoundTimerUpdatedPayload, error)
	State(ctx context.Context, caller models.Identity, gameID uuid.UUID) (*game.State, error)
}

// Dependencies are the collaborators the gateway routes to.
type Dependencies struct {
	Auth        Authenticator
	Presence    PresenceTracker
	Users       OnlineRecorder
	Chat        ChatSender
	Tariffs     TariffRelayer
	Games       GameController
	Broadcaster *Broadcaster
	Bus         Bus
	Clock       clockwork.Clock
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	CommandTimeout   time.Duration
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		CommandTimeout:   10 * time.Second,
	}
}

// Service handles WebSocket connections, presence and command dispatch
type Service struct {
	manager *ConnectionManager
	deps    Dependencies
	config  Config
}

// NewService creates a new gateway service
func NewService(config Config, deps Dependencies) *Service {
	s := &Service{
		deps:   deps,
		config: config,
	}
	s.manager = NewConnectionManager(config.ConnectionConfig, s)
	return s
}

// Manager returns the connection manager.
func (s *Service) Manager() *ConnectionManager {
	return s.manager
}

// Start subscribes to the bus and delivers events until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting gateway service")

	if err := s.deps.Bus.Subscribe(ctx, s.manager.Deliver); err != nil {
		return err
	}
	s.manager.Start(ctx)

	log.Info().Msg("gateway service stopped")
	return nil
}

// HandleOpen registers presence, announces a user who just came online and
// sends the new connection the current roster.
func (s *Service) HandleOpen(c *Connection) {
	if s.deps.Presence.Connect(c.ID, c.Identity) {
		s.deps.Users.SetOnline(context.Background(), c.Identity.UserID, true)
		s.deps.Broadcaster.UserStatus(c.Identity, true)
	}

	roster := events.OnlineUsersPayload{Users: []events.UserStatusPayload{}}
	for _, status := range s.deps.Presence.Online() {
		roster.Users = append(roster.Users, userStatusPayload(status.Identity, status.Online))
	}
	s.sendEvent(c, events.TypeOnlineUsers, "", roster)
}

// HandleClose drops presence and announces a user whose last connection closed.
func (s *Service) HandleClose(c *Connection) {
	entry, wentOffline := s.deps.Presence.Disconnect(c.ID)
	if !wentOffline {
		return
	}
	s.deps.Users.SetOnline(context.Background(), entry.Identity.UserID, false)
	s.deps.Broadcaster.UserStatus(entry.Identity, false)
}

// EndSessions closes every live connection of userID, telling each client
// why. Closing runs HandleClose, which takes the user offline. Other
// processes sharing the bus close theirs when the event reaches them.
func (s *Service) EndSessions(_ context.Context, userID uuid.UUID, reason string) {
	payload := events.SessionEndedPayload{UserID: userID.String(), Reason: reason}
	event, err := NewEvent(events.TypeSessionEnded, "", payload, s.deps.Clock.Now())
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to build event")
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to marshal event")
		return
	}

	closed := s.manager.CloseUser(userID, data)
	s.deps.Broadcaster.SessionEnded(payload)

	log.Info().
		Str("user_id", userID.String()).
		Str("reason", reason).
		Int("connections", closed).
		Msg("sessions ended")
}

func (s *Service) sendEvent(c *Connection, eventType events.Type, gameID string, payload any) {
	event, err := NewEvent(eventType, gameID, payload, s.deps.Clock.Now())
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to build event")
		return
	}
	s.manager.SendTo(c, event)
}
