package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/econempire/go/internal/chat"
	chatdb "github.com/mcdev12/econempire/go/internal/chat/db"
	"github.com/mcdev12/econempire/go/internal/config"
	"github.com/mcdev12/econempire/go/internal/economy"
	"github.com/mcdev12/econempire/go/internal/game"
	"github.com/mcdev12/econempire/go/internal/gamestate"
	"github.com/mcdev12/econempire/go/internal/gateway"
	"github.com/mcdev12/econempire/go/internal/presence"
	"github.com/mcdev12/econempire/go/internal/tariff"
	tariffdb "github.com/mcdev12/econempire/go/internal/tariff/db"
	"github.com/mcdev12/econempire/go/internal/users"
	usersdb "github.com/mcdev12/econempire/go/internal/users/db"
	"github.com/rs/zerolog/log"
)

type Services struct {
	UsersApp    *users.App
	Store       *gamestate.Store
	Coordinator *game.Coordinator
	Gateway     *gateway.Service
	Bus         gateway.Bus

	Users   *users.Service
	Games   *game.Service
	Tariffs *tariff.Service
	Chat    *chat.Service
}

func setupBus(natsURL string) (gateway.Bus, error) {
	if natsURL == "" {
		log.Info().Msg("NATS_URL not set, using in-process event bus")
		return gateway.NewLocalBus(), nil
	}
	natsConfig := gateway.DefaultNATSConfig()
	natsConfig.URL = natsURL
	bus, err := gateway.NewNATSBus(natsConfig)
	if err != nil {
		return nil, err
	}
	return bus, nil
}

func setupServices(database *sql.DB, cfg *config.Config) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer
	clock := clockwork.NewRealClock()

	bus, err := setupBus(cfg.NATSURL)
	if err != nil {
		return nil, fmt.Errorf("failed to set up event bus: %w", err)
	}
	broadcaster := gateway.NewBroadcaster(bus, clock)
	tracker := presence.NewTracker(cfg.Game.Countries, clock)

	// Users
	userRepo := users.NewRepository(usersdb.New(database))
	userApp := users.NewApp(userRepo, tracker, clock, cfg.OperatorUsername)

	// Game state
	store := gamestate.NewStore(gamestate.NewRepository(database), clock)

	// Tariffs
	tariffRepo := tariff.NewRepository(tariffdb.New(database))
	ledger := tariff.NewLedger(tariffRepo, store, broadcaster, clock)

	// Rounds
	coordinator := game.NewCoordinator(store, economy.NewSeededGenerator(), ledger, tracker, broadcaster, cfg.Game)

	// Chat
	chatRepo := chat.NewRepository(chatdb.New(database))
	chatApp := chat.NewApp(chatRepo, store, broadcaster, clock, cfg.Game.MaxMessageLength)

	gw := gateway.NewService(gateway.DefaultConfig(), gateway.Dependencies{
		Auth:        userApp,
		Presence:    tracker,
		Users:       userApp,
		Chat:        chatApp,
		Tariffs:     ledger,
		Games:       coordinator,
		Broadcaster: broadcaster,
		Bus:         bus,
		Clock:       clock,
	})
	userApp.SetSessions(gw)

	return &Services{
		UsersApp:    userApp,
		Store:       store,
		Coordinator: coordinator,
		Gateway:     gw,
		Bus:         bus,
		Users:       users.NewService(userApp),
		Games:       game.NewService(coordinator),
		Tariffs:     tariff.NewService(ledger),
		Chat:        chat.NewService(chatApp),
	}, nil
}

// bootstrap restores state persisted by a previous run.
func (s *Services) bootstrap(ctx context.Context, cfg *config.Config) error {
	if err := s.UsersApp.Bootstrap(ctx); err != nil {
		return fmt.Errorf("failed to bootstrap users: %w", err)
	}
	if err := s.Store.RestoreTimers(ctx, cfg.Game.RoundDuration); err != nil {
		return fmt.Errorf("failed to restore round timers: %w", err)
	}
	return nil
}
