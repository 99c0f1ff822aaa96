package gamestate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/econempire/go/internal/gamestate"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/mcdev12/econempire/go/internal/storetest"
)

func TestRepositoryLifecycleGuards(t *testing.T) {
	database := storetest.OpenPostgres(t)
	repo := gamestate.NewRepository(database)
	ctx := context.Background()
	operator := storetest.InsertUser(t, database, "operator", "operator")

	at := time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC)
	baseline := models.Baseline{
		Production: []models.ProductionEntry{{Country: "USA", Product: "Steel", Quantity: 50}},
		Demand:     []models.DemandEntry{{Country: "China", Product: "Steel", Quantity: 40}},
	}
	game, err := repo.CreateGame(ctx, gamestate.CreateGameParams{
		ID:          uuid.New(),
		TotalRounds: 2,
		OperatorID:  operator,
		CreatedAt:   at,
	}, baseline)
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if game.Status != models.GameStatusWaiting || game.CurrentRound != 0 {
		t.Fatalf("new game = %s round %d", game.Status, game.CurrentRound)
	}

	// Nothing to advance or end before the game starts.
	if _, err := repo.AdvanceRound(ctx, game.ID, 0, at); !errors.Is(err, gamestate.ErrStateChanged) {
		t.Errorf("advance waiting game: got %v, want ErrStateChanged", err)
	}
	if _, err := repo.EndGame(ctx, game.ID, at); !errors.Is(err, gamestate.ErrStateChanged) {
		t.Errorf("end waiting game: got %v, want ErrStateChanged", err)
	}

	started, err := repo.StartGame(ctx, game.ID, at.Add(time.Minute))
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if started.Status != models.GameStatusActive || started.CurrentRound != 1 || started.StartedAt == nil {
		t.Fatalf("started game = %+v", started)
	}
	if _, err := repo.StartGame(ctx, game.ID, at.Add(2*time.Minute)); !errors.Is(err, gamestate.ErrStateChanged) {
		t.Errorf("second start: got %v, want ErrStateChanged", err)
	}

	advanced, err := repo.AdvanceRound(ctx, game.ID, 1, at.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("AdvanceRound: %v", err)
	}
	if advanced.CurrentRound != 2 {
		t.Fatalf("current round = %d, want 2", advanced.CurrentRound)
	}
	// A caller still at round 1 lost the race.
	if _, err := repo.AdvanceRound(ctx, game.ID, 1, at.Add(4*time.Minute)); !errors.Is(err, gamestate.ErrStateChanged) {
		t.Errorf("stale advance: got %v, want ErrStateChanged", err)
	}
	// The last round has no successor.
	if _, err := repo.AdvanceRound(ctx, game.ID, 2, at.Add(4*time.Minute)); !errors.Is(err, gamestate.ErrStateChanged) {
		t.Errorf("advance past total rounds: got %v, want ErrStateChanged", err)
	}

	ended, err := repo.EndGame(ctx, game.ID, at.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("EndGame: %v", err)
	}
	if ended.Status != models.GameStatusEnded || ended.EndedAt == nil {
		t.Fatalf("ended game = %+v", ended)
	}
	if _, err := repo.EndGame(ctx, game.ID, at.Add(6*time.Minute)); !errors.Is(err, gamestate.ErrStateChanged) {
		t.Errorf("second end: got %v, want ErrStateChanged", err)
	}

	rounds, err := repo.ListRounds(ctx, game.ID)
	if err != nil {
		t.Fatalf("ListRounds: %v", err)
	}
	if len(rounds) != 2 {
		t.Fatalf("rounds = %d, want 2", len(rounds))
	}
	for _, r := range rounds {
		if r.Status != models.RoundStatusCompleted || r.EndTime == nil {
			t.Errorf("round %d = %s, want completed with an end time", r.RoundNumber, r.Status)
		}
	}
}

func TestRepositoryResetRestoresBaseline(t *testing.T) {
	database := storetest.OpenPostgres(t)
	repo := gamestate.NewRepository(database)
	ctx := context.Background()
	operator := storetest.InsertUser(t, database, "operator", "operator")

	at := time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC)
	first := models.Baseline{
		Production: []models.ProductionEntry{{Country: "USA", Product: "Steel", Quantity: 50}},
	}
	game, err := repo.CreateGame(ctx, gamestate.CreateGameParams{
		ID: uuid.New(), TotalRounds: 3, OperatorID: operator, CreatedAt: at,
	}, first)
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if _, err := repo.StartGame(ctx, game.ID, at); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	second := models.Baseline{
		Production: []models.ProductionEntry{{Country: "Japan", Product: "Grain", Quantity: 30}},
	}
	reset, err := repo.ResetGame(ctx, game.ID, second, at.Add(time.Minute))
	if err != nil {
		t.Fatalf("ResetGame: %v", err)
	}
	if reset.Status != models.GameStatusWaiting || reset.CurrentRound != 0 || reset.StartedAt != nil {
		t.Fatalf("reset game = %+v", reset)
	}

	rounds, err := repo.ListRounds(ctx, game.ID)
	if err != nil {
		t.Fatalf("ListRounds: %v", err)
	}
	if len(rounds) != 0 {
		t.Errorf("rounds after reset = %d, want 0", len(rounds))
	}
	production, err := repo.ListProduction(ctx, game.ID)
	if err != nil {
		t.Fatalf("ListProduction: %v", err)
	}
	if len(production) != 1 || production[0].Country != "Japan" || production[0].Quantity != 30 {
		t.Errorf("production after reset = %+v", production)
	}

	// The reset game can be started again.
	if _, err := repo.StartGame(ctx, game.ID, at.Add(2*time.Minute)); err != nil {
		t.Errorf("restart: %v", err)
	}
}
