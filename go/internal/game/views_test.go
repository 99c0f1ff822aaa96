package game_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/econempire/go/internal/apperr"
	"github.com/mcdev12/econempire/go/internal/models"
)

func TestPlayerViewShowsOwnCountry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createAndStart(t, 3)

	view, err := f.coord.PlayerView(ctx, g.ID, "China")
	if err != nil {
		t.Fatalf("PlayerView: %v", err)
	}
	for _, p := range view.Production {
		if p.Country != "China" {
			t.Errorf("production of %s leaked", p.Country)
		}
	}
	demanded := map[string]bool{}
	for _, d := range view.Demand {
		if d.Country != "China" {
			t.Errorf("demand of %s leaked", d.Country)
		}
		demanded[d.Product] = true
	}
	if len(view.Production) == 0 || len(view.Demand) == 0 {
		t.Fatalf("view = %+v", view)
	}
	if len(view.TariffRates) == 0 {
		t.Fatalf("no tariff rates in view")
	}
	for _, r := range view.TariffRates {
		if !demanded[r.Product] {
			t.Errorf("rate for %s, which China does not import", r.Product)
		}
		if r.RoundNumber > g.CurrentRound {
			t.Errorf("rate from future round %d", r.RoundNumber)
		}
	}
	if view.Timer == nil || view.Timer.Round != 1 {
		t.Errorf("timer = %+v", view.Timer)
	}

	_, err = f.coord.PlayerView(ctx, g.ID, "Atlantis")
	requireKind(t, err, apperr.KindValidationFailed)
	_, err = f.coord.PlayerView(ctx, g.ID, "")
	requireKind(t, err, apperr.KindPreconditionFailed)
}

func TestStateDependsOnRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createAndStart(t, 2)

	state, err := f.coord.State(ctx, f.operator, g.ID)
	if err != nil {
		t.Fatalf("operator State: %v", err)
	}
	if state.Snapshot == nil || state.PlayerView != nil {
		t.Fatalf("operator state = %+v", state)
	}

	player := models.Identity{UserID: uuid.New(), Username: "de", Role: models.RolePlayer, Country: "Germany"}
	state, err = f.coord.State(ctx, player, g.ID)
	if err != nil {
		t.Fatalf("player State: %v", err)
	}
	if state.PlayerView == nil || state.Snapshot != nil || state.PlayerView.Country != "Germany" {
		t.Fatalf("player state = %+v", state)
	}

	_, err = f.coord.Snapshot(ctx, player, g.ID)
	requireKind(t, err, apperr.KindForbidden)
}

func TestStartPublishesPlayerViews(t *testing.T) {
	f := newFixture(t)
	f.createAndStart(t, 2)

	countries := map[string]bool{}
	for _, d := range f.rec.Data {
		if d.Country != "" {
			countries[d.Country] = true
		}
	}
	for _, c := range f.rules.Countries {
		if !countries[c] {
			t.Errorf("no player view published for %s", c)
		}
	}
}

func TestRoundClockSendsFinalZeroOnce(t *testing.T) {
	f := newFixture(t)
	g := f.createAndStart(t, 2)
	window := f.rules.RoundDuration

	base := f.rec.TimerCount()
	if got := f.rec.LastTimer().TimeRemainingSec; got != int(window/time.Second) {
		t.Fatalf("start tick remaining = %d", got)
	}

	f.clock.Advance(window - time.Second)
	f.coord.Tick()
	if got := f.rec.LastTimer(); got.TimeRemainingSec != 1 || got.GameID != g.ID.String() {
		t.Fatalf("tick = %+v", got)
	}

	f.clock.Advance(5 * time.Second)
	f.coord.Tick()
	if got := f.rec.LastTimer().TimeRemainingSec; got != 0 {
		t.Fatalf("final tick remaining = %d", got)
	}
	f.coord.Tick()
	if n := f.rec.TimerCount() - base; n != 2 {
		t.Errorf("ticks after expiry = %d, want 2", n)
	}

	// The round stays open after the timer runs out.
	stored, err := f.store.Game(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("Game: %v", err)
	}
	if stored.Status != models.GameStatusActive || stored.CurrentRound != 1 {
		t.Errorf("timer expiry changed the game: %+v", stored)
	}

	// Advancing restarts the countdown.
	if _, err := f.coord.AdvanceRound(context.Background(), f.operator, g.ID, 1); err != nil {
		t.Fatalf("AdvanceRound: %v", err)
	}
	if got := f.rec.LastTimer(); got.CurrentRound != 2 || got.TimeRemainingSec != int(window/time.Second) {
		t.Errorf("timer after advance = %+v", got)
	}
}

func TestSyncRoundTimer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, err := f.coord.CreateGame(ctx, f.operator, gameRequest(2))
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	_, err = f.coord.SyncRoundTimer(ctx, f.operator, g.ID)
	requireKind(t, err, apperr.KindPreconditionFailed)

	f.join(5)
	if _, err := f.coord.StartGame(ctx, f.operator, g.ID); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	f.clock.Advance(100 * time.Second)

	payload, err := f.coord.SyncRoundTimer(ctx, f.operator, g.ID)
	if err != nil {
		t.Fatalf("SyncRoundTimer: %v", err)
	}
	if want := int((f.rules.RoundDuration - 100*time.Second) / time.Second); payload.TimeRemainingSec != want {
		t.Errorf("remaining = %d, want %d", payload.TimeRemainingSec, want)
	}

	player := models.Identity{UserID: uuid.New(), Role: models.RolePlayer, Country: "USA"}
	_, err = f.coord.SyncRoundTimer(ctx, player, g.ID)
	requireKind(t, err, apperr.KindForbidden)
}

func TestListGames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := f.coord.CreateGame(ctx, f.operator, gameRequest(3)); err != nil {
			t.Fatalf("CreateGame: %v", err)
		}
		f.clock.Advance(time.Minute)
	}
	games, err := f.coord.ListGames(ctx)
	if err != nil {
		t.Fatalf("ListGames: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("games = %d", len(games))
	}
}
