package game_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/econempire/go/internal/apperr"
	"github.com/mcdev12/econempire/go/internal/config"
	"github.com/mcdev12/econempire/go/internal/events"
	"github.com/mcdev12/econempire/go/internal/game"
	"github.com/mcdev12/econempire/go/internal/gamestate"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/mcdev12/econempire/go/internal/presence"
	"github.com/mcdev12/econempire/go/internal/storetest"
	"github.com/mcdev12/econempire/go/internal/tariff"
)

type fixture struct {
	db       *storetest.DB
	clock    *clockwork.FakeClock
	store    *gamestate.Store
	tracker  *presence.Tracker
	rec      *storetest.Recorder
	coord    *game.Coordinator
	rules    config.GameConfig
	operator models.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storetest.New()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC))
	store := gamestate.NewStore(db, clock)
	rules := config.DefaultGameConfig()
	tracker := presence.NewTracker(rules.Countries, clock)
	rec := &storetest.Recorder{}
	ledger := tariff.NewLedger(db, store, rec, clock)

	return &fixture{
		db:       db,
		clock:    clock,
		store:    store,
		tracker:  tracker,
		rec:      rec,
		coord:    game.NewCoordinator(store, storetest.FixedGenerator{}, ledger, tracker, rec, rules),
		rules:    rules,
		operator: models.Identity{UserID: uuid.New(), Username: "op", Role: models.RoleOperator},
	}
}

// join brings one player per country online for the first n countries.
func (f *fixture) join(n int) {
	for _, country := range f.rules.Countries[:n] {
		f.tracker.Connect("conn-"+country, models.Identity{
			UserID:   uuid.New(),
			Username: strings.ToLower(country),
			Role:     models.RolePlayer,
			Country:  country,
		})
	}
}

func (f *fixture) createAndStart(t *testing.T, rounds int) *models.Game {
	t.Helper()
	g, err := f.coord.CreateGame(context.Background(), f.operator, game.CreateGameRequest{TotalRounds: rounds})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	f.join(len(f.rules.Countries))
	g, err = f.coord.StartGame(context.Background(), f.operator, g.ID)
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	return g
}

func gameRequest(rounds int) game.CreateGameRequest {
	return game.CreateGameRequest{TotalRounds: rounds}
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := apperr.KindOf(err); got != kind {
		t.Fatalf("error kind = %s, want %s (%v)", got, kind, err)
	}
}

func TestThreeRoundGame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g := f.createAndStart(t, 3)
	if g.Status != models.GameStatusActive || g.CurrentRound != 1 {
		t.Fatalf("after start: status=%s round=%d", g.Status, g.CurrentRound)
	}

	for want := 2; want <= 3; want++ {
		g, err := f.coord.AdvanceRound(ctx, f.operator, g.ID, 0)
		if err != nil {
			t.Fatalf("advance to %d: %v", want, err)
		}
		if g.CurrentRound != want {
			t.Fatalf("current round = %d, want %d", g.CurrentRound, want)
		}
	}
	if n := f.db.ActiveRounds(g.ID); n != 1 {
		t.Errorf("active rounds = %d, want 1", n)
	}

	_, err := f.coord.AdvanceRound(ctx, f.operator, g.ID, 0)
	requireKind(t, err, apperr.KindPreconditionFailed)
	if !strings.Contains(apperr.PublicMessage(err), "already ended") {
		t.Errorf("message = %q", apperr.PublicMessage(err))
	}

	ended, err := f.coord.EndGame(ctx, f.operator, g.ID)
	if err != nil {
		t.Fatalf("EndGame: %v", err)
	}
	if ended.Status != models.GameStatusEnded || ended.EndedAt == nil {
		t.Fatalf("ended game = %+v", ended)
	}
	if n := f.db.ActiveRounds(g.ID); n != 0 {
		t.Errorf("active rounds after end = %d", n)
	}
	if _, ok := f.store.Timer(g.ID); ok {
		t.Errorf("timer still running after end")
	}

	_, err = f.coord.AdvanceRound(ctx, f.operator, g.ID, 0)
	requireKind(t, err, apperr.KindPreconditionFailed)

	want := []string{events.ActionCreate, events.ActionStart, events.ActionAdvance, events.ActionAdvance, events.ActionEnd}
	if got := f.rec.Actions(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("actions = %v, want %v", got, want)
	}
}

func TestEndGameIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createAndStart(t, 2)

	first, err := f.coord.EndGame(ctx, f.operator, g.ID)
	if err != nil {
		t.Fatalf("EndGame: %v", err)
	}
	published := len(f.rec.Actions())

	second, err := f.coord.EndGame(ctx, f.operator, g.ID)
	if err != nil {
		t.Fatalf("second EndGame: %v", err)
	}
	if !second.EndedAt.Equal(*first.EndedAt) {
		t.Errorf("ended_at changed: %v -> %v", first.EndedAt, second.EndedAt)
	}
	if len(f.rec.Actions()) != published {
		t.Errorf("second end published another state change")
	}
}

func TestEndWaitingGameFails(t *testing.T) {
	f := newFixture(t)
	g, err := f.coord.CreateGame(context.Background(), f.operator, game.CreateGameRequest{})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if g.TotalRounds != f.rules.DefaultTotalRounds {
		t.Errorf("total rounds = %d, want default %d", g.TotalRounds, f.rules.DefaultTotalRounds)
	}
	_, err = f.coord.EndGame(context.Background(), f.operator, g.ID)
	requireKind(t, err, apperr.KindPreconditionFailed)
}

func TestStartNeedsEveryCountryOnline(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
		have  int
	}{
		{"nobody online", func(f *fixture) {}, 0},
		{"one country", func(f *fixture) { f.join(1) }, 1},
		{"two countries", func(f *fixture) { f.join(2) }, 2},
		{"three countries", func(f *fixture) { f.join(3) }, 3},
		{"four countries", func(f *fixture) { f.join(4) }, 4},
		{"two players claim one country", func(f *fixture) {
			f.join(4)
			f.tracker.Connect("conn-usa-2", models.Identity{
				UserID:   uuid.New(),
				Username: "usa2",
				Role:     models.RolePlayer,
				Country:  "USA",
			})
		}, 4},
		{"operator does not count", func(f *fixture) {
			f.join(4)
			f.tracker.Connect("conn-op", f.operator)
		}, 4},
		{"operator with a country does not count", func(f *fixture) {
			f.join(4)
			op := f.operator
			op.Country = f.rules.Countries[4]
			f.tracker.Connect("conn-op", op)
		}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			g, err := f.coord.CreateGame(ctx, f.operator, gameRequest(3))
			if err != nil {
				t.Fatalf("CreateGame: %v", err)
			}
			tt.setup(f)

			_, err = f.coord.StartGame(ctx, f.operator, g.ID)
			requireKind(t, err, apperr.KindPreconditionFailed)
			want := fmt.Sprintf("currently have %d", tt.have)
			if msg := apperr.PublicMessage(err); !strings.Contains(msg, want) || !strings.Contains(msg, "need 5") {
				t.Errorf("message = %q, want it to mention %q", msg, want)
			}

			stored, err := f.store.Game(ctx, g.ID)
			if err != nil {
				t.Fatalf("Game: %v", err)
			}
			if stored.Status != models.GameStatusWaiting || stored.CurrentRound != 0 {
				t.Errorf("failed start changed the game: %+v", stored)
			}
		})
	}
}

func TestCreateGameRejectsBadRounds(t *testing.T) {
	f := newFixture(t)
	_, err := f.coord.CreateGame(context.Background(), f.operator, game.CreateGameRequest{TotalRounds: -2})
	requireKind(t, err, apperr.KindValidationFailed)
}

func TestConcurrentAdvanceOfSameRound(t *testing.T) {
	f := newFixture(t)
	g := f.createAndStart(t, 5)

	const clicks = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.coord.AdvanceRound(context.Background(), f.operator, g.ID, 1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			if !apperr.Is(err, apperr.KindPreconditionFailed) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("advances applied = %d, want 1", succeeded)
	}
	stored, err := f.store.Game(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("Game: %v", err)
	}
	if stored.CurrentRound != 2 {
		t.Errorf("current round = %d, want 2", stored.CurrentRound)
	}
	if n := f.db.ActiveRounds(g.ID); n != 1 {
		t.Errorf("active rounds = %d, want 1", n)
	}
}

func TestOnlyOwningOperatorDrivesGame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	player := models.Identity{UserID: uuid.New(), Username: "p", Role: models.RolePlayer, Country: "USA"}

	_, err := f.coord.CreateGame(ctx, player, game.CreateGameRequest{})
	requireKind(t, err, apperr.KindForbidden)

	g, err := f.coord.CreateGame(ctx, f.operator, game.CreateGameRequest{TotalRounds: 2})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	f.join(5)

	_, err = f.coord.StartGame(ctx, player, g.ID)
	requireKind(t, err, apperr.KindForbidden)

	other := models.Identity{UserID: uuid.New(), Username: "op2", Role: models.RoleOperator}
	_, err = f.coord.StartGame(ctx, other, g.ID)
	requireKind(t, err, apperr.KindForbidden)

	_, err = f.coord.Apply(ctx, player, events.GameStateUpdateCommand{GameID: g.ID.String(), Action: events.ActionReset})
	requireKind(t, err, apperr.KindForbidden)

	_, err = f.coord.StartGame(ctx, f.operator, uuid.New())
	requireKind(t, err, apperr.KindNotFound)
}

func TestApplyDispatchesActions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.join(5)

	g, err := f.coord.Apply(ctx, f.operator, events.GameStateUpdateCommand{Action: events.ActionCreate, TotalRounds: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := g.ID.String()
	for _, action := range []string{events.ActionStart, events.ActionAdvance, events.ActionEnd} {
		if _, err := f.coord.Apply(ctx, f.operator, events.GameStateUpdateCommand{GameID: id, Action: action}); err != nil {
			t.Fatalf("%s: %v", action, err)
		}
	}

	_, err = f.coord.Apply(ctx, f.operator, events.GameStateUpdateCommand{GameID: id, Action: "pause"})
	requireKind(t, err, apperr.KindValidationFailed)
	_, err = f.coord.Apply(ctx, f.operator, events.GameStateUpdateCommand{GameID: "nope", Action: events.ActionEnd})
	requireKind(t, err, apperr.KindValidationFailed)
}

func TestResetRegeneratesBaseline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createAndStart(t, 3)
	if _, err := f.coord.AdvanceRound(ctx, f.operator, g.ID, 1); err != nil {
		t.Fatalf("AdvanceRound: %v", err)
	}
	if _, err := f.coord.EndGame(ctx, f.operator, g.ID); err != nil {
		t.Fatalf("EndGame: %v", err)
	}

	reset, err := f.coord.ResetGame(ctx, f.operator, g.ID)
	if err != nil {
		t.Fatalf("ResetGame: %v", err)
	}
	if reset.Status != models.GameStatusWaiting || reset.CurrentRound != 0 || reset.StartedAt != nil || reset.EndedAt != nil {
		t.Fatalf("reset game = %+v", reset)
	}
	if n := f.db.ActiveRounds(g.ID); n != 0 {
		t.Errorf("active rounds after reset = %d", n)
	}
	if _, ok := f.store.Timer(g.ID); ok {
		t.Errorf("timer survived reset")
	}

	snap, err := f.coord.Snapshot(ctx, f.operator, g.ID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Rounds) != 0 {
		t.Errorf("rounds after reset = %d", len(snap.Rounds))
	}
	produced := map[string]int{}
	for _, p := range snap.Production {
		produced[p.Product] += p.Quantity
	}
	demanded := map[string]int{}
	for _, d := range snap.Demand {
		demanded[d.Product] += d.Quantity
	}
	for _, product := range f.rules.Products {
		if produced[product] != 100 || demanded[product] != 100 {
			t.Errorf("%s: production=%d demand=%d, want 100 each", product, produced[product], demanded[product])
		}
	}
	for _, r := range snap.TariffRates {
		if r.RoundNumber != 0 {
			t.Errorf("rate from round %d survived reset", r.RoundNumber)
		}
	}

	// A reset game can be played again.
	again, err := f.coord.StartGame(ctx, f.operator, g.ID)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if again.CurrentRound != 1 {
		t.Errorf("current round after restart = %d", again.CurrentRound)
	}
}
