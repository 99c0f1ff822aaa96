// Package storetest provides an in-memory stand-in for the Postgres
// repositories. It keeps the same guarded-update semantics so app logic can
// be tested without a database.
package storetest

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mcdev12/econempire/go/internal/chat"
	"github.com/mcdev12/econempire/go/internal/gamestate"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/mcdev12/econempire/go/internal/tariff"
	"github.com/mcdev12/econempire/go/internal/users"
)

type roundKey struct {
	game  uuid.UUID
	round int
}

type tariffKey struct {
	game     uuid.UUID
	round    int
	product  string
	from, to string
}

// DB is an in-memory database shared by every repository interface.
type DB struct {
	mu sync.Mutex

	games      map[uuid.UUID]models.Game
	rounds     map[roundKey]models.Round
	production map[uuid.UUID][]models.ProductionEntry
	demand     map[uuid.UUID][]models.DemandEntry
	tariffs    map[tariffKey]models.TariffRate
	messages   []models.ChatMessage
	users      map[uuid.UUID]models.User
	sessions   map[string]uuid.UUID

	failures map[string]error
}

// New returns an empty database.
func New() *DB {
	return &DB{
		games:      make(map[uuid.UUID]models.Game),
		rounds:     make(map[roundKey]models.Round),
		production: make(map[uuid.UUID][]models.ProductionEntry),
		demand:     make(map[uuid.UUID][]models.DemandEntry),
		tariffs:    make(map[tariffKey]models.TariffRate),
		users:      make(map[uuid.UUID]models.User),
		sessions:   make(map[string]uuid.UUID),
		failures:   make(map[string]error),
	}
}

var (
	_ gamestate.GameRepository = (*DB)(nil)
	_ tariff.TariffRepository  = (*DB)(nil)
	_ chat.ChatRepository      = (*DB)(nil)
	_ users.UsersRepository    = (*DB)(nil)
)

// FailOn makes every later call of method return err. A nil err clears it.
func (d *DB) FailOn(method string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.failures, method)
		return
	}
	d.failures[method] = err
}

func (d *DB) fail(method string) error {
	return d.failures[method]
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, sql.ErrNoRows)
}

// Games

func (d *DB) CreateGame(_ context.Context, params gamestate.CreateGameParams, baseline models.Baseline) (*models.Game, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CreateGame"); err != nil {
		return nil, err
	}
	if _, exists := d.games[params.ID]; exists {
		return nil, &pq.Error{Code: "23505", Message: "duplicate game id"}
	}
	g := models.Game{
		ID:          params.ID,
		TotalRounds: params.TotalRounds,
		Status:      models.GameStatusWaiting,
		OperatorID:  params.OperatorID,
		Settings:    params.Settings,
		CreatedAt:   params.CreatedAt,
		UpdatedAt:   params.CreatedAt,
	}
	d.games[g.ID] = g
	d.storeBaseline(g.ID, baseline, params.CreatedAt)
	return &g, nil
}

func (d *DB) GetGame(_ context.Context, id uuid.UUID) (*models.Game, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("GetGame"); err != nil {
		return nil, err
	}
	g, ok := d.games[id]
	if !ok {
		return nil, notFound("get game")
	}
	return &g, nil
}

func (d *DB) ListGames(_ context.Context) ([]models.Game, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("ListGames"); err != nil {
		return nil, err
	}
	out := make([]models.Game, 0, len(d.games))
	for _, g := range d.games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (d *DB) ListRounds(_ context.Context, gameID uuid.UUID) ([]models.Round, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := []models.Round{}
	for k, r := range d.rounds {
		if k.game == gameID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundNumber < out[j].RoundNumber })
	return out, nil
}

func (d *DB) ListProduction(_ context.Context, gameID uuid.UUID) ([]models.ProductionEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.ProductionEntry{}, d.production[gameID]...), nil
}

func (d *DB) ListDemand(_ context.Context, gameID uuid.UUID) ([]models.DemandEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.DemandEntry{}, d.demand[gameID]...), nil
}

func (d *DB) StartGame(_ context.Context, gameID uuid.UUID, at time.Time) (*models.Game, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	g, ok := d.games[gameID]
	if !ok || g.Status != models.GameStatusWaiting {
		return nil, gamestate.ErrStateChanged
	}
	g.Status = models.GameStatusActive
	g.CurrentRound = 1
	g.StartedAt = &at
	g.UpdatedAt = at
	d.games[gameID] = g
	d.rounds[roundKey{gameID, 1}] = models.Round{GameID: gameID, RoundNumber: 1, StartTime: at, Status: models.RoundStatusActive}
	return &g, nil
}

func (d *DB) AdvanceRound(_ context.Context, gameID uuid.UUID, fromRound int, at time.Time) (*models.Game, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	g, ok := d.games[gameID]
	if !ok || g.Status != models.GameStatusActive || g.CurrentRound != fromRound || g.CurrentRound >= g.TotalRounds {
		return nil, gamestate.ErrStateChanged
	}
	d.completeActiveRounds(gameID, at)
	g.CurrentRound++
	g.UpdatedAt = at
	d.games[gameID] = g
	d.rounds[roundKey{gameID, g.CurrentRound}] = models.Round{GameID: gameID, RoundNumber: g.CurrentRound, StartTime: at, Status: models.RoundStatusActive}
	return &g, nil
}

func (d *DB) EndGame(_ context.Context, gameID uuid.UUID, at time.Time) (*models.Game, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	g, ok := d.games[gameID]
	if !ok || g.Status != models.GameStatusActive {
		return nil, gamestate.ErrStateChanged
	}
	d.completeActiveRounds(gameID, at)
	g.Status = models.GameStatusEnded
	g.EndedAt = &at
	g.UpdatedAt = at
	d.games[gameID] = g
	return &g, nil
}

func (d *DB) ResetGame(_ context.Context, gameID uuid.UUID, baseline models.Baseline, at time.Time) (*models.Game, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	g, ok := d.games[gameID]
	if !ok {
		return nil, notFound("reset game")
	}
	for k := range d.rounds {
		if k.game == gameID {
			delete(d.rounds, k)
		}
	}
	for k := range d.tariffs {
		if k.game == gameID {
			delete(d.tariffs, k)
		}
	}
	delete(d.production, gameID)
	delete(d.demand, gameID)

	g.Status = models.GameStatusWaiting
	g.CurrentRound = 0
	g.StartedAt = nil
	g.EndedAt = nil
	g.UpdatedAt = at
	d.games[gameID] = g
	d.storeBaseline(gameID, baseline, at)
	return &g, nil
}

func (d *DB) completeActiveRounds(gameID uuid.UUID, at time.Time) {
	for k, r := range d.rounds {
		if k.game == gameID && r.Status == models.RoundStatusActive {
			end := at
			r.EndTime = &end
			r.Status = models.RoundStatusCompleted
			d.rounds[k] = r
		}
	}
}

func (d *DB) storeBaseline(gameID uuid.UUID, baseline models.Baseline, at time.Time) {
	for _, p := range baseline.Production {
		p.GameID = gameID
		d.production[gameID] = append(d.production[gameID], p)
	}
	for _, e := range baseline.Demand {
		e.GameID = gameID
		d.demand[gameID] = append(d.demand[gameID], e)
	}
	for _, t := range baseline.Tariffs {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		t.GameID = gameID
		t.RoundNumber = 0
		t.SubmittedAt = at
		d.tariffs[tariffKey{gameID, 0, t.Product, t.FromCountry, t.ToCountry}] = t
	}
}

// ActiveRounds counts rounds of a game in status active.
func (d *DB) ActiveRounds(gameID uuid.UUID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for k, r := range d.rounds {
		if k.game == gameID && r.Status == models.RoundStatusActive {
			n++
		}
	}
	return n
}

// Tariffs

func (d *DB) ProducedProducts(_ context.Context, gameID uuid.UUID, country string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, p := range d.production[gameID] {
		if p.Country == country {
			out = append(out, p.Product)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (d *DB) UpsertTariffRate(_ context.Context, params tariff.UpsertParams) (*models.TariffRate, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("UpsertTariffRate"); err != nil {
		return nil, false, err
	}
	key := tariffKey{params.GameID, params.RoundNumber, params.Product, params.FromCountry, params.ToCountry}
	submittedBy := params.SubmittedBy
	existing, found := d.tariffs[key]
	if found && existing.SubmittedAt.After(params.SubmittedAt) {
		return nil, false, tariff.ErrSuperseded
	}
	rate := models.TariffRate{
		ID:          uuid.New(),
		GameID:      params.GameID,
		RoundNumber: params.RoundNumber,
		Product:     params.Product,
		FromCountry: params.FromCountry,
		ToCountry:   params.ToCountry,
		Rate:        params.Rate,
		SubmittedBy: &submittedBy,
		SubmittedAt: params.SubmittedAt,
	}
	if found {
		rate.ID = existing.ID
	}
	d.tariffs[key] = rate
	return &rate, !found, nil
}

func (d *DB) ListTariffRates(_ context.Context, gameID uuid.UUID, filter tariff.RateFilter) ([]models.TariffRate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("ListTariffRates"); err != nil {
		return nil, err
	}
	out := []models.TariffRate{}
	for k, t := range d.tariffs {
		if k.game != gameID || !filter.Matches(t) {
			continue
		}
		if t.SubmittedBy != nil {
			t.SubmitterName = d.users[*t.SubmittedBy].Username
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.RoundNumber != b.RoundNumber {
			return a.RoundNumber > b.RoundNumber
		}
		if a.Product != b.Product {
			return a.Product < b.Product
		}
		if a.FromCountry != b.FromCountry {
			return a.FromCountry < b.FromCountry
		}
		return a.ToCountry < b.ToCountry
	})
	return out, nil
}

// TariffCount counts stored rates for a key, which is at most one.
func (d *DB) TariffCount(gameID uuid.UUID, round int, product, from, to string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tariffs[tariffKey{gameID, round, product, from, to}]; ok {
		return 1
	}
	return 0
}

// Chat

func (d *DB) InsertChatMessage(_ context.Context, msg models.ChatMessage) (*models.ChatMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("InsertChatMessage"); err != nil {
		return nil, err
	}
	d.messages = append(d.messages, msg)
	return &msg, nil
}

func (d *DB) ListChatMessages(_ context.Context, gameID uuid.UUID, country *string) ([]models.ChatMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := []models.ChatMessage{}
	for _, m := range d.messages {
		if m.GameID != gameID {
			continue
		}
		if country != nil && m.MessageType == models.MessageTypePrivate &&
			m.SenderCountry != *country && (m.RecipientCountry == nil || *m.RecipientCountry != *country) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	return out, nil
}

// Users

func (d *DB) CreateUser(_ context.Context, req users.CreateUserRequest) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Username == req.Username {
			return nil, &pq.Error{Code: "23505", Message: "duplicate username"}
		}
	}
	u := models.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Role:         req.Role,
		PasswordHash: req.PasswordHash,
		CreatedAt:    req.CreatedAt,
	}
	d.users[u.ID] = u
	return &u, nil
}

func (d *DB) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return nil, notFound("get user")
	}
	return &u, nil
}

func (d *DB) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, notFound("get user by username")
}

func (d *DB) GetUserBySessionToken(_ context.Context, token string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.sessions[token]
	if !ok {
		return nil, notFound("get user by session")
	}
	u := d.users[id]
	return &u, nil
}

func (d *DB) SetSessionToken(_ context.Context, id uuid.UUID, token string, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return notFound("set session token")
	}
	d.clearSessions(id)
	d.sessions[token] = id
	u.LastLogin = &at
	d.users[id] = u
	return nil
}

func (d *DB) ClearSessionToken(_ context.Context, id uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearSessions(id)
	return nil
}

func (d *DB) clearSessions(id uuid.UUID) {
	for token, holder := range d.sessions {
		if holder == id {
			delete(d.sessions, token)
		}
	}
}

func (d *DB) SetUserCountry(_ context.Context, id uuid.UUID, country string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return notFound("set user country")
	}
	if country != "" && u.Role == models.RolePlayer {
		for _, other := range d.users {
			if other.ID != id && other.Role == models.RolePlayer && other.Country == country {
				return &pq.Error{Code: "23505", Message: "duplicate player country"}
			}
		}
	}
	u.Country = country
	d.users[id] = u
	return nil
}

func (d *DB) SetUserOnline(_ context.Context, id uuid.UUID, online bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("SetUserOnline"); err != nil {
		return err
	}
	u, ok := d.users[id]
	if !ok {
		return notFound("set user online")
	}
	u.IsOnline = online
	d.users[id] = u
	return nil
}

func (d *DB) ResetOnlineFlags(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, u := range d.users {
		u.IsOnline = false
		d.users[id] = u
	}
	return nil
}

func (d *DB) ListUsers(_ context.Context) ([]models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}

// AddUser stores a user directly, e.g. a player already holding a country.
func (d *DB) AddUser(u models.User) models.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	d.users[u.ID] = u
	return u
}
