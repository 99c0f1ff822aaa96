package gateway

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/econempire/go/internal/events"
	"github.com/mcdev12/econempire/go/internal/models"
)

type recordingBus struct {
	mu   sync.Mutex
	envs []Envelope
}

func (b *recordingBus) Publish(env Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.envs = append(b.envs, env)
	return nil
}

func (b *recordingBus) Subscribe(context.Context, func(Envelope)) error { return nil }
func (b *recordingBus) Close() error                                   { return nil }

func (b *recordingBus) last(t *testing.T) Envelope {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.envs) == 0 {
		t.Fatalf("nothing published")
	}
	return b.envs[len(b.envs)-1]
}

func rooms(a Audience) string {
	r := append([]string(nil), a.Rooms...)
	sort.Strings(r)
	return strings.Join(r, ",")
}

func TestBroadcasterAudiences(t *testing.T) {
	bus := &recordingBus{}
	b := NewBroadcaster(bus, clockwork.NewFakeClock())
	gameID := uuid.New().String()

	b.GameStateChanged(events.GameStateChangedPayload{GameID: gameID, Action: events.ActionStart})
	if env := bus.last(t); !env.Audience.All || env.Event.Type != events.TypeGameStateChanged || env.Event.GameID != gameID {
		t.Errorf("state change = %+v", env)
	}

	b.RoundTimerUpdated(events.RoundTimerUpdatedPayload{GameID: gameID})
	if env := bus.last(t); !env.Audience.All {
		t.Errorf("timer audience = %+v", env.Audience)
	}

	b.GameDataUpdated(events.GameDataUpdatedPayload{GameID: gameID, Country: "Japan"})
	if env := bus.last(t); env.Audience.All || rooms(env.Audience) != "country_Japan" {
		t.Errorf("player data audience = %+v", env.Audience)
	}
	b.GameDataUpdated(events.GameDataUpdatedPayload{GameID: gameID})
	if env := bus.last(t); !env.Audience.All {
		t.Errorf("full data audience = %+v", env.Audience)
	}

	b.TariffUpdated(events.TariffUpdatedPayload{GameID: gameID, FromCountry: "USA", ToCountry: "China", Rate: 5})
	if env := bus.last(t); rooms(env.Audience) != "country_China,country_USA,operators" {
		t.Errorf("tariff audience = %+v", env.Audience)
	}
	b.TariffUpdated(events.TariffUpdatedPayload{GameID: gameID, FromCountry: "USA", ToCountry: "USA"})
	if env := bus.last(t); rooms(env.Audience) != "country_USA,operators" {
		t.Errorf("self tariff audience = %+v", env.Audience)
	}

	sender := uuid.New()
	b.NewMessage(events.NewMessagePayload{GameID: gameID, MessageType: models.MessageTypeGroup}, sender)
	if env := bus.last(t); !env.Audience.All {
		t.Errorf("group audience = %+v", env.Audience)
	}
	b.NewMessage(events.NewMessagePayload{GameID: gameID, MessageType: models.MessageTypePrivate, RecipientCountry: "India"}, sender)
	env := bus.last(t)
	if env.Audience.All || rooms(env.Audience) != "country_India" || len(env.Audience.UserIDs) != 1 || env.Audience.UserIDs[0] != sender.String() {
		t.Errorf("private audience = %+v", env.Audience)
	}
	var msg events.NewMessagePayload
	if err := json.Unmarshal(env.Event.Data, &msg); err != nil || msg.RecipientCountry != "India" {
		t.Errorf("private payload = %s (%v)", env.Event.Data, err)
	}

	b.UserStatus(models.Identity{UserID: sender, Username: "x", Role: models.RolePlayer, Country: "USA"}, false)
	env = bus.last(t)
	var status events.UserStatusPayload
	if err := json.Unmarshal(env.Event.Data, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !env.Audience.All || status.IsOnline || status.Country != "USA" {
		t.Errorf("status = %+v audience = %+v", status, env.Audience)
	}
}

func TestTargetsResolveAudience(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig(), nil)
	mk := func(id string, identity models.Identity) *Connection {
		c := &Connection{ID: id, Identity: identity, Send: make(chan []byte, 1), rooms: roomsFor(identity)}
		cm.registerConnection(c)
		return c
	}
	usaUser := uuid.New()
	mk("usa", models.Identity{UserID: usaUser, Role: models.RolePlayer, Country: "USA"})
	mk("usa-2", models.Identity{UserID: usaUser, Role: models.RolePlayer, Country: "USA"})
	mk("china", models.Identity{UserID: uuid.New(), Role: models.RolePlayer, Country: "China"})
	op := mk("op", models.Identity{UserID: uuid.New(), Role: models.RoleOperator})

	ids := func(a Audience) string {
		cm.mu.RLock()
		defer cm.mu.RUnlock()
		var out []string
		for _, c := range cm.targets(a) {
			out = append(out, c.ID)
		}
		sort.Strings(out)
		return strings.Join(out, ",")
	}

	if got := ids(Everyone()); got != "china,op,usa,usa-2" {
		t.Errorf("everyone = %s", got)
	}
	if got := ids(Audience{Rooms: []string{OperatorsRoom, CountryRoom("China")}}); got != "china,op" {
		t.Errorf("rooms = %s", got)
	}
	if got := ids(Audience{Rooms: []string{CountryRoom("China")}, UserIDs: []string{usaUser.String()}}); got != "china,usa,usa-2" {
		t.Errorf("room plus user = %s", got)
	}
	if got := ids(Audience{ConnectionIDs: []string{op.ID}}); got != "op" {
		t.Errorf("connection = %s", got)
	}

	stats := cm.GetConnectionStats()
	if stats.TotalConnections != 4 || stats.Operators != 1 || stats.Rooms["country_USA"] != 2 {
		t.Errorf("stats = %+v", stats)
	}
}
