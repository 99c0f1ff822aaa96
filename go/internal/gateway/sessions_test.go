package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/econempire/go/internal/chat"
	"github.com/mcdev12/econempire/go/internal/config"
	"github.com/mcdev12/econempire/go/internal/events"
	"github.com/mcdev12/econempire/go/internal/gamestate"
	"github.com/mcdev12/econempire/go/internal/gateway"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/mcdev12/econempire/go/internal/presence"
	"github.com/mcdev12/econempire/go/internal/storetest"
	"github.com/mcdev12/econempire/go/internal/users"
)

// accountHarness runs the gateway against the real users App, so tokens,
// online flags and country holders come from login.
type accountHarness struct {
	*harness
	app     *users.App
	db      *storetest.DB
	tracker *presence.Tracker
	svc     *gateway.Service
}

func newAccountHarness(t *testing.T) *accountHarness {
	t.Helper()
	clock := clockwork.NewRealClock()
	rules := config.DefaultGameConfig()
	db := storetest.New()
	store := gamestate.NewStore(db, clock)
	tracker := presence.NewTracker(rules.Countries, clock)
	app := users.NewApp(db, tracker, clock, "operator")

	gameID := uuid.New()
	if _, err := db.CreateGame(context.Background(), gamestate.CreateGameParams{
		ID:          gameID,
		TotalRounds: 3,
		Settings:    models.GameSettings{Countries: rules.Countries, Products: rules.Products},
		CreatedAt:   clock.Now(),
	}, models.Baseline{}); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	bus := gateway.NewLocalBus()
	broadcaster := gateway.NewBroadcaster(bus, clock)
	svc := gateway.NewService(gateway.DefaultConfig(), gateway.Dependencies{
		Auth:        app,
		Presence:    tracker,
		Users:       app,
		Chat:        chat.NewApp(db, store, broadcaster, clock, rules.MaxMessageLength),
		Tariffs:     stubTariffs{},
		Games:       stubGames{},
		Broadcaster: broadcaster,
		Bus:         bus,
		Clock:       clock,
	})
	app.SetSessions(svc)

	return &accountHarness{
		harness: &harness{srv: serveGateway(t, svc), gameID: gameID},
		app:     app,
		db:      db,
		tracker: tracker,
		svc:     svc,
	}
}

func (h *accountHarness) login(t *testing.T, username, country string) *users.LoginResponse {
	t.Helper()
	res, err := h.app.Login(context.Background(), users.LoginRequest{Username: username, Country: country})
	if err != nil {
		t.Fatalf("Login(%q): %v", username, err)
	}
	return res
}

func sessionEnded(reason string) func(gateway.Event) bool {
	return func(e gateway.Event) bool {
		if e.Type != events.TypeSessionEnded {
			return false
		}
		var p events.SessionEndedPayload
		return json.Unmarshal(e.Data, &p) == nil && p.Reason == reason
	}
}

// requireClosed reads until the server closes conn.
func requireClosed(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				t.Fatalf("connection still open")
			}
			return
		}
	}
}

func TestLogoutClosesLiveConnections(t *testing.T) {
	h := newAccountHarness(t)
	ctx := context.Background()
	opRes := h.login(t, "operator", "")
	daveRes := h.login(t, "dave", "Japan")
	dave := daveRes.User.Identity()

	op := h.dial(t, opRes.Token)
	daveConn := h.dial(t, daveRes.Token)
	second := h.dial(t, daveRes.Token)

	if err := h.app.Logout(ctx, dave); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if h.tracker.IsOnline(dave.UserID) {
		t.Errorf("tracker still shows dave online")
	}
	if online := h.tracker.OnlinePlayerCountries(); len(online) != 0 {
		t.Errorf("logged out player still counted: %v", online)
	}
	stored, err := h.db.GetUser(ctx, dave.UserID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if stored.IsOnline {
		t.Errorf("stored online flag still set")
	}

	for _, conn := range []*websocket.Conn{daveConn, second} {
		readUntil(t, conn, sessionEnded(users.ReasonLoggedOut))
		requireClosed(t, conn)
	}
	readUntil(t, op, func(e gateway.Event) bool {
		var s events.UserStatusPayload
		return e.Type == events.TypeUserStatusUpdate &&
			json.Unmarshal(e.Data, &s) == nil && s.UserID == dave.UserID.String() && !s.IsOnline
	})

	res, err := http.Get(h.srv.URL + "/ws?token=" + daveRes.Token)
	if err != nil {
		t.Fatalf("GET /ws: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Errorf("revoked token status = %d", res.StatusCode)
	}
}

func TestReleasedCountryLeavesItsRoom(t *testing.T) {
	h := newAccountHarness(t)
	ctx := context.Background()
	op := h.login(t, "operator", "").User.Identity()
	daveRes := h.login(t, "dave", "Japan")
	germanyRes := h.login(t, "gina", "Germany")

	daveConn := h.dial(t, daveRes.Token)
	germany := h.dial(t, germanyRes.Token)

	if _, err := h.app.ReleaseCountry(ctx, op, daveRes.User.ID); err != nil {
		t.Fatalf("ReleaseCountry: %v", err)
	}

	if _, ok := h.tracker.OnlinePlayerCountries()["Japan"]; ok {
		t.Errorf("Japan still counted online after release")
	}
	if n := h.svc.Manager().GetConnectionStats().Rooms[gateway.CountryRoom("Japan")]; n != 0 {
		t.Errorf("country_Japan still has %d connections", n)
	}
	readUntil(t, daveConn, sessionEnded(users.ReasonCountryReleased))
	requireClosed(t, daveConn)

	frankRes := h.login(t, "frank", "Japan")
	if frankRes.User.Country != "Japan" {
		t.Fatalf("released country not reassigned: %q", frankRes.User.Country)
	}
	frank := h.dial(t, frankRes.Token)

	send(t, germany, events.CommandSendMessage, events.SendMessageCommand{
		GameID:           h.gameID.String(),
		Content:          "for japan",
		MessageType:      string(models.MessageTypePrivate),
		RecipientCountry: "Japan",
	})
	readUntil(t, frank, func(e gateway.Event) bool { return chatContent(e) == "for japan" })
}
