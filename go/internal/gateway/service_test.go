package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/econempire/go/internal/apperr"
	"github.com/mcdev12/econempire/go/internal/chat"
	"github.com/mcdev12/econempire/go/internal/config"
	"github.com/mcdev12/econempire/go/internal/events"
	"github.com/mcdev12/econempire/go/internal/game"
	"github.com/mcdev12/econempire/go/internal/gamestate"
	"github.com/mcdev12/econempire/go/internal/gateway"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/mcdev12/econempire/go/internal/presence"
	"github.com/mcdev12/econempire/go/internal/storetest"
	"github.com/mcdev12/econempire/go/internal/tariff"
)

type tokenAuth map[string]models.Identity

func (a tokenAuth) Authenticate(_ context.Context, token string) (models.Identity, error) {
	identity, ok := a[token]
	if !ok {
		return models.Identity{}, apperr.New(apperr.KindUnauthorized, "invalid or expired session")
	}
	return identity, nil
}

type onlineFlags struct{}

func (onlineFlags) SetOnline(context.Context, uuid.UUID, bool) {}

type stubGames struct{}

func (stubGames) Apply(context.Context, models.Identity, events.GameStateUpdateCommand) (*models.Game, error) {
	return nil, apperr.New(apperr.KindPreconditionFailed, "game has not started")
}

func (stubGames) SyncRoundTimer(context.Context, models.Identity, uuid.UUID) (*events.RoundTimerUpdatedPayload, error) {
	return nil, apperr.New(apperr.KindPreconditionFailed, "no round is running")
}

func (stubGames) State(_ context.Context, caller models.Identity, gameID uuid.UUID) (*game.State, error) {
	if caller.IsOperator() {
		return &game.State{Snapshot: &game.Snapshot{Game: &models.Game{ID: gameID}}}, nil
	}
	return &game.State{PlayerView: &game.PlayerView{Country: caller.Country}}, nil
}

type stubTariffs struct{}

func (stubTariffs) Relay(context.Context, models.Identity, tariff.RelayRequest) (*events.TariffUpdatedPayload, error) {
	return &events.TariffUpdatedPayload{}, nil
}

type harness struct {
	srv    *httptest.Server
	gameID uuid.UUID
	auth   tokenAuth
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := clockwork.NewRealClock()
	rules := config.DefaultGameConfig()
	db := storetest.New()
	store := gamestate.NewStore(db, clock)

	gameID := uuid.New()
	if _, err := db.CreateGame(context.Background(), gamestate.CreateGameParams{
		ID:          gameID,
		TotalRounds: 3,
		Settings:    models.GameSettings{Countries: rules.Countries, Products: rules.Products},
		CreatedAt:   clock.Now(),
	}, models.Baseline{}); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	auth := tokenAuth{}
	for _, c := range []string{"USA", "China", "Germany"} {
		auth[strings.ToLower(c)] = models.Identity{UserID: uuid.New(), Username: strings.ToLower(c), Role: models.RolePlayer, Country: c}
	}
	auth["op"] = models.Identity{UserID: uuid.New(), Username: "op", Role: models.RoleOperator}

	bus := gateway.NewLocalBus()
	broadcaster := gateway.NewBroadcaster(bus, clock)
	svc := gateway.NewService(gateway.DefaultConfig(), gateway.Dependencies{
		Auth:        auth,
		Presence:    presence.NewTracker(rules.Countries, clock),
		Users:       onlineFlags{},
		Chat:        chat.NewApp(db, store, broadcaster, clock, rules.MaxMessageLength),
		Tariffs:     stubTariffs{},
		Games:       stubGames{},
		Broadcaster: broadcaster,
		Bus:         bus,
		Clock:       clock,
	})

	return &harness{srv: serveGateway(t, svc), gameID: gameID, auth: auth}
}

func serveGateway(t *testing.T, svc *gateway.Service) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := svc.Start(ctx); err != nil {
			t.Errorf("Start: %v", err)
		}
	}()

	r := chi.NewRouter()
	svc.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv
}

// dial connects as token and waits for the roster, so the connection has
// joined its rooms before the test continues.
func (h *harness) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", token, err)
	}
	t.Cleanup(func() { conn.Close() })
	readUntil(t, conn, func(e gateway.Event) bool { return e.Type == events.TypeOnlineUsers })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(gateway.Event) bool) gateway.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var e gateway.Event
		if err := conn.ReadJSON(&e); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(e) {
			return e
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, command events.Command, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteJSON(gateway.ClientMessage{Type: command, Data: raw}); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func chatContent(e gateway.Event) string {
	if e.Type != events.TypeNewMessage {
		return ""
	}
	var p events.NewMessagePayload
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return ""
	}
	return p.Content
}

func TestPrivateMessageReachesOnlyRecipient(t *testing.T) {
	h := newHarness(t)
	usa := h.dial(t, "usa")
	china := h.dial(t, "china")
	germany := h.dial(t, "germany")

	send(t, usa, events.CommandSendMessage, events.SendMessageCommand{
		GameID:           h.gameID.String(),
		Content:          "secret",
		MessageType:      string(models.MessageTypePrivate),
		RecipientCountry: "China",
	})
	send(t, usa, events.CommandSendMessage, events.SendMessageCommand{
		GameID:  h.gameID.String(),
		Content: "marker",
	})

	got := readUntil(t, china, func(e gateway.Event) bool { return chatContent(e) == "secret" })
	if got.GameID != h.gameID.String() {
		t.Errorf("event game id = %q", got.GameID)
	}
	readUntil(t, usa, func(e gateway.Event) bool { return chatContent(e) == "secret" })

	readUntil(t, germany, func(e gateway.Event) bool {
		if chatContent(e) == "secret" {
			t.Fatalf("private message delivered to a third country")
		}
		return chatContent(e) == "marker"
	})
}

func TestUserStatusOnDisconnect(t *testing.T) {
	h := newHarness(t)
	op := h.dial(t, "op")
	china := h.dial(t, "china")

	readUntil(t, op, func(e gateway.Event) bool { return e.Type == events.TypeUserStatusUpdate })
	china.Close()

	e := readUntil(t, op, func(e gateway.Event) bool {
		if e.Type != events.TypeUserStatusUpdate {
			return false
		}
		var s events.UserStatusPayload
		return json.Unmarshal(e.Data, &s) == nil && s.Country == "China" && !s.IsOnline
	})
	if e.Type != events.TypeUserStatusUpdate {
		t.Errorf("event = %+v", e)
	}
}

func TestCommandErrorsGoToSender(t *testing.T) {
	h := newHarness(t)
	usa := h.dial(t, "usa")

	send(t, usa, events.CommandGameStateUpdate, events.GameStateUpdateCommand{GameID: h.gameID.String(), Action: events.ActionStart})
	e := readUntil(t, usa, func(e gateway.Event) bool { return e.Type == events.TypeError })
	var p events.ErrorPayload
	if err := json.Unmarshal(e.Data, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Kind != string(apperr.KindForbidden) || p.Command != string(events.CommandGameStateUpdate) {
		t.Errorf("error = %+v", p)
	}

	if err := usa.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	e = readUntil(t, usa, func(e gateway.Event) bool { return e.Type == events.TypeError })
	if err := json.Unmarshal(e.Data, &p); err != nil || p.Kind != string(apperr.KindValidationFailed) {
		t.Errorf("malformed message error = %+v (%v)", p, err)
	}

	send(t, usa, "dance", map[string]string{})
	e = readUntil(t, usa, func(e gateway.Event) bool { return e.Type == events.TypeError })
	if err := json.Unmarshal(e.Data, &p); err != nil || !strings.Contains(p.Message, "unknown command") {
		t.Errorf("unknown command error = %+v (%v)", p, err)
	}
}

func TestHTTPRoutes(t *testing.T) {
	h := newHarness(t)

	res, err := http.Get(h.srv.URL + "/ws?token=nope")
	if err != nil {
		t.Fatalf("GET /ws: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token status = %d", res.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, h.srv.URL+"/api/games/"+h.gameID.String()+"/state", nil)
	req.Header.Set("Authorization", "Bearer germany")
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET state: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("state status = %d", res.StatusCode)
	}
	var state game.State
	if err := json.NewDecoder(res.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.PlayerView == nil || state.PlayerView.Country != "Germany" {
		t.Errorf("state = %+v", state)
	}

	req, _ = http.NewRequest(http.MethodGet, h.srv.URL+"/api/games/not-a-uuid/state", nil)
	req.Header.Set("Authorization", "Bearer op")
	res2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET bad state: %v", err)
	}
	res2.Body.Close()
	if res2.StatusCode != http.StatusBadRequest {
		t.Errorf("bad id status = %d", res2.StatusCode)
	}
}
