package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/econempire/go/internal/events"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ConnectionHandler reacts to the lifecycle and inbound messages of connections.
type ConnectionHandler interface {
	HandleOpen(c *Connection)
	HandleMessage(c *Connection, message []byte)
	HandleClose(c *Connection)
}

// ConnectionManager manages WebSocket connections and their rooms
type ConnectionManager struct {
	connections map[*Connection]bool
	rooms       map[string]map[*Connection]bool
	mu          sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	// Connection configuration
	config ConnectionConfig

	handler     ConnectionHandler
	broadcastCh chan Envelope
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID       string
	Identity models.Identity
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

	// Connection metadata
	ConnectedAt time.Time
	rooms       []string
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  8 * 1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, handler ConnectionHandler) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[*Connection]bool),
		rooms:       make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		handler:     handler,
		broadcastCh: make(chan Envelope, 1000),
	}
}

// Start processes deliveries until ctx is done.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case env := <-cm.broadcastCh:
			cm.handleBroadcast(env)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket for identity
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, identity models.Identity) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Identity:    identity,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		ConnectedAt: time.Now(),
		rooms:       roomsFor(identity),
	}

	cm.registerConnection(connection)
	cm.handler.HandleOpen(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", identity.UserID.String()).
		Str("role", string(identity.Role)).
		Str("country", identity.Country).
		Msg("WebSocket connection established")

	return connection, nil
}

// registerConnection adds a connection and joins its rooms
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[conn] = true
	for _, room := range conn.rooms {
		if cm.rooms[room] == nil {
			cm.rooms[room] = make(map[*Connection]bool)
		}
		cm.rooms[room][conn] = true
	}

	log.Debug().
		Str("connection_id", conn.ID).
		Strs("rooms", conn.rooms).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

// unregisterConnection removes a connection; only the first call has any effect
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	if !cm.connections[conn] {
		cm.mu.Unlock()
		return
	}
	delete(cm.connections, conn)
	for _, room := range conn.rooms {
		if members, ok := cm.rooms[room]; ok {
			delete(members, conn)
			if len(members) == 0 {
				delete(cm.rooms, room)
			}
		}
	}
	close(conn.Send)
	cm.mu.Unlock()

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.Identity.UserID.String()).
		Msg("connection unregistered")

	cm.handler.HandleClose(conn)
}

// Deliver queues an addressed event. When the queue is full the event is dropped.
func (cm *ConnectionManager) Deliver(env Envelope) {
	select {
	case cm.broadcastCh <- env:
	default:
		log.Warn().Str("event_type", string(env.Event.Type)).Msg("broadcast channel full, dropping message")
	}
}

// SendTo queues an event for a single connection.
func (cm *ConnectionManager) SendTo(conn *Connection, event *Event) {
	cm.Deliver(Envelope{Audience: Audience{ConnectionIDs: []string{conn.ID}}, Event: event})
}

// targets resolves an audience to live connections. Callers hold mu.
func (cm *ConnectionManager) targets(a Audience) []*Connection {
	if a.All {
		out := make([]*Connection, 0, len(cm.connections))
		for conn := range cm.connections {
			out = append(out, conn)
		}
		return out
	}

	seen := make(map[*Connection]bool)
	for _, room := range a.Rooms {
		for conn := range cm.rooms[room] {
			seen[conn] = true
		}
	}
	if len(a.UserIDs) > 0 || len(a.ConnectionIDs) > 0 {
		users := make(map[string]bool, len(a.UserIDs))
		for _, id := range a.UserIDs {
			users[id] = true
		}
		conns := make(map[string]bool, len(a.ConnectionIDs))
		for _, id := range a.ConnectionIDs {
			conns[id] = true
		}
		for conn := range cm.connections {
			if users[conn.Identity.UserID.String()] || conns[conn.ID] {
				seen[conn] = true
			}
		}
	}

	out := make([]*Connection, 0, len(seen))
	for conn := range seen {
		out = append(out, conn)
	}
	return out
}

// handleBroadcast writes an event to every connection of its audience. Sends
// never block: a connection whose buffer is full is closed.
func (cm *ConnectionManager) handleBroadcast(env Envelope) {
	eventData, err := json.Marshal(env.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	var slow []*Connection
	cm.mu.RLock()
	targets := cm.targets(env.Audience)
	for _, conn := range targets {
		select {
		case conn.Send <- eventData:
		default:
			slow = append(slow, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("user_id", conn.Identity.UserID.String()).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}

	// A session ended on another process: close what it addressed here,
	// sparing connections opened after the event.
	if env.Event.Type == events.TypeSessionEnded {
		for _, conn := range targets {
			if conn.ConnectedAt.After(env.Event.Timestamp) {
				continue
			}
			cm.unregisterConnection(conn)
		}
	}

	log.Debug().
		Str("event_type", string(env.Event.Type)).
		Str("game_id", env.Event.GameID).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// CloseUser sends final to every connection of userID and closes them. The
// connections are unregistered before it returns; their sockets close once
// the queued messages are written.
func (cm *ConnectionManager) CloseUser(userID uuid.UUID, final []byte) int {
	cm.mu.RLock()
	var conns []*Connection
	for conn := range cm.connections {
		if conn.Identity.UserID == userID {
			conns = append(conns, conn)
		}
	}
	for _, conn := range conns {
		select {
		case conn.Send <- final:
		default:
		}
	}
	cm.mu.RUnlock()

	for _, conn := range conns {
		cm.unregisterConnection(conn)
	}
	return len(conns)
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.connections))
	for conn := range cm.connections {
		conns = append(conns, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range conns {
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}
}

// Stats is a summary of live connections.
type Stats struct {
	TotalConnections int            `json:"total_connections"`
	Operators        int            `json:"operators"`
	Rooms            map[string]int `json:"rooms"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() Stats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := Stats{
		TotalConnections: len(cm.connections),
		Rooms:            make(map[string]int, len(cm.rooms)),
	}
	for room, members := range cm.rooms {
		stats.Rooms[room] = len(members)
	}
	stats.Operators = stats.Rooms[OperatorsRoom]
	return stats
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.Manager.handler.HandleMessage(c, message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
