// Package presence tracks live connections and the country each player holds.
package presence

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/econempire/go/internal/models"
)

// ErrNoCountryAvailable is returned when every country is already held.
var ErrNoCountryAvailable = errors.New("all countries are taken")

// ErrCountryTaken is returned when a requested country belongs to someone else.
var ErrCountryTaken = errors.New("country is held by another player")

// Entry is one live connection.
type Entry struct {
	ConnectionID string
	Identity     models.Identity
	ConnectedAt  time.Time
}

// UserStatus is the presence of one user across all their connections.
type UserStatus struct {
	Identity    models.Identity
	Online      bool
	Connections int
}

// Tracker maintains online state per connection and the country pool. It is
// scoped to one process and safe for concurrent use.
type Tracker struct {
	mu          sync.RWMutex
	clock       clockwork.Clock
	countries   []string
	connections map[string]Entry
	byUser      map[uuid.UUID]map[string]struct{}
	holders     map[string]uuid.UUID
}

// NewTracker creates a tracker for the given country pool.
func NewTracker(countries []string, clock clockwork.Clock) *Tracker {
	return &Tracker{
		clock:       clock,
		countries:   append([]string(nil), countries...),
		connections: make(map[string]Entry),
		byUser:      make(map[uuid.UUID]map[string]struct{}),
		holders:     make(map[string]uuid.UUID),
	}
}

// Connect registers a connection. It reports whether the user just came
// online, i.e. this is their only connection.
func (t *Tracker) Connect(connectionID string, identity models.Identity) (cameOnline bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.connections[connectionID] = Entry{
		ConnectionID: connectionID,
		Identity:     identity,
		ConnectedAt:  t.clock.Now(),
	}
	conns := t.byUser[identity.UserID]
	if conns == nil {
		conns = make(map[string]struct{})
		t.byUser[identity.UserID] = conns
	}
	conns[connectionID] = struct{}{}
	return len(conns) == 1
}

// Disconnect removes a connection. It reports whether the user went offline,
// i.e. this was their last connection.
func (t *Tracker) Disconnect(connectionID string) (entry Entry, wentOffline bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.connections[connectionID]
	if !ok {
		return Entry{}, false
	}
	delete(t.connections, connectionID)

	conns := t.byUser[entry.Identity.UserID]
	delete(conns, connectionID)
	if len(conns) == 0 {
		delete(t.byUser, entry.Identity.UserID)
		return entry, true
	}
	return entry, false
}

// Connection returns the entry of a live connection.
func (t *Tracker) Connection(connectionID string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.connections[connectionID]
	return e, ok
}

// IsOnline reports whether the user has at least one live connection.
func (t *Tracker) IsOnline(userID uuid.UUID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byUser[userID]) > 0
}

// Online returns every online user, ordered by username.
func (t *Tracker) Online() []UserStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]UserStatus, 0, len(t.byUser))
	for _, conns := range t.byUser {
		var identity models.Identity
		for id := range conns {
			identity = t.connections[id].Identity
			break
		}
		out = append(out, UserStatus{Identity: identity, Online: true, Connections: len(conns)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity.Username < out[j].Identity.Username })
	return out
}

// OnlinePlayerCountries maps each country that has an online player to that
// player. Countries outside the pool are ignored.
func (t *Tracker) OnlinePlayerCountries() map[string]uuid.UUID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]uuid.UUID)
	for _, entry := range t.connections {
		id := entry.Identity
		if id.Role != models.RolePlayer || id.Country == "" || !t.inPool(id.Country) {
			continue
		}
		out[id.Country] = id.UserID
	}
	return out
}

// ConnectionsFor lists the live connection ids of a user.
func (t *Tracker) ConnectionsFor(userID uuid.UUID) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.byUser[userID]))
	for id := range t.byUser[userID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of live connections.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.connections)
}

// Seed records existing country holders, typically loaded from storage at startup.
func (t *Tracker) Seed(holders map[string]uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for country, userID := range holders {
		if t.inPool(country) {
			t.holders[country] = userID
		}
	}
}

// Assign gives userID a country. A user who already holds one keeps it;
// otherwise preferred is used when free, else the first free country in pool order.
func (t *Tracker) Assign(userID uuid.UUID, preferred string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for country, holder := range t.holders {
		if holder == userID {
			return country, nil
		}
	}

	if preferred != "" {
		if !t.inPool(preferred) {
			return "", ErrNoCountryAvailable
		}
		if holder, taken := t.holders[preferred]; taken && holder != userID {
			return "", ErrCountryTaken
		}
		t.holders[preferred] = userID
		return preferred, nil
	}

	for _, country := range t.countries {
		if _, taken := t.holders[country]; !taken {
			t.holders[country] = userID
			return country, nil
		}
	}
	return "", ErrNoCountryAvailable
}

// Release frees whatever country userID holds. The user's live connections
// lose the country too, so they stop counting as its player.
func (t *Tracker) Release(userID uuid.UUID) (country string, released bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id := range t.byUser[userID] {
		entry := t.connections[id]
		entry.Identity.Country = ""
		t.connections[id] = entry
	}
	for c, holder := range t.holders {
		if holder == userID {
			delete(t.holders, c)
			return c, true
		}
	}
	return "", false
}

// Holder returns the user holding country.
func (t *Tracker) Holder(country string) (uuid.UUID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.holders[country]
	return id, ok
}

func (t *Tracker) inPool(country string) bool {
	for _, c := range t.countries {
		if c == country {
			return true
		}
	}
	return false
}
