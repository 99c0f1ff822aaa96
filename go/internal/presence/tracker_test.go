package presence

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/econempire/go/internal/models"
)

var pool = []string{"USA", "China", "Germany", "Japan", "India"}

func player(name, country string) models.Identity {
	return models.Identity{UserID: uuid.New(), Username: name, Role: models.RolePlayer, Country: country}
}

func TestConnectDisconnectAcrossConnections(t *testing.T) {
	tr := NewTracker(pool, clockwork.NewFakeClock())
	alice := player("alice", "USA")

	if !tr.Connect("c1", alice) {
		t.Fatalf("first connection should bring the user online")
	}
	if tr.Connect("c2", alice) {
		t.Fatalf("second connection should not report coming online")
	}

	if _, offline := tr.Disconnect("c1"); offline {
		t.Fatalf("user still has c2 and should stay online")
	}
	if !tr.IsOnline(alice.UserID) {
		t.Fatalf("user should be online")
	}

	entry, offline := tr.Disconnect("c2")
	if !offline {
		t.Fatalf("last disconnect should take the user offline")
	}
	if entry.Identity.Username != "alice" {
		t.Errorf("entry = %+v", entry)
	}
	if tr.IsOnline(alice.UserID) {
		t.Errorf("user should be offline")
	}
	if _, offline := tr.Disconnect("c2"); offline {
		t.Errorf("unknown connection must not report offline")
	}
}

func TestOnlinePlayerCountriesIgnoresOperatorsAndStrangers(t *testing.T) {
	tr := NewTracker(pool, clockwork.NewFakeClock())
	tr.Connect("op", models.Identity{UserID: uuid.New(), Username: "op", Role: models.RoleOperator})
	tr.Connect("p1", player("a", "USA"))
	tr.Connect("p2", player("b", "China"))
	tr.Connect("p3", player("c", ""))
	tr.Connect("p4", player("d", "Atlantis"))

	got := tr.OnlinePlayerCountries()
	if len(got) != 2 {
		t.Fatalf("countries = %v, want USA and China", got)
	}
	if _, ok := got["USA"]; !ok {
		t.Errorf("USA missing")
	}
	if len(tr.Online()) != 5 {
		t.Errorf("online users = %d", len(tr.Online()))
	}
}

func TestAssignAndRelease(t *testing.T) {
	tr := NewTracker(pool, clockwork.NewFakeClock())
	users := make([]uuid.UUID, 6)
	for i := range users {
		users[i] = uuid.New()
	}

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		c, err := tr.Assign(users[i], "")
		if err != nil {
			t.Fatalf("assign %d: %v", i, err)
		}
		if seen[c] {
			t.Fatalf("country %s assigned twice", c)
		}
		seen[c] = true
	}

	if _, err := tr.Assign(users[5], ""); err != ErrNoCountryAvailable {
		t.Fatalf("sixth assign err = %v", err)
	}

	again, err := tr.Assign(users[0], "")
	if err != nil || again != "USA" {
		t.Fatalf("re-assign = %s, %v; want USA", again, err)
	}

	country, ok := tr.Release(users[2])
	if !ok {
		t.Fatalf("release failed")
	}
	got, err := tr.Assign(users[5], "")
	if err != nil || got != country {
		t.Fatalf("assign after release = %s, %v; want %s", got, err, country)
	}
}

func TestAssignPreferred(t *testing.T) {
	tr := NewTracker(pool, clockwork.NewFakeClock())
	a, b := uuid.New(), uuid.New()
	tr.Seed(map[string]uuid.UUID{"Japan": a, "Narnia": b})

	if _, err := tr.Assign(b, "Japan"); err != ErrCountryTaken {
		t.Fatalf("err = %v, want ErrCountryTaken", err)
	}
	got, err := tr.Assign(b, "India")
	if err != nil || got != "India" {
		t.Fatalf("assign = %s, %v", got, err)
	}
	if holder, ok := tr.Holder("Japan"); !ok || holder != a {
		t.Errorf("seeded holder lost")
	}
	if _, ok := tr.Holder("Narnia"); ok {
		t.Errorf("country outside the pool should not be seeded")
	}
}

func TestReleaseClearsCountryOfLiveConnections(t *testing.T) {
	tr := NewTracker(pool, clockwork.NewFakeClock())
	dave := player("dave", "Japan")
	tr.Seed(map[string]uuid.UUID{"Japan": dave.UserID})
	tr.Connect("c1", dave)
	tr.Connect("c2", dave)

	if _, ok := tr.OnlinePlayerCountries()["Japan"]; !ok {
		t.Fatalf("Japan should count before release")
	}
	country, released := tr.Release(dave.UserID)
	if !released || country != "Japan" {
		t.Fatalf("Release = %q, %v", country, released)
	}

	if got := tr.OnlinePlayerCountries(); len(got) != 0 {
		t.Errorf("OnlinePlayerCountries after release = %v", got)
	}
	for _, id := range []string{"c1", "c2"} {
		entry, ok := tr.Connection(id)
		if !ok || entry.Identity.Country != "" {
			t.Errorf("connection %s = %+v, ok=%v", id, entry, ok)
		}
	}
	if !tr.IsOnline(dave.UserID) {
		t.Errorf("release must not take the user offline")
	}
}
