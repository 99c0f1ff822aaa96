package storetest

import (
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/econempire/go/internal/events"
	"github.com/mcdev12/econempire/go/internal/models"
)

// BaselineRate is the round-0 rate FixedGenerator sets on every trade route.
const BaselineRate = 10

// FixedGenerator builds a predictable baseline. Product i is produced by
// countries i and i+2 (mod the country count) with 50 units each; the other
// countries split the demand, the first taking the remainder. With the
// default setup Steel is produced by USA and Germany, Grain by China and Japan.
type FixedGenerator struct{}

func (FixedGenerator) Generate(gameID uuid.UUID, products, countries []string) models.Baseline {
	var b models.Baseline
	n := len(countries)
	if n < 3 {
		return b
	}
	for i, product := range products {
		producers := map[string]bool{countries[i%n]: true, countries[(i+2)%n]: true}
		var consumers []string
		for _, c := range countries {
			if producers[c] {
				b.Production = append(b.Production, models.ProductionEntry{GameID: gameID, Country: c, Product: product, Quantity: 50})
			} else {
				consumers = append(consumers, c)
			}
		}
		share := 100 / len(consumers)
		for j, c := range consumers {
			q := share
			if j == 0 {
				q += 100 - share*len(consumers)
			}
			b.Demand = append(b.Demand, models.DemandEntry{GameID: gameID, Country: c, Product: product, Quantity: q})
		}
		for _, from := range countries {
			if !producers[from] {
				continue
			}
			for _, to := range consumers {
				b.Tariffs = append(b.Tariffs, models.TariffRate{
					ID:          uuid.New(),
					GameID:      gameID,
					Product:     product,
					FromCountry: from,
					ToCountry:   to,
					Rate:        BaselineRate,
				})
			}
		}
	}
	return b
}

// Recorder collects every notification it receives. It satisfies the
// notifier interfaces of the game, tariff and chat packages.
type Recorder struct {
	mu       sync.Mutex
	States   []events.GameStateChangedPayload
	Data     []events.GameDataUpdatedPayload
	Timers   []events.RoundTimerUpdatedPayload
	Tariffs  []events.TariffUpdatedPayload
	Messages []events.NewMessagePayload
}

func (r *Recorder) GameStateChanged(p events.GameStateChangedPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.States = append(r.States, p)
}

func (r *Recorder) GameDataUpdated(p events.GameDataUpdatedPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Data = append(r.Data, p)
}

func (r *Recorder) RoundTimerUpdated(p events.RoundTimerUpdatedPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Timers = append(r.Timers, p)
}

func (r *Recorder) TariffUpdated(p events.TariffUpdatedPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Tariffs = append(r.Tariffs, p)
}

func (r *Recorder) NewMessage(p events.NewMessagePayload, _ uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, p)
}

// Actions lists the actions of the recorded state changes in order.
func (r *Recorder) Actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.States))
	for _, s := range r.States {
		out = append(out, s.Action)
	}
	return out
}

// TimerCount returns how many timer updates were recorded.
func (r *Recorder) TimerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Timers)
}

// LastTimer returns the most recent timer update.
func (r *Recorder) LastTimer() events.RoundTimerUpdatedPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Timers) == 0 {
		return events.RoundTimerUpdatedPayload{}
	}
	return r.Timers[len(r.Timers)-1]
}

// TariffEvents returns a copy of the recorded tariff updates.
func (r *Recorder) TariffEvents() []events.TariffUpdatedPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.TariffUpdatedPayload(nil), r.Tariffs...)
}
