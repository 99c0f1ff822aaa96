// Package economy generates the randomized round-0 economy of a game.
package economy

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/econempire/go/internal/models"
)

// Share bounds for the running-remainder allocation.
const (
	minProducerShare = 20
	maxProducerShare = 50
	minConsumerShare = 15
	maxConsumerShare = 40

	totalUnits = 100
)

// Generator produces production, demand and baseline tariffs. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator drawing from src.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// NewSeededGenerator creates a generator seeded from the current time.
func NewSeededGenerator() *Generator {
	now := uint64(time.Now().UnixNano())
	return NewGenerator(rand.NewPCG(now, now>>17|1))
}

// Generate builds the baseline for a game. For every product 2 or 3 countries
// produce and the rest consume; shares of each side sum to 100. Every
// producer/consumer pair gets a round-0 tariff in [0,100].
func (g *Generator) Generate(gameID uuid.UUID, products, countries []string) models.Baseline {
	g.mu.Lock()
	defer g.mu.Unlock()

	var baseline models.Baseline
	if len(countries) < 2 {
		return baseline
	}

	for _, product := range products {
		shuffled := append([]string(nil), countries...)
		g.rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		producerCount := min(2+g.rng.IntN(2), len(shuffled)-1)
		producers := shuffled[:producerCount]
		consumers := shuffled[producerCount:]

		for i, qty := range g.allocate(len(producers), minProducerShare, maxProducerShare) {
			baseline.Production = append(baseline.Production, models.ProductionEntry{
				GameID:   gameID,
				Country:  producers[i],
				Product:  product,
				Quantity: qty,
			})
		}
		for i, qty := range g.allocate(len(consumers), minConsumerShare, maxConsumerShare) {
			baseline.Demand = append(baseline.Demand, models.DemandEntry{
				GameID:   gameID,
				Country:  consumers[i],
				Product:  product,
				Quantity: qty,
			})
		}

		for _, from := range producers {
			for _, to := range consumers {
				rate := g.rng.IntN(models.MaxTariffRate + 1)
				if from == to {
					rate = 0
				}
				baseline.Tariffs = append(baseline.Tariffs, models.TariffRate{
					ID:          uuid.New(),
					GameID:      gameID,
					RoundNumber: 0,
					Product:     product,
					FromCountry: from,
					ToCountry:   to,
					Rate:        rate,
				})
			}
		}
	}

	return baseline
}

// allocate splits totalUnits across n parties. Non-final parties draw from
// [low, high], clipped so every later party can still receive low; the final
// party absorbs the remainder.
func (g *Generator) allocate(n, low, high int) []int {
	shares := make([]int, n)
	remaining := totalUnits
	for i := 0; i < n; i++ {
		if i == n-1 {
			shares[i] = remaining
			break
		}
		share := low + g.rng.IntN(high-low+1)
		if limit := remaining - low*(n-1-i); share > limit {
			share = max(limit, 0)
		}
		shares[i] = share
		remaining -= share
	}
	return shares
}
