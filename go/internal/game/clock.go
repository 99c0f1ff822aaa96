package game

import (
	"context"
	"time"

	"github.com/mcdev12/econempire/go/internal/gamestate"
	"github.com/rs/zerolog/log"
)

// RunRoundClock publishes the remaining time of every running round on each
// tick until ctx is done. When a round reaches zero one final tick is sent;
// the round stays open until the operator advances or ends the game.
func (c *Coordinator) RunRoundClock(ctx context.Context) error {
	ticker := c.clock.NewTicker(c.rules.TimerTickInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", c.rules.TimerTickInterval).Msg("round clock started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("round clock stopped")
			return ctx.Err()
		case <-ticker.Chan():
			c.Tick()
		}
	}
}

// Tick publishes one timer update per running round.
func (c *Coordinator) Tick() {
	now := c.clock.Now()
	for _, t := range c.store.Timers() {
		c.tickTimer(t, now)
	}
}

// tickTimer publishes seen unless the game moved on since it was read. The
// game's read lock keeps an advance from landing between the check and the
// publish, so a tick never follows the next round's first timer event.
func (c *Coordinator) tickTimer(seen gamestate.RoundTimer, now time.Time) {
	unlock := c.store.RLock(seen.GameID)
	defer unlock()

	t, ok := c.store.Timer(seen.GameID)
	if !ok || t.Round != seen.Round || t.Expired {
		return
	}
	if t.Remaining(now) == 0 {
		if !c.store.MarkExpired(t.GameID, t.Round) {
			return
		}
		log.Info().Str("game_id", t.GameID.String()).Int("round", t.Round).Msg("round timer reached zero")
	}
	c.notifyTimer(t, now)
}
