package gamestate

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/rs/zerolog/log"
)

// RoundTimer is the server-trusted countdown of a game's current round.
// Expiry is informational: it never closes the round.
type RoundTimer struct {
	GameID    uuid.UUID
	Round     int
	StartedAt time.Time
	Deadline  time.Time
	// Expired is set once the zero tick has been published.
	Expired bool
}

// Remaining returns the time left at now, never negative.
func (t RoundTimer) Remaining(now time.Time) time.Duration {
	if d := t.Deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

// RemainingSeconds rounds the remaining time up to whole seconds.
func (t RoundTimer) RemainingSeconds(now time.Time) int {
	d := t.Remaining(now)
	return int((d + time.Second - 1) / time.Second)
}

// StartTimer replaces any timer for the game with one for round.
func (s *Store) StartTimer(gameID uuid.UUID, round int, startedAt time.Time, window time.Duration) RoundTimer {
	t := &RoundTimer{
		GameID:    gameID,
		Round:     round,
		StartedAt: startedAt,
		Deadline:  startedAt.Add(window),
	}

	s.timersMu.Lock()
	s.timers[gameID] = t
	s.timersMu.Unlock()

	log.Debug().
		Str("game_id", gameID.String()).
		Int("round", round).
		Time("deadline", t.Deadline).
		Msg("round timer started")
	return *t
}

// StopTimer removes the timer of a game.
func (s *Store) StopTimer(gameID uuid.UUID) {
	s.timersMu.Lock()
	delete(s.timers, gameID)
	s.timersMu.Unlock()
}

// Timer returns the current timer of a game.
func (s *Store) Timer(gameID uuid.UUID) (RoundTimer, bool) {
	s.timersMu.RLock()
	defer s.timersMu.RUnlock()
	t, ok := s.timers[gameID]
	if !ok {
		return RoundTimer{}, false
	}
	return *t, true
}

// Timers returns a snapshot of every running timer ordered by deadline.
func (s *Store) Timers() []RoundTimer {
	s.timersMu.RLock()
	out := make([]RoundTimer, 0, len(s.timers))
	for _, t := range s.timers {
		out = append(out, *t)
	}
	s.timersMu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(out[j].Deadline) })
	return out
}

// MarkExpired flags the timer of round as expired. It returns true only for
// the first call, so the zero tick is published once.
func (s *Store) MarkExpired(gameID uuid.UUID, round int) bool {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	t, ok := s.timers[gameID]
	if !ok || t.Round != round || t.Expired {
		return false
	}
	t.Expired = true
	return true
}

// RestoreTimers rebuilds timers for active games after a restart, using the
// start time of each game's active round.
func (s *Store) RestoreTimers(ctx context.Context, defaultWindow time.Duration) error {
	games, err := s.Games(ctx)
	if err != nil {
		return err
	}

	restored := 0
	for _, game := range games {
		if game.Status != models.GameStatusActive {
			continue
		}
		rounds, err := s.Rounds(ctx, game.ID)
		if err != nil {
			return err
		}
		for _, r := range rounds {
			if r.Status != models.RoundStatusActive {
				continue
			}
			s.StartTimer(game.ID, r.RoundNumber, r.StartTime, roundWindow(game.Settings, defaultWindow))
			restored++
		}
	}

	log.Info().Int("timers", restored).Msg("round timers restored")
	return nil
}

// RoundWindow returns the submission window configured for a game.
func RoundWindow(game *models.Game, fallback time.Duration) time.Duration {
	return roundWindow(game.Settings, fallback)
}

func roundWindow(settings models.GameSettings, fallback time.Duration) time.Duration {
	if settings.RoundDurationSec > 0 {
		return time.Duration(settings.RoundDurationSec) * time.Second
	}
	return fallback
}
