package gateway

import (
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/econempire/go/internal/events"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Broadcaster is the only writer to the realtime transport. It turns
// coordinator, ledger, chat and presence changes into addressed events.
// Publishing never fails the caller; errors are logged and dropped.
type Broadcaster struct {
	bus   Bus
	clock clockwork.Clock
}

// NewBroadcaster creates a broadcaster publishing on bus.
func NewBroadcaster(bus Bus, clock clockwork.Clock) *Broadcaster {
	return &Broadcaster{bus: bus, clock: clock}
}

func (b *Broadcaster) publish(audience Audience, eventType events.Type, gameID string, payload any) {
	event, err := NewEvent(eventType, gameID, payload, b.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build event")
		return
	}
	if err := b.bus.Publish(Envelope{Audience: audience, Event: event}); err != nil {
		log.Warn().Err(err).Str("event_type", string(eventType)).Str("game_id", gameID).Msg("failed to publish event")
	}
}

// GameStateChanged goes to everyone.
func (b *Broadcaster) GameStateChanged(p events.GameStateChangedPayload) {
	b.publish(Everyone(), events.TypeGameStateChanged, p.GameID, p)
}

// RoundTimerUpdated goes to everyone.
func (b *Broadcaster) RoundTimerUpdated(p events.RoundTimerUpdatedPayload) {
	b.publish(Everyone(), events.TypeRoundTimerUpdated, p.GameID, p)
}

// GameDataUpdated goes to the named country's room, or to everyone when no country is set.
func (b *Broadcaster) GameDataUpdated(p events.GameDataUpdatedPayload) {
	audience := Everyone()
	if p.Country != "" {
		audience = Audience{Rooms: []string{CountryRoom(p.Country)}}
	}
	b.publish(audience, events.TypeGameDataUpdated, p.GameID, p)
}

// TariffUpdated goes to the operators and the two countries involved.
func (b *Broadcaster) TariffUpdated(p events.TariffUpdatedPayload) {
	rooms := []string{OperatorsRoom, CountryRoom(p.FromCountry)}
	if p.ToCountry != p.FromCountry {
		rooms = append(rooms, CountryRoom(p.ToCountry))
	}
	b.publish(Audience{Rooms: rooms}, events.TypeTariffUpdated, p.GameID, p)
}

// NewMessage sends group messages to everyone. Private messages reach the
// recipient country's room and are echoed to the sender only.
func (b *Broadcaster) NewMessage(p events.NewMessagePayload, senderID uuid.UUID) {
	audience := Everyone()
	if p.MessageType == models.MessageTypePrivate {
		audience = Audience{
			Rooms:   []string{CountryRoom(p.RecipientCountry)},
			UserIDs: []string{senderID.String()},
		}
	}
	b.publish(audience, events.TypeNewMessage, p.GameID, p)
}

// UserStatus announces a presence change to everyone.
func (b *Broadcaster) UserStatus(identity models.Identity, online bool) {
	b.publish(Everyone(), events.TypeUserStatusUpdate, "", userStatusPayload(identity, online))
}

// SessionEnded reaches every connection of the user, on any process.
func (b *Broadcaster) SessionEnded(p events.SessionEndedPayload) {
	b.publish(Audience{UserIDs: []string{p.UserID}}, events.TypeSessionEnded, "", p)
}

func userStatusPayload(identity models.Identity, online bool) events.UserStatusPayload {
	return events.UserStatusPayload{
		UserID:   identity.UserID.String(),
		Username: identity.Username,
		Role:     identity.Role,
		Country:  identity.Country,
		IsOnline: online,
	}
}
