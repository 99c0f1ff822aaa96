package events

// Inbound command payloads.

// SendMessageCommand asks to post a chat message.
type SendMessageCommand struct {
	GameID           string `json:"game_id"`
	Content          string `json:"content"`
	MessageType      string `json:"message_type"`
	RecipientCountry string `json:"recipient_country,omitempty"`
}

// TariffUpdateCommand is a non-authoritative tariff relay.
type TariffUpdateCommand struct {
	GameID      string `json:"game_id"`
	RoundNumber int    `json:"round_number"`
	Product     string `json:"product"`
	FromCountry string `json:"from_country,omitempty"`
	ToCountry   string `json:"to_country"`
	Rate        int    `json:"rate"`
}

// GameStateUpdateCommand asks the coordinator to run a lifecycle action.
// ExpectedRound, when set, makes advance fail if the game already moved past it.
type GameStateUpdateCommand struct {
	GameID        string `json:"game_id"`
	Action        string `json:"action"`
	TotalRounds   int    `json:"total_rounds,omitempty"`
	ExpectedRound int    `json:"expected_round,omitempty"`
}

// RoundTimerUpdateCommand asks for a re-broadcast of the server round timer.
type RoundTimerUpdateCommand struct {
	GameID string `json:"game_id"`
}
