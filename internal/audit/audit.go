// Package audit provides an optional fire-and-forget event sink for
// game activity. The server runs correctly with no store configured;
// when one is wired, failures are logged and never block game flow.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types recorded by the server
const (
	EventGameCreated   = "game_created"
	EventAction        = "action"
	EventTrickComplete = "trick_complete"
	EventRoundComplete = "round_complete"
	EventGameOver      = "game_over"
	EventGameAbandoned = "game_abandoned"
)

// Event is one recorded game occurrence
type Event struct {
	ID        string          `json:"id"`
	GameID    string          `json:"game_id"`
	Type      string          `json:"type"`
	PlayerID  string          `json:"player_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEvent builds an event with a fresh ID. The payload is marshalled
// here; a payload that fails to marshal is recorded without one rather
// than dropped.
func NewEvent(gameID, eventType, playerID string, payload any) Event {
	event := Event{
		ID:        uuid.NewString(),
		GameID:    gameID,
		Type:      eventType,
		PlayerID:  playerID,
		CreatedAt: time.Now().UTC(),
	}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			event.Payload = data
		}
	}
	return event
}

// Store persists audit events
type Store interface {
	Record(ctx context.Context, event Event) error
	Close() error
}
