package server

import (
	"encoding/json"

	"github.com/lox/gbridge/internal/deck"
	"github.com/lox/gbridge/internal/game"
)

// Message is the wire envelope for every frame in both directions:
// a type tag and an optional payload.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage wraps a payload in an envelope. A nil payload produces a
// bare tag, used for Pong and other empty messages.
func NewMessage(messageType MessageType, payload any) (*Message, error) {
	msg := &Message{Type: messageType}
	if payload == nil {
		return msg, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	msg.Payload = data
	return msg, nil
}

// Client → Server payloads

type CreateLobbyPayload struct {
	PlayerCount     int   `json:"player_count"`
	TurnTimeoutSecs int   `json:"turn_timeout_secs,omitempty"`
	AllowReconnect  *bool `json:"allow_reconnect,omitempty"`
}

type JoinLobbyPayload struct {
	LobbyID string `json:"lobby_id"`
}

type PlaceBidPayload struct {
	Bid int `json:"bid"`
}

type PlayCardPayload struct {
	Card deck.Card `json:"card"`
}

// Server → Client payloads

type ConnectedPayload struct {
	PlayerID string `json:"player_id"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// LobbyInfo is the public view of one lobby
type LobbyInfo struct {
	LobbyID         string   `json:"lobby_id"`
	Host            string   `json:"host"`
	Players         []string `json:"players"`
	MaxPlayers      int      `json:"max_players"`
	TurnTimeoutSecs int      `json:"turn_timeout_secs"`
	AllowReconnect  bool     `json:"allow_reconnect"`
}

type LobbyCreatedPayload struct {
	LobbyID string `json:"lobby_id"`
}

type LobbyJoinedPayload struct {
	Lobby LobbyInfo `json:"lobby"`
}

type LobbyUpdatedPayload struct {
	Lobby LobbyInfo `json:"lobby"`
}

type LobbyListPayload struct {
	Lobbies []LobbyInfo `json:"lobbies"`
}

type GameStartingPayload struct {
	GameID string `json:"game_id"`
}

// GameState messages carry a game.View as their payload directly.

type PlayerActionPayload struct {
	PlayerID string      `json:"player_id"`
	Action   game.Action `json:"action"`
}

type TrickCompletePayload struct {
	Winner string `json:"winner"`
}

type GameOverPayload struct {
	FinalScores map[string]int `json:"final_scores"`
}

type PlayerLeftPayload struct {
	PlayerID string `json:"player_id"`
}

type PlayerReconnectedPayload struct {
	PlayerID string `json:"player_id"`
}
