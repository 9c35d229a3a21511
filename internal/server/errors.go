package server

import (
	"errors"

	"github.com/lox/gbridge/internal/game"
)

var (
	// ErrGameNotFound indicates the referenced game does not exist or
	// has already completed.
	ErrGameNotFound = errors.New("game not found")

	// ErrLobbyNotFound indicates the referenced lobby does not exist.
	ErrLobbyNotFound = errors.New("lobby not found")

	// ErrLobbyFull indicates the lobby is at its player cap.
	ErrLobbyFull = errors.New("lobby full")

	// ErrNotEnoughPlayers indicates a start attempt with fewer than two members.
	ErrNotEnoughPlayers = errors.New("not enough players")

	// ErrNotHost indicates a non-host tried a host-only operation.
	ErrNotHost = errors.New("only host can start game")

	// ErrNotInLobby indicates the player has no lobby to act on.
	ErrNotInLobby = errors.New("not in a lobby")

	// ErrUnknownMessage indicates an unrecognized inbound message type.
	ErrUnknownMessage = errors.New("unknown message type")

	// ErrTransportClosed indicates a send on a session whose sink is gone.
	ErrTransportClosed = errors.New("transport closed")

	// ErrServerFull indicates the connection admission cap was reached.
	ErrServerFull = errors.New("server at connection capacity")
)

// wireMessage translates an error into the string clients see in an
// Error payload. Internal detail stays out of the wire form except for
// invalid-move reasons, which are written to be client-safe.
func wireMessage(err error) string {
	var invalid *game.InvalidMoveError
	switch {
	case errors.As(err, &invalid):
		return "Invalid move: " + invalid.Reason
	case errors.Is(err, game.ErrNotPlayerTurn):
		return "Not player's turn"
	case errors.Is(err, game.ErrPlayerNotInGame):
		return "Player not in game"
	case errors.Is(err, ErrGameNotFound):
		return "Game not found"
	case errors.Is(err, ErrLobbyNotFound):
		return "Lobby not found"
	case errors.Is(err, ErrLobbyFull):
		return "Lobby full"
	case errors.Is(err, ErrNotEnoughPlayers):
		return "Not enough players"
	case errors.Is(err, ErrNotHost):
		return "Only host can start game"
	case errors.Is(err, ErrNotInLobby):
		return "Not in a lobby"
	case errors.Is(err, ErrUnknownMessage):
		return "Unknown message type"
	default:
		return err.Error()
	}
}
