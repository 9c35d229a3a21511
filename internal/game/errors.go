package game

import (
	"errors"
	"fmt"
)

var (
	// ErrNotPlayerTurn indicates a player acted out of turn.
	ErrNotPlayerTurn = errors.New("not player's turn")

	// ErrPlayerNotInGame indicates the acting player is not a participant.
	ErrPlayerNotInGame = errors.New("player not in game")
)

// InvalidMoveError rejects a structurally valid action that breaks the
// rules of the current phase. The reason is safe to send to the client.
type InvalidMoveError struct {
	Reason string
}

func (e *InvalidMoveError) Error() string {
	return fmt.Sprintf("invalid move: %s", e.Reason)
}

func invalidMove(format string, args ...any) error {
	return &InvalidMoveError{Reason: fmt.Sprintf(format, args...)}
}
