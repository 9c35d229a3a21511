package game

import (
	"github.com/lox/gbridge/internal/deck"
)

// TrickPlay is one card played into a trick
type TrickPlay struct {
	PlayerID string    `json:"player_id"`
	Card     deck.Card `json:"card"`
}

// Trick accumulates one card per player. The suit of the first card is
// the lead suit; once every player has played, Winner resolves it.
type Trick struct {
	plays []TrickPlay
}

// NewTrick creates an empty trick
func NewTrick() *Trick {
	return &Trick{}
}

// Play adds a card to the trick
func (t *Trick) Play(player string, card deck.Card) {
	t.plays = append(t.plays, TrickPlay{PlayerID: player, Card: card})
}

// Len returns the number of cards played so far
func (t *Trick) Len() int {
	return len(t.plays)
}

// LeadSuit returns the suit of the first card, or nil for an empty trick
func (t *Trick) LeadSuit() *deck.Suit {
	if len(t.plays) == 0 {
		return nil
	}
	suit := t.plays[0].Card.Suit
	return &suit
}

// Plays returns a copy of the plays in order
func (t *Trick) Plays() []TrickPlay {
	out := make([]TrickPlay, len(t.plays))
	copy(out, t.plays)
	return out
}

// Winner returns the player whose card beats all others under the
// trump/lead ordering. The comparison folds left to right, so ties
// between off-suit cards resolve to the earlier play.
func (t *Trick) Winner(trump *deck.Suit) string {
	if len(t.plays) == 0 {
		return ""
	}

	lead := t.plays[0].Card.Suit
	best := t.plays[0]
	for _, play := range t.plays[1:] {
		if play.Card.Beats(best.Card, trump, lead) {
			best = play
		}
	}
	return best.PlayerID
}

// CompletedTrick is an archived trick with its resolved winner
type CompletedTrick struct {
	Plays  []TrickPlay `json:"plays"`
	Winner string      `json:"winner"`
}
