package game

import (
	"time"

	"github.com/lox/gbridge/internal/deck"
)

// View is the projection of a game sent to one player. It contains that
// player's own hand and only public information about everyone else:
// cards already played, bids, trick counts, and scores. Everything is
// copied, so a View stays valid after the game mutates.
type View struct {
	GameID         string         `json:"game_id,omitempty"`
	Phase          Phase          `json:"phase"`
	Round          int            `json:"round"`
	CardsPerPlayer int            `json:"cards_per_player"`
	MaxRounds      int            `json:"max_rounds"`
	Trump          deck.Suit      `json:"trump"`
	Players        []string       `json:"players"`
	CurrentPlayer  string         `json:"current_player"`
	YourTurn       bool           `json:"your_turn"`
	Hand           []deck.Card    `json:"hand"`
	CurrentTrick   []TrickPlay    `json:"current_trick"`
	LeadSuit       *deck.Suit     `json:"lead_suit,omitempty"`
	Bids           map[string]int `json:"bids"`
	TricksWon      map[string]int `json:"tricks_won"`
	TotalScores    map[string]int `json:"total_scores"`
	TricksPlayed   int            `json:"tricks_played"`
	TurnDeadline   *time.Time     `json:"turn_deadline,omitempty"`
}

// PlayerView builds the view for one player. The GameID field is left
// empty; the registry fills it in since the state does not know its own
// id.
func (s *State) PlayerView(player string) (View, error) {
	if !s.isPlayer(player) {
		return View{}, ErrPlayerNotInGame
	}

	view := View{
		Phase:          s.phase,
		Round:          s.round,
		CardsPerPlayer: s.round,
		MaxRounds:      s.maxRounds,
		Trump:          s.trump,
		Players:        s.Players(),
		CurrentPlayer:  s.currentPlayer,
		YourTurn:       player == s.currentPlayer,
		Hand:           s.hands[player].Cards(),
		CurrentTrick:   s.trick.Plays(),
		LeadSuit:       s.trick.LeadSuit(),
		Bids:           s.currentBids(),
		TricksWon:      s.copyTricksWon(),
		TotalScores:    s.Totals(),
		TricksPlayed:   len(s.completed),
	}
	if !s.turnDeadline.IsZero() {
		deadline := s.turnDeadline
		view.TurnDeadline = &deadline
	}
	return view, nil
}

// currentBids exposes placed bids during bidding and the frozen ledger
// afterwards
func (s *State) currentBids() map[string]int {
	if s.bids == nil {
		return s.ledger.Bids()
	}
	out := make(map[string]int, len(s.bids))
	for p, b := range s.bids {
		out[p] = b
	}
	return out
}

func (s *State) copyTricksWon() map[string]int {
	out := make(map[string]int, len(s.tricksWon))
	for p, n := range s.tricksWon {
		out[p] = n
	}
	return out
}
