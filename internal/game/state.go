package game

import (
	"fmt"
	rand "math/rand/v2"
	"time"

	"github.com/lox/gbridge/internal/deck"
)

// MinPlayers is the smallest game the rules support. Lobbies enforce a
// stricter 3-4 player range; the state machine itself only needs two.
const MinPlayers = 2

// Phase is the game's lifecycle stage
type Phase string

const (
	PhaseBidding       Phase = "Bidding"
	PhasePlaying       Phase = "Playing"
	PhaseRoundComplete Phase = "RoundComplete"
	PhaseGameComplete  Phase = "GameComplete"
)

// Summary describes the observable effects of one applied action. The
// registry turns these into broadcasts, so it carries everything a
// client needs to hear about: bidding closing, a trick resolving, a
// round being scored, or the game finishing.
type Summary struct {
	Player          string
	Action          Action
	BiddingComplete bool
	TrickWinner     string
	RoundComplete   bool
	RoundScores     map[string]int
	FinalScores     map[string]int
	NextPlayer      string
	Phase           Phase
	Round           int
}

// GameComplete reports whether the action ended the game
func (s Summary) GameComplete() bool {
	return s.FinalScores != nil
}

// State is one game's authoritative state machine. It is not safe for
// concurrent use; the registry serializes access per game.
//
// A game runs rounds 1..maxRounds where round n deals n cards to each
// player from a fresh shuffled deck under a fresh random trump. Each
// round bids first (every player declares a trick count, with the
// last bidder forbidden from making the bids sum to the cards dealt),
// then plays tricks until hands are empty, then scores. Progression is
// automatic: the card play that empties the last hand scores the round
// and either deals the next round or completes the game.
type State struct {
	players   []string
	maxRounds int
	rng       *rand.Rand

	phase         Phase
	round         int
	trump         deck.Suit
	hands         map[string]*deck.Hand
	ledger        *BiddingLedger
	bids          map[string]int
	trick         *Trick
	completed     []CompletedTrick
	tricksWon     map[string]int
	totals        map[string]int
	currentPlayer string
	firstBidder   int
	turnDeadline  time.Time
}

// NewState creates a game for the given players in fixed turn order and
// deals round 1. The first player bids first in round 1; the first
// bidder rotates one seat each round after that. The RNG drives shuffles
// and trump draws, so a seeded RNG reproduces the whole game.
func NewState(players []string, rng *rand.Rand) (*State, error) {
	if len(players) < MinPlayers {
		return nil, fmt.Errorf("need at least %d players, got %d", MinPlayers, len(players))
	}
	if 52/len(players) < 1 {
		return nil, fmt.Errorf("too many players for a 52-card deck: %d", len(players))
	}
	seen := make(map[string]bool, len(players))
	for _, p := range players {
		if seen[p] {
			return nil, fmt.Errorf("duplicate player %q", p)
		}
		seen[p] = true
	}

	s := &State{
		players:   append([]string(nil), players...),
		maxRounds: 52 / len(players),
		rng:       rng,
		round:     1,
		totals:    make(map[string]int, len(players)),
	}
	for _, p := range s.players {
		s.totals[p] = 0
	}

	s.dealRound()
	return s, nil
}

// dealRound sets up the current round: fresh deck, fresh trump, hands of
// round-number cards each, and a bidding ledger starting at firstBidder.
func (s *State) dealRound() {
	d := deck.New(s.rng)
	d.Shuffle()
	dealt := d.DealHands(len(s.players), s.round)

	s.hands = make(map[string]*deck.Hand, len(s.players))
	for i := range dealt {
		hand := dealt[i]
		s.hands[s.players[i]] = &hand
	}

	s.trump = deck.Suits[s.rng.IntN(len(deck.Suits))]
	s.ledger = NewBiddingLedger(s.biddingOrder(), s.round)
	s.bids = nil
	s.trick = NewTrick()
	s.completed = nil
	s.tricksWon = make(map[string]int, len(s.players))
	for _, p := range s.players {
		s.tricksWon[p] = 0
	}

	s.phase = PhaseBidding
	s.currentPlayer = s.players[s.firstBidder]
	s.turnDeadline = time.Time{}
}

// biddingOrder returns the players rotated so firstBidder bids first
func (s *State) biddingOrder() []string {
	order := make([]string, 0, len(s.players))
	for i := 0; i < len(s.players); i++ {
		order = append(order, s.players[(s.firstBidder+i)%len(s.players)])
	}
	return order
}

// Validate checks an action against the current state without mutating
// anything. Apply calls it first, so a Validate error means the action
// would be rejected exactly as-is.
func (s *State) Validate(player string, action Action) error {
	if !s.isPlayer(player) {
		return ErrPlayerNotInGame
	}

	switch action.Type {
	case ActionBid:
		if s.phase != PhaseBidding {
			return invalidMove("no bidding in the %s phase", s.phase)
		}
		return s.ledger.Check(player, action.Tricks)

	case ActionPlayCard:
		if s.phase != PhasePlaying {
			return invalidMove("no card play in the %s phase", s.phase)
		}
		if player != s.currentPlayer {
			return ErrNotPlayerTurn
		}
		hand := s.hands[player]
		if !hand.Contains(action.Card) {
			return invalidMove("card %s is not in your hand", action.Card)
		}
		if lead := s.trick.LeadSuit(); lead != nil && action.Card.Suit != *lead && hand.HasSuit(*lead) {
			return invalidMove("must follow the lead suit %s", lead.Name())
		}
		return nil

	default:
		return invalidMove("unknown action type %q", action.Type)
	}
}

// Apply validates and then executes an action. On error the state is
// unchanged. On success the returned summary lists every observable
// consequence, including cascaded ones (trick resolved, round scored,
// next round dealt, game completed).
func (s *State) Apply(player string, action Action) (Summary, error) {
	if err := s.Validate(player, action); err != nil {
		return Summary{}, err
	}

	summary := Summary{Player: player, Action: action}

	switch action.Type {
	case ActionBid:
		if err := s.ledger.Place(player, action.Tricks); err != nil {
			return Summary{}, err
		}
		if s.ledger.Complete() {
			s.bids = s.ledger.Bids()
			s.phase = PhasePlaying
			s.currentPlayer = s.players[s.firstBidder]
			summary.BiddingComplete = true
		} else {
			s.currentPlayer = s.ledger.CurrentBidder()
		}

	case ActionPlayCard:
		s.hands[player].Remove(action.Card)
		s.trick.Play(player, action.Card)

		if s.trick.Len() == len(s.players) {
			s.completeTrick(&summary)
		} else {
			s.currentPlayer = s.nextAfter(player)
		}
	}

	s.turnDeadline = time.Time{}
	summary.Phase = s.phase
	summary.Round = s.round
	if s.phase != PhaseGameComplete {
		summary.NextPlayer = s.currentPlayer
	}
	return summary, nil
}

// completeTrick archives the full trick, credits the winner, and rolls
// the round over when the last cards have been played.
func (s *State) completeTrick(summary *Summary) {
	winner := s.trick.Winner(&s.trump)
	s.completed = append(s.completed, CompletedTrick{Plays: s.trick.Plays(), Winner: winner})
	s.tricksWon[winner]++
	s.trick = NewTrick()
	s.currentPlayer = winner
	summary.TrickWinner = winner

	if !s.handsEmpty() {
		return
	}

	scores := make(map[string]int, len(s.players))
	for _, p := range s.players {
		pts := RoundScore(s.bids[p], s.tricksWon[p])
		scores[p] = pts
		s.totals[p] += pts
	}
	summary.RoundComplete = true
	summary.RoundScores = scores

	s.phase = PhaseRoundComplete
	if s.round >= s.maxRounds {
		s.phase = PhaseGameComplete
		s.currentPlayer = ""
		summary.FinalScores = s.Totals()
		return
	}

	s.round++
	s.firstBidder = (s.firstBidder + 1) % len(s.players)
	s.dealRound()
}

// AutoAction returns the timeout default for the current player: bid 0
// when the ledger allows it (1 otherwise, which the last-bidder rule
// always permits), or the lowest legal card by (suit, rank). The result
// always passes Validate.
func (s *State) AutoAction() Action {
	switch s.phase {
	case PhaseBidding:
		if s.ledger.Check(s.currentPlayer, 0) == nil {
			return Bid(0)
		}
		return Bid(1)
	case PhasePlaying:
		legal := s.hands[s.currentPlayer].LegalPlays(s.trick.LeadSuit())
		return PlayCard(legal[0])
	default:
		return Action{}
	}
}

func (s *State) nextAfter(player string) string {
	for i, p := range s.players {
		if p == player {
			return s.players[(i+1)%len(s.players)]
		}
	}
	return player
}

func (s *State) handsEmpty() bool {
	for _, hand := range s.hands {
		if !hand.IsEmpty() {
			return false
		}
	}
	return true
}

func (s *State) isPlayer(player string) bool {
	for _, p := range s.players {
		if p == player {
			return true
		}
	}
	return false
}

// Players returns the turn order
func (s *State) Players() []string {
	return append([]string(nil), s.players...)
}

// Phase returns the current phase
func (s *State) Phase() Phase {
	return s.phase
}

// Round returns the current round number (1-based)
func (s *State) Round() int {
	return s.round
}

// MaxRounds returns the total number of rounds for this player count
func (s *State) MaxRounds() int {
	return s.maxRounds
}

// CurrentPlayer returns whose turn it is, or "" when the game is over
func (s *State) CurrentPlayer() string {
	return s.currentPlayer
}

// Trump returns the current round's trump suit
func (s *State) Trump() deck.Suit {
	return s.trump
}

// Totals returns a copy of the lifetime scores
func (s *State) Totals() map[string]int {
	out := make(map[string]int, len(s.totals))
	for p, pts := range s.totals {
		out[p] = pts
	}
	return out
}

// TurnDeadline returns the pending deadline, zero if none
func (s *State) TurnDeadline() time.Time {
	return s.turnDeadline
}

// SetTurnDeadline records the deadline the timer was armed with. Apply
// clears it, which is what lets an expired timer detect that the turn
// already advanced.
func (s *State) SetTurnDeadline(deadline time.Time) {
	s.turnDeadline = deadline
}
