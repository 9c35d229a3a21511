// Package game implements the rules of the trick-taking card game the
// server hosts.
//
// The main type is State, which manages one game from the first deal to
// the final score: rounds, bidding, trick resolution, and scoring. A
// game runs rounds 1..N where round n deals n cards per player from a
// fresh deck under a randomly drawn trump suit. Each round opens with a
// bidding phase in which every player declares how many tricks they
// will win, with the last bidder barred from making the bids sum to the
// cards dealt. Hitting your bid exactly scores 10 plus the square of
// the bid; missing costs the square of the difference.
//
// # Basic Usage
//
// Create a game and feed it player actions:
//
//	s, err := game.NewState([]string{"alice", "bob", "carol"}, rng)
//	summary, err := s.Apply("alice", game.Bid(1))
//	summary, err = s.Apply("alice", game.PlayCard(card))
//
// Apply validates each action against the current phase and turn,
// leaves the state untouched on error, and returns a Summary describing
// everything the action caused: bidding closing, a trick resolving, a
// round being scored, the next round being dealt, or the game ending.
//
// # Deterministic Games
//
// All shuffles and trump draws come from the injected *rand.Rand, so a
// seeded RNG reproduces an entire game:
//
//	s, _ := game.NewState(players, randutil.New(42))
//
// State is not safe for concurrent use; callers serialize access per
// game.
package game
