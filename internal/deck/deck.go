package deck

import (
	rand "math/rand/v2"
)

// Deck represents a deck of playing cards
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// New creates a standard 52-card deck using the provided RNG for
// shuffling. The RNG is injected so games are reproducible from a seed.
func New(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, 52),
		rng:   rng,
	}

	for _, suit := range Suits {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}

	return d
}

// Shuffle randomizes the order of cards in the deck
func (d *Deck) Shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal removes and returns the top card from the deck
func (d *Deck) Deal() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}

	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, true
}

// DealHands deals n cards to each of count players in round-robin order,
// the way the dealer would around a table. Returns one hand per player.
func (d *Deck) DealHands(count, n int) []Hand {
	hands := make([]Hand, count)
	for i := 0; i < n; i++ {
		for p := 0; p < count; p++ {
			card, ok := d.Deal()
			if !ok {
				return hands
			}
			hands[p].add(card)
		}
	}
	return hands
}

// CardsRemaining returns the number of cards left in the deck
func (d *Deck) CardsRemaining() int {
	return len(d.cards)
}
