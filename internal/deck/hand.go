package deck

import (
	"sort"
	"strings"
)

// Hand is one player's current holding, kept sorted by (suit, rank).
type Hand struct {
	cards []Card
}

// NewHand creates a hand from the given cards
func NewHand(cards ...Card) Hand {
	h := Hand{}
	for _, c := range cards {
		h.add(c)
	}
	return h
}

func (h *Hand) add(card Card) {
	i := sort.Search(len(h.cards), func(i int) bool {
		return !h.cards[i].Less(card)
	})
	h.cards = append(h.cards, Card{})
	copy(h.cards[i+1:], h.cards[i:])
	h.cards[i] = card
}

// Cards returns a copy of the hand's cards in sorted order
func (h Hand) Cards() []Card {
	out := make([]Card, len(h.cards))
	copy(out, h.cards)
	return out
}

// Len returns the number of cards held
func (h Hand) Len() int {
	return len(h.cards)
}

// IsEmpty returns true when no cards remain
func (h Hand) IsEmpty() bool {
	return len(h.cards) == 0
}

// Contains reports whether the hand holds the given card
func (h Hand) Contains(card Card) bool {
	for _, c := range h.cards {
		if c == card {
			return true
		}
	}
	return false
}

// Remove takes the given card out of the hand. Returns false if the
// card is not held; the hand is unchanged in that case.
func (h *Hand) Remove(card Card) bool {
	for i, c := range h.cards {
		if c == card {
			h.cards = append(h.cards[:i], h.cards[i+1:]...)
			return true
		}
	}
	return false
}

// HasSuit reports whether the hand holds at least one card of the suit
func (h Hand) HasSuit(suit Suit) bool {
	for _, c := range h.cards {
		if c.Suit == suit {
			return true
		}
	}
	return false
}

// LegalPlays returns the cards this hand may play given the trick's
// lead suit. A nil lead means the player leads and may play anything.
// If the hand can follow the lead suit it must: only those cards are
// legal. The result shares the hand's (suit, rank) ordering.
func (h Hand) LegalPlays(lead *Suit) []Card {
	if lead == nil || !h.HasSuit(*lead) {
		return h.Cards()
	}

	var legal []Card
	for _, c := range h.cards {
		if c.Suit == *lead {
			legal = append(legal, c)
		}
	}
	return legal
}

// String returns the hand as space-separated cards, e.g. "2♣ A♥"
func (h Hand) String() string {
	parts := make([]string, len(h.cards))
	for i, c := range h.cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
