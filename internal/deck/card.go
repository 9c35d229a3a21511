package deck

import "fmt"

// Suit represents a card suit
type Suit int

const (
	Clubs Suit = iota
	Spades
	Hearts
	Diamonds
)

// Suits lists all four suits in declaration order.
var Suits = []Suit{Clubs, Spades, Hearts, Diamonds}

// String returns the symbol for a suit (used in logs)
func (s Suit) String() string {
	switch s {
	case Clubs:
		return "♣"
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	default:
		return "?"
	}
}

// Name returns the wire name for a suit
func (s Suit) Name() string {
	switch s {
	case Clubs:
		return "Clubs"
	case Spades:
		return "Spades"
	case Hearts:
		return "Hearts"
	case Diamonds:
		return "Diamonds"
	default:
		return "Unknown"
	}
}

// ParseSuit parses a wire name into a Suit
func ParseSuit(name string) (Suit, error) {
	for _, s := range Suits {
		if s.Name() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown suit %q", name)
}

// MarshalText encodes the suit as its wire name
func (s Suit) MarshalText() ([]byte, error) {
	if s < Clubs || s > Diamonds {
		return nil, fmt.Errorf("invalid suit %d", int(s))
	}
	return []byte(s.Name()), nil
}

// UnmarshalText decodes a suit from its wire name
func (s *Suit) UnmarshalText(text []byte) error {
	parsed, err := ParseSuit(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Rank represents a card rank. Two is lowest, Ace is highest.
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the short form of a rank (used in logs)
func (r Rank) String() string {
	switch r {
	case Two:
		return "2"
	case Three:
		return "3"
	case Four:
		return "4"
	case Five:
		return "5"
	case Six:
		return "6"
	case Seven:
		return "7"
	case Eight:
		return "8"
	case Nine:
		return "9"
	case Ten:
		return "T"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	default:
		return "?"
	}
}

// Name returns the wire name for a rank
func (r Rank) Name() string {
	switch r {
	case Two:
		return "Two"
	case Three:
		return "Three"
	case Four:
		return "Four"
	case Five:
		return "Five"
	case Six:
		return "Six"
	case Seven:
		return "Seven"
	case Eight:
		return "Eight"
	case Nine:
		return "Nine"
	case Ten:
		return "Ten"
	case Jack:
		return "Jack"
	case Queen:
		return "Queen"
	case King:
		return "King"
	case Ace:
		return "Ace"
	default:
		return "Unknown"
	}
}

// ParseRank parses a wire name into a Rank
func ParseRank(name string) (Rank, error) {
	for r := Two; r <= Ace; r++ {
		if r.Name() == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown rank %q", name)
}

// MarshalText encodes the rank as its wire name
func (r Rank) MarshalText() ([]byte, error) {
	if r < Two || r > Ace {
		return nil, fmt.Errorf("invalid rank %d", int(r))
	}
	return []byte(r.Name()), nil
}

// UnmarshalText decodes a rank from its wire name
func (r *Rank) UnmarshalText(text []byte) error {
	parsed, err := ParseRank(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Card represents a playing card
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// NewCard creates a new card
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// String returns the string representation of a card (e.g., "A♠")
func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// Less orders cards by (suit, rank). Hands and legal-play lists are kept
// in this order so the timeout auto-action is deterministic.
func (c Card) Less(other Card) bool {
	if c.Suit != other.Suit {
		return c.Suit < other.Suit
	}
	return c.Rank < other.Rank
}

// Beats reports whether c wins against other in a trick. Trump beats
// non-trump; between trumps the higher rank wins; otherwise a card
// following the lead suit beats one that does not, and between lead-suit
// cards the higher rank wins. Two off-suit non-trumps never beat each
// other, so the earlier-played card stands.
func (c Card) Beats(other Card, trump *Suit, lead Suit) bool {
	if trump != nil {
		cTrump := c.Suit == *trump
		otherTrump := other.Suit == *trump
		switch {
		case cTrump && !otherTrump:
			return true
		case !cTrump && otherTrump:
			return false
		case cTrump && otherTrump:
			return c.Rank > other.Rank
		}
	}

	cLead := c.Suit == lead
	otherLead := other.Suit == lead
	switch {
	case cLead && !otherLead:
		return true
	case !cLead && otherLead:
		return false
	case cLead && otherLead:
		return c.Rank > other.Rank
	default:
		return false
	}
}
