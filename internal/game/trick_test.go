package game

import (
	"testing"

	"github.com/lox/gbridge/internal/deck"
)

func card(s string) deck.Card {
	return deck.MustParseCards(s)[0]
}

func TestTrickWinner_TrumpTakesOverLead(t *testing.T) {
	// Trump clubs, hearts led: the two of clubs beats the ace of hearts.
	trump := deck.Clubs
	trick := NewTrick()
	trick.Play("p1", card("Th"))
	trick.Play("p2", card("Ah"))
	trick.Play("p3", card("2c"))

	if got := trick.Winner(&trump); got != "p3" {
		t.Errorf("Winner() = %q, want p3", got)
	}
}

func TestTrickWinner_HighestLeadWinsWithoutTrump(t *testing.T) {
	trump := deck.Clubs
	trick := NewTrick()
	trick.Play("p1", card("Th"))
	trick.Play("p2", card("Ah"))
	trick.Play("p3", card("Kh"))

	if got := trick.Winner(&trump); got != "p2" {
		t.Errorf("Winner() = %q, want p2", got)
	}
}

func TestTrickWinner_OffSuitNeverWins(t *testing.T) {
	// p2 and p3 cannot follow hearts and have no trump; the modest lead
	// card takes the trick.
	trump := deck.Clubs
	trick := NewTrick()
	trick.Play("p1", card("3h"))
	trick.Play("p2", card("Ad"))
	trick.Play("p3", card("As"))

	if got := trick.Winner(&trump); got != "p1" {
		t.Errorf("Winner() = %q, want p1", got)
	}
}

func TestTrickWinner_HighestTrumpAmongSeveral(t *testing.T) {
	trump := deck.Spades
	trick := NewTrick()
	trick.Play("p1", card("Ah"))
	trick.Play("p2", card("2s"))
	trick.Play("p3", card("Ts"))
	trick.Play("p4", card("5s"))

	if got := trick.Winner(&trump); got != "p3" {
		t.Errorf("Winner() = %q, want p3", got)
	}
}

func TestTrickWinner_NoTrumpFallsBackToLead(t *testing.T) {
	trick := NewTrick()
	trick.Play("p1", card("9d"))
	trick.Play("p2", card("Ac"))
	trick.Play("p3", card("Td"))

	if got := trick.Winner(nil); got != "p3" {
		t.Errorf("Winner() = %q, want p3", got)
	}
}

func TestTrickLeadSuit(t *testing.T) {
	trick := NewTrick()
	if trick.LeadSuit() != nil {
		t.Error("LeadSuit() of empty trick should be nil")
	}

	trick.Play("p1", card("7d"))
	lead := trick.LeadSuit()
	if lead == nil || *lead != deck.Diamonds {
		t.Errorf("LeadSuit() = %v, want Diamonds", lead)
	}
}

func TestTrickPlaysAreCopied(t *testing.T) {
	trick := NewTrick()
	trick.Play("p1", card("7d"))

	plays := trick.Plays()
	plays[0].PlayerID = "someone-else"

	if trick.Plays()[0].PlayerID != "p1" {
		t.Error("mutating the returned plays changed the trick")
	}
}
