package game

import (
	"encoding/json"
	"fmt"

	"github.com/lox/gbridge/internal/deck"
)

// ActionType discriminates the two moves a player can make
type ActionType string

const (
	ActionBid      ActionType = "Bid"
	ActionPlayCard ActionType = "PlayCard"
)

// Action is a player move: either a bid or a card play. The zero value
// is invalid; construct with Bid or PlayCard.
type Action struct {
	Type   ActionType
	Tricks int
	Card   deck.Card
}

// Bid builds a bid action for the given trick count
func Bid(tricks int) Action {
	return Action{Type: ActionBid, Tricks: tricks}
}

// PlayCard builds a card-play action
func PlayCard(card deck.Card) Action {
	return Action{Type: ActionPlayCard, Card: card}
}

// String returns a short description for logs, e.g. "bid 2" or "play A♥"
func (a Action) String() string {
	switch a.Type {
	case ActionBid:
		return fmt.Sprintf("bid %d", a.Tricks)
	case ActionPlayCard:
		return fmt.Sprintf("play %s", a.Card)
	default:
		return "unknown action"
	}
}

type bidJSON struct {
	Type   ActionType `json:"type"`
	Tricks int        `json:"tricks"`
}

type playCardJSON struct {
	Type ActionType `json:"type"`
	Card deck.Card  `json:"card"`
}

// MarshalJSON encodes only the fields relevant to the action type, so a
// bid never carries a card and a play never carries a trick count.
func (a Action) MarshalJSON() ([]byte, error) {
	switch a.Type {
	case ActionBid:
		return json.Marshal(bidJSON{Type: a.Type, Tricks: a.Tricks})
	case ActionPlayCard:
		return json.Marshal(playCardJSON{Type: a.Type, Card: a.Card})
	default:
		return nil, fmt.Errorf("unknown action type %q", a.Type)
	}
}

// UnmarshalJSON decodes an action from its tagged wire form
func (a *Action) UnmarshalJSON(data []byte) error {
	var tag struct {
		Type ActionType `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}

	switch tag.Type {
	case ActionBid:
		var b bidJSON
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*a = Bid(b.Tricks)
	case ActionPlayCard:
		var p playCardJSON
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*a = PlayCard(p.Card)
	default:
		return fmt.Errorf("unknown action type %q", tag.Type)
	}
	return nil
}
