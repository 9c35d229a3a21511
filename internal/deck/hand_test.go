package deck

import "testing"

func TestHandKeptSorted(t *testing.T) {
	h := NewHand(MustParseCards("AhQc2s3c")...)

	want := MustParseCards("3cQc2sAh")
	if !cardsEqual(h.Cards(), want) {
		t.Errorf("Cards() = %v, want %v", h.Cards(), want)
	}
}

func TestHandRemove(t *testing.T) {
	h := NewHand(MustParseCards("2c3cAh")...)

	if !h.Remove(MustParseCards("3c")[0]) {
		t.Fatal("Remove() = false for held card")
	}
	if h.Len() != 2 {
		t.Errorf("Len() = %d after remove, want 2", h.Len())
	}
	if h.Contains(MustParseCards("3c")[0]) {
		t.Error("hand still contains removed card")
	}

	if h.Remove(MustParseCards("Kd")[0]) {
		t.Error("Remove() = true for absent card")
	}
	if h.Len() != 2 {
		t.Errorf("Len() = %d after failed remove, want 2", h.Len())
	}
}

func TestLegalPlays(t *testing.T) {
	hearts := Hearts
	diamonds := Diamonds

	tests := []struct {
		name string
		hand string
		lead *Suit
		want string
	}{
		{
			name: "leading plays anything",
			hand: "2c5hAh",
			lead: nil,
			want: "2c5hAh",
		},
		{
			name: "must follow lead suit",
			hand: "2c5hAh",
			lead: &hearts,
			want: "5hAh",
		},
		{
			name: "void in lead plays anything",
			hand: "2c5hAh",
			lead: &diamonds,
			want: "2c5hAh",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHand(MustParseCards(tt.hand)...)
			got := h.LegalPlays(tt.lead)
			want := NewHand(MustParseCards(tt.want)...).Cards()
			if !cardsEqual(got, want) {
				t.Errorf("LegalPlays() = %v, want %v", got, want)
			}
		})
	}
}

func TestLegalPlaysSorted(t *testing.T) {
	// The first legal play is the timeout auto-action, so ordering matters.
	h := NewHand(MustParseCards("AhTh2h")...)
	hearts := Hearts

	got := h.LegalPlays(&hearts)
	want := MustParseCards("2hThAh")
	if !cardsEqual(got, want) {
		t.Errorf("LegalPlays() = %v, want %v", got, want)
	}
}

func TestHandString(t *testing.T) {
	h := NewHand(MustParseCards("Ah2c")...)
	if got := h.String(); got != "2♣ A♥" {
		t.Errorf("String() = %q, want %q", got, "2♣ A♥")
	}
}
