package game

import "testing"

func TestRoundScore(t *testing.T) {
	tests := []struct {
		name      string
		bid       int
		tricksWon int
		want      int
	}{
		{name: "made bid of 0", bid: 0, tricksWon: 0, want: 10},
		{name: "made bid of 1", bid: 1, tricksWon: 1, want: 11},
		{name: "made bid of 3", bid: 3, tricksWon: 3, want: 19},
		{name: "made bid of 5", bid: 5, tricksWon: 5, want: 35},
		{name: "bid 2 won 0", bid: 2, tricksWon: 0, want: -4},
		{name: "bid 2 won 1", bid: 2, tricksWon: 1, want: -1},
		{name: "bid 2 won 3", bid: 2, tricksWon: 3, want: -1},
		{name: "bid 2 won 5", bid: 2, tricksWon: 5, want: -9},
		{name: "bid 5 won 2", bid: 5, tricksWon: 2, want: -9},
		{name: "bid 0 won 1", bid: 0, tricksWon: 1, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoundScore(tt.bid, tt.tricksWon); got != tt.want {
				t.Errorf("RoundScore(%d, %d) = %d, want %d", tt.bid, tt.tricksWon, got, tt.want)
			}
		})
	}
}
