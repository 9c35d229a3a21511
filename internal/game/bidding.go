package game

// BiddingLedger collects one bid per player for a round, enforcing turn
// order, the bid range, and the last-bidder rule: the final bid may not
// bring the total to exactly the number of cards dealt, so at least one
// player is guaranteed to miss.
type BiddingLedger struct {
	order []string
	cards int
	bids  map[string]int
	next  int
}

// NewBiddingLedger creates a ledger for one round. The order slice fixes
// who bids when (first entry bids first); cards is the round's
// cards-per-player count N.
func NewBiddingLedger(order []string, cards int) *BiddingLedger {
	return &BiddingLedger{
		order: order,
		cards: cards,
		bids:  make(map[string]int, len(order)),
	}
}

// CurrentBidder returns whose turn it is to bid, or "" when complete
func (l *BiddingLedger) CurrentBidder() string {
	if l.Complete() {
		return ""
	}
	return l.order[l.next]
}

// Complete reports whether every player has bid
func (l *BiddingLedger) Complete() bool {
	return l.next >= len(l.order)
}

// Check validates a bid without recording it
func (l *BiddingLedger) Check(player string, tricks int) error {
	if l.Complete() || l.order[l.next] != player {
		return ErrNotPlayerTurn
	}
	if tricks < 0 || tricks > l.cards {
		return invalidMove("bid must be between 0 and %d", l.cards)
	}
	if l.next == len(l.order)-1 && l.Sum()+tricks == l.cards {
		return invalidMove("bids cannot sum to %d, the number of cards dealt", l.cards)
	}
	return nil
}

// Place records a bid and advances the turn. The only mutator.
func (l *BiddingLedger) Place(player string, tricks int) error {
	if err := l.Check(player, tricks); err != nil {
		return err
	}
	l.bids[player] = tricks
	l.next++
	return nil
}

// Sum returns the total of all bids placed so far
func (l *BiddingLedger) Sum() int {
	total := 0
	for _, b := range l.bids {
		total += b
	}
	return total
}

// Bids returns a copy of the bids placed so far
func (l *BiddingLedger) Bids() map[string]int {
	out := make(map[string]int, len(l.bids))
	for p, b := range l.bids {
		out[p] = b
	}
	return out
}
