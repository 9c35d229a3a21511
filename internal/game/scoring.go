package game

// RoundScore returns the points a player earns for one round. An exact
// bid pays 10 plus the square of the tricks taken; a miss costs the
// square of the difference.
func RoundScore(bid, tricksWon int) int {
	if bid == tricksWon {
		return 10 + tricksWon*tricksWon
	}
	diff := tricksWon - bid
	return -(diff * diff)
}
