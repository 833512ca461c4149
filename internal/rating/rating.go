// Package rating computes the winner-side rating adjustment for a finished
// duel. Only the winner's rating ever changes; the loser keeps theirs.
package rating

import "math"

// K bounds the adjustment for a duel at the winner's own difficulty level.
const K = 20

// Delta returns the rating points awarded to the winner. The logistic term is
// the standard Elo expectation of the winner beating the loser; the quadratic
// term scales the reward by how hard the task was relative to the winner's own
// rating, so beating someone on an easy problem is worth little regardless of
// the rating gap. The result is truncated toward zero and is non-negative for
// positive ratings and difficulties.
func Delta(winnerRating, loserRating, difficulty int) int {
	expected := 1.0 / (1.0 + math.Pow(10, float64(loserRating-winnerRating)/400.0))
	scale := float64(difficulty) / float64(winnerRating)
	return int(scale * scale * K * (1.0 - expected))
}
