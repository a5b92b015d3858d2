package similarity

import "github.com/ternarybob/similis/internal/models"

// SelectBest picks the reference with the lowest average score from a
// populated score table. Exact ties on the minimum average resolve to
// the lexicographically first symbol, never to map iteration order.
// ok is false when no reference shares a valid day with the subject;
// that is a defined outcome, not an error.
func SelectBest(table *ScoreTable) (winner string, breakdown []models.ReferenceScore, ok bool) {
	breakdown = table.Averages()
	if len(breakdown) == 0 {
		return "", nil, false
	}
	return breakdown[0].Symbol, breakdown, true
}
