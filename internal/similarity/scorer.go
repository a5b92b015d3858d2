package similarity

import (
	"math"
	"sort"
)

// RankDay ranks candidate references for a single day by absolute
// distance between each reference's return and the subject's return.
// Tied distances share the competition rank of the first member of the
// tied group: distances [0.01, 0.02, 0.02, 0.05] rank [1, 2, 2, 4].
// References absent from refs contribute nothing that day. An empty
// refs map yields an empty ranking. The function carries no state
// between days.
func RankDay(subjectReturn float64, refs map[string]float64) []RankedRef {
	if len(refs) == 0 {
		return nil
	}

	ranked := make([]RankedRef, 0, len(refs))
	for symbol, value := range refs {
		ranked = append(ranked, RankedRef{
			Symbol:   symbol,
			Distance: math.Abs(value - subjectReturn),
		})
	}

	// Symbol order within equal distances keeps the output stable
	// across runs; it does not affect the assigned ranks.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Distance != ranked[j].Distance {
			return ranked[i].Distance < ranked[j].Distance
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	rank := 1
	for i := range ranked {
		if i > 0 && ranked[i].Distance != ranked[i-1].Distance {
			rank = i + 1
		}
		ranked[i].Rank = rank
	}

	return ranked
}
