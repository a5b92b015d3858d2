// Package similarity implements the index-similarity ranking engine.
// For a subject security and a year it ranks candidate reference
// indices by how closely their daily returns track the subject's,
// using per-day competition ranks aggregated into a yearly average.
// The scoring components are pure in-memory computations; only the
// orchestrator touches storage and logging.
package similarity

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/ternarybob/similis/internal/models"
)

// ErrInvalidYear is returned when a caller passes a non-positive year.
var ErrInvalidYear = errors.New("similarity: year must be positive")

// ReturnSource supplies the read-only return data the engine consumes.
// Implementations must restrict both accessors to non-nil return values.
type ReturnSource interface {
	// SubjectReturns returns the subject's valid-day return series for
	// the year, ordered by date.
	SubjectReturns(ctx context.Context, symbol string, year int) ([]*models.DailyReturn, error)

	// ReferenceReturnsOn returns the cross-section of reference returns
	// for one date, keyed by reference symbol.
	ReferenceReturnsOn(ctx context.Context, date time.Time) (map[string]float64, error)
}

// RankedRef is one reference's position in a single day's ranking.
type RankedRef struct {
	Symbol   string
	Distance float64
	Rank     int
}

// ScoreTable accumulates per-reference rank sums and valid-day counts
// over a year. Each computation owns its own table; tables are never
// shared between concurrent computations.
type ScoreTable struct {
	rankSums  map[string]int
	validDays map[string]int
}

// NewScoreTable creates an empty score table.
func NewScoreTable() *ScoreTable {
	return &ScoreTable{
		rankSums:  make(map[string]int),
		validDays: make(map[string]int),
	}
}

// Add folds one day's ranking into the table. Contributions are
// commutative sums and counts, so day processing order never affects
// the final table.
func (t *ScoreTable) Add(ranking []RankedRef) {
	for _, r := range ranking {
		t.rankSums[r.Symbol] += r.Rank
		t.validDays[r.Symbol]++
	}
}

// RankSum returns the cumulative rank sum for a reference.
func (t *ScoreTable) RankSum(symbol string) int {
	return t.rankSums[symbol]
}

// ValidDays returns the valid-day count for a reference.
func (t *ScoreTable) ValidDays(symbol string) int {
	return t.validDays[symbol]
}

// Len returns the number of references that appeared in any ranking.
func (t *ScoreTable) Len() int {
	return len(t.rankSums)
}

// Averages returns the per-reference average scores for every
// reference with at least one valid day, sorted ascending by average
// and then by symbol so the ordering is deterministic.
func (t *ScoreTable) Averages() []models.ReferenceScore {
	scores := make([]models.ReferenceScore, 0, len(t.rankSums))
	for symbol, sum := range t.rankSums {
		days := t.validDays[symbol]
		if days == 0 {
			continue
		}
		scores = append(scores, models.ReferenceScore{
			Symbol:    symbol,
			RankSum:   sum,
			ValidDays: days,
			Average:   float64(sum) / float64(days),
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Average != scores[j].Average {
			return scores[i].Average < scores[j].Average
		}
		return scores[i].Symbol < scores[j].Symbol
	})

	return scores
}
