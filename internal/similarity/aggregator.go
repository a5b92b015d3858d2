package similarity

import (
	"context"
	"fmt"
)

// AggregateYear builds the score table for one subject-year. It walks
// every date where the subject has a valid return, ranks that day's
// reference cross-section, and folds the ranks into a fresh table.
// The subject's valid days define the day set; no trading calendar is
// consulted. The returned table is owned by the caller.
func AggregateYear(ctx context.Context, source ReturnSource, symbol string, year int) (*ScoreTable, error) {
	if year <= 0 {
		return nil, ErrInvalidYear
	}
	if symbol == "" {
		return nil, fmt.Errorf("similarity: subject symbol is required")
	}

	subjectDays, err := source.SubjectReturns(ctx, symbol, year)
	if err != nil {
		return nil, fmt.Errorf("fetch subject returns for %s/%d: %w", symbol, year, err)
	}

	table := NewScoreTable()
	for _, day := range subjectDays {
		if !day.HasValue() {
			// The source contract excludes nil values; tolerate
			// a sloppy source rather than corrupt the table.
			continue
		}

		refs, err := source.ReferenceReturnsOn(ctx, day.Date)
		if err != nil {
			return nil, fmt.Errorf("fetch reference returns for %s: %w", day.Date.Format("2006-01-02"), err)
		}

		table.Add(RankDay(*day.Value, refs))
	}

	return table, nil
}
