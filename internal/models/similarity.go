package models

import "time"

// ReferenceScore is one reference's aggregated score for a subject-year.
// Lower average means closer daily tracking.
type ReferenceScore struct {
	Symbol    string  `json:"symbol"`
	RankSum   int     `json:"rank_sum"`
	ValidDays int     `json:"valid_days"`
	Average   float64 `json:"average"`
}

// SimilarityResult is the persisted outcome of one subject-year
// similarity computation: the winning reference index plus the full
// per-reference breakdown kept for diagnostics.
type SimilarityResult struct {
	Symbol      string           `json:"symbol"`
	Year        int              `json:"year"`
	IndexSymbol string           `json:"index_symbol"`
	Breakdown   []ReferenceScore `json:"breakdown,omitempty"`
	ComputedAt  time.Time        `json:"computed_at"`
}
