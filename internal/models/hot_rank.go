package models

import (
	"fmt"
	"time"
)

// HotRank represents one day of popularity ranking data for a stock,
// collected from the provider's sentiment feed.
type HotRank struct {
	Symbol         string    `json:"symbol"`
	Date           time.Time `json:"date"`
	Rank           int       `json:"rank"`
	NewFansRatio   float64   `json:"new_fans_ratio"`
	LoyalFansRatio float64   `json:"loyal_fans_ratio"`
}

// Validate validates the hot rank record
func (h *HotRank) Validate() error {
	if h.Symbol == "" {
		return fmt.Errorf("hot rank symbol is required")
	}
	if h.Rank <= 0 {
		return fmt.Errorf("hot rank must be positive, got %d", h.Rank)
	}
	if h.Date.IsZero() {
		return fmt.Errorf("hot rank date is required")
	}
	return nil
}
