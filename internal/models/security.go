package models

import (
	"fmt"
	"time"
)

// SecurityKind constants
const (
	SecurityKindStock = "stock"
	SecurityKindIndex = "index"
	SecurityKindETF   = "etf"
)

// Security represents one listed instrument known to the system.
// Indices act as reference series for similarity scoring; stocks and
// ETFs are subjects.
type Security struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate validates the security record
func (s *Security) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("security symbol is required")
	}

	switch s.Kind {
	case SecurityKindStock, SecurityKindIndex, SecurityKindETF:
		return nil
	default:
		return fmt.Errorf("invalid security kind: %s (must be stock, index, or etf)", s.Kind)
	}
}

// IsReference reports whether the security serves as a reference series
// for similarity scoring.
func (s *Security) IsReference() bool {
	return s.Kind == SecurityKindIndex
}

// DailyBar represents one trading day's raw quote for a security.
type DailyBar struct {
	Symbol     string    `json:"symbol"`
	Date       time.Time `json:"date"`
	Open       float64   `json:"open"`
	Close      float64   `json:"close"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Volume     int64     `json:"volume"`
	Amount     float64   `json:"amount"`
	ChangeRate float64   `json:"change_rate"`
}

// DailyReturn represents one trading day's realized return for a security.
// Value is nil when the day has a bar but no computable return (first
// listed day, halted session, upstream gap). Nil-valued days are stored
// so gaps stay visible, but they never participate in scoring.
type DailyReturn struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Value  *float64  `json:"value"`
}

// HasValue reports whether the day carries a usable return.
func (r *DailyReturn) HasValue() bool {
	return r.Value != nil
}

// DateKey formats a date the way daily tables key it.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
