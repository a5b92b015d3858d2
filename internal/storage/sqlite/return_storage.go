package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/interfaces"
	"github.com/ternarybob/similis/internal/models"
)

// ReturnStorage implements SQLite persistence for derived daily
// returns. It doubles as the similarity engine's read-only return
// source: both accessors restrict to non-NULL values, and reference
// cross-sections are limited to securities of kind 'index'.
type ReturnStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewReturnStorage creates a new return storage instance
func NewReturnStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.ReturnStorage {
	return &ReturnStorage{
		db:     db,
		logger: logger,
	}
}

// SaveReturns upserts a batch of daily returns in one transaction.
// Nil values are stored as NULL so data gaps stay visible.
func (s *ReturnStorage) SaveReturns(ctx context.Context, returns []*models.DailyReturn) error {
	if len(returns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_returns (symbol, date, value)
		VALUES (?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET
			value = excluded.value
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range returns {
		var value sql.NullFloat64
		if r.Value != nil {
			value.Valid = true
			value.Float64 = *r.Value
		}
		if _, err := stmt.ExecContext(ctx, r.Symbol, models.DateKey(r.Date), value); err != nil {
			return fmt.Errorf("failed to save return %s/%s: %w", r.Symbol, models.DateKey(r.Date), err)
		}
	}

	return tx.Commit()
}

// SubjectReturns returns the subject's valid-day return series for a
// year, ordered by date. NULL-valued days are excluded.
func (s *ReturnStorage) SubjectReturns(ctx context.Context, symbol string, year int) ([]*models.DailyReturn, error) {
	query := `
		SELECT symbol, date, value
		FROM daily_returns
		WHERE symbol = ? AND date >= ? AND date <= ? AND value IS NOT NULL
		ORDER BY date
	`
	from := fmt.Sprintf("%04d-01-01", year)
	to := fmt.Sprintf("%04d-12-31", year)

	rows, err := s.db.DB().QueryContext(ctx, query, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get returns for %s/%d: %w", symbol, year, err)
	}
	defer rows.Close()

	var returns []*models.DailyReturn
	for rows.Next() {
		var r models.DailyReturn
		var dateStr string
		var value float64
		if err := rows.Scan(&r.Symbol, &dateStr, &value); err != nil {
			return nil, fmt.Errorf("failed to scan return: %w", err)
		}
		r.Date, err = time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse return date %q: %w", dateStr, err)
		}
		r.Value = &value
		returns = append(returns, &r)
	}

	return returns, rows.Err()
}

// ReferenceReturnsOn returns one date's cross-section of index returns,
// keyed by symbol and restricted to non-NULL values.
func (s *ReturnStorage) ReferenceReturnsOn(ctx context.Context, date time.Time) (map[string]float64, error) {
	query := `
		SELECT r.symbol, r.value
		FROM daily_returns r
		JOIN securities s ON s.symbol = r.symbol
		WHERE r.date = ? AND r.value IS NOT NULL AND s.kind = 'index'
	`
	rows, err := s.db.DB().QueryContext(ctx, query, models.DateKey(date))
	if err != nil {
		return nil, fmt.Errorf("failed to get reference returns for %s: %w", models.DateKey(date), err)
	}
	defer rows.Close()

	refs := make(map[string]float64)
	for rows.Next() {
		var symbol string
		var value float64
		if err := rows.Scan(&symbol, &value); err != nil {
			return nil, fmt.Errorf("failed to scan reference return: %w", err)
		}
		refs[symbol] = value
	}

	return refs, rows.Err()
}
