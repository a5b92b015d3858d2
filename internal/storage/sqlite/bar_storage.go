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

// BarStorage implements SQLite persistence for raw daily quotes
type BarStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewBarStorage creates a new bar storage instance
func NewBarStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.BarStorage {
	return &BarStorage{
		db:     db,
		logger: logger,
	}
}

// SaveBars upserts a batch of daily bars in one transaction
func (s *BarStorage) SaveBars(ctx context.Context, bars []*models.DailyBar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_bars (symbol, date, open, close, high, low, volume, amount, change_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET
			open = excluded.open,
			close = excluded.close,
			high = excluded.high,
			low = excluded.low,
			volume = excluded.volume,
			amount = excluded.amount,
			change_rate = excluded.change_rate
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, bar := range bars {
		_, err := stmt.ExecContext(ctx,
			bar.Symbol, models.DateKey(bar.Date),
			bar.Open, bar.Close, bar.High, bar.Low,
			bar.Volume, bar.Amount, bar.ChangeRate)
		if err != nil {
			return fmt.Errorf("failed to save bar %s/%s: %w", bar.Symbol, models.DateKey(bar.Date), err)
		}
	}

	return tx.Commit()
}

// GetBars returns a symbol's bars within [from, to], ordered by date
func (s *BarStorage) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]*models.DailyBar, error) {
	query := `
		SELECT symbol, date, open, close, high, low, volume, amount, change_rate
		FROM daily_bars
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date
	`
	rows, err := s.db.DB().QueryContext(ctx, query, symbol, models.DateKey(from), models.DateKey(to))
	if err != nil {
		return nil, fmt.Errorf("failed to get bars for %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []*models.DailyBar
	for rows.Next() {
		bar, err := scanBar(rows)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}

	return bars, rows.Err()
}

// LatestBarDate returns the most recent bar date stored for a symbol
func (s *BarStorage) LatestBarDate(ctx context.Context, symbol string) (time.Time, error) {
	// MAX over zero rows yields NULL, hence the nullable scan target
	var dateStr sql.NullString
	err := s.db.DB().QueryRowContext(ctx,
		`SELECT MAX(date) FROM daily_bars WHERE symbol = ?`, symbol).Scan(&dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get latest bar date for %s: %w", symbol, err)
	}
	if !dateStr.Valid {
		return time.Time{}, fmt.Errorf("bars for %s: %w", symbol, ErrNotFound)
	}

	return time.Parse("2006-01-02", dateStr.String)
}

// CountBars counts stored bars for a symbol
func (s *BarStorage) CountBars(ctx context.Context, symbol string) (int, error) {
	var count int
	err := s.db.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM daily_bars WHERE symbol = ?`, symbol).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bars for %s: %w", symbol, err)
	}
	return count, nil
}

func scanBar(rows *sql.Rows) (*models.DailyBar, error) {
	var bar models.DailyBar
	var dateStr string
	err := rows.Scan(&bar.Symbol, &dateStr, &bar.Open, &bar.Close, &bar.High, &bar.Low,
		&bar.Volume, &bar.Amount, &bar.ChangeRate)
	if err != nil {
		return nil, fmt.Errorf("failed to scan bar: %w", err)
	}

	bar.Date, err = time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bar date %q: %w", dateStr, err)
	}
	return &bar, nil
}
