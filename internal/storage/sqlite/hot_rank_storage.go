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

// HotRankStorage implements SQLite persistence for popularity rankings
type HotRankStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewHotRankStorage creates a new hot rank storage instance
func NewHotRankStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.HotRankStorage {
	return &HotRankStorage{
		db:     db,
		logger: logger,
	}
}

// SaveHotRanks upserts a batch of hot rank rows in one transaction
func (s *HotRankStorage) SaveHotRanks(ctx context.Context, ranks []*models.HotRank) error {
	if len(ranks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO hot_ranks (symbol, date, rank, new_fans_ratio, loyal_fans_ratio)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET
			rank = excluded.rank,
			new_fans_ratio = excluded.new_fans_ratio,
			loyal_fans_ratio = excluded.loyal_fans_ratio
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rank := range ranks {
		if err := rank.Validate(); err != nil {
			return err
		}
		_, err := stmt.ExecContext(ctx,
			rank.Symbol, models.DateKey(rank.Date),
			rank.Rank, rank.NewFansRatio, rank.LoyalFansRatio)
		if err != nil {
			return fmt.Errorf("failed to save hot rank %s/%s: %w", rank.Symbol, models.DateKey(rank.Date), err)
		}
	}

	return tx.Commit()
}

// GetHotRanks returns a symbol's hot ranks within [from, to], ordered
// by date
func (s *HotRankStorage) GetHotRanks(ctx context.Context, symbol string, from, to time.Time) ([]*models.HotRank, error) {
	query := `
		SELECT symbol, date, rank, new_fans_ratio, loyal_fans_ratio
		FROM hot_ranks
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date
	`
	rows, err := s.db.DB().QueryContext(ctx, query, symbol, models.DateKey(from), models.DateKey(to))
	if err != nil {
		return nil, fmt.Errorf("failed to get hot ranks for %s: %w", symbol, err)
	}
	defer rows.Close()

	var ranks []*models.HotRank
	for rows.Next() {
		var rank models.HotRank
		var dateStr string
		if err := rows.Scan(&rank.Symbol, &dateStr, &rank.Rank, &rank.NewFansRatio, &rank.LoyalFansRatio); err != nil {
			return nil, fmt.Errorf("failed to scan hot rank: %w", err)
		}
		rank.Date, err = time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse hot rank date %q: %w", dateStr, err)
		}
		ranks = append(ranks, &rank)
	}

	return ranks, rows.Err()
}

// LatestHotRankDate returns the most recent hot rank date stored for a
// symbol
func (s *HotRankStorage) LatestHotRankDate(ctx context.Context, symbol string) (time.Time, error) {
	var dateStr sql.NullString
	err := s.db.DB().QueryRowContext(ctx,
		`SELECT MAX(date) FROM hot_ranks WHERE symbol = ?`, symbol).Scan(&dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get latest hot rank date for %s: %w", symbol, err)
	}
	if !dateStr.Valid {
		return time.Time{}, fmt.Errorf("hot ranks for %s: %w", symbol, ErrNotFound)
	}

	return time.Parse("2006-01-02", dateStr.String)
}
