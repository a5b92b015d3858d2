package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/interfaces"
	"github.com/ternarybob/similis/internal/models"
)

// SimilarityStorage implements SQLite persistence for subject-year
// similarity results
type SimilarityStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewSimilarityStorage creates a new similarity storage instance
func NewSimilarityStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.SimilarityStorage {
	return &SimilarityStorage{
		db:     db,
		logger: logger,
	}
}

// SaveResult creates or updates the winning index for one subject-year.
// Existing rows for other years are left untouched.
func (s *SimilarityStorage) SaveResult(ctx context.Context, result *models.SimilarityResult) error {
	if result.Symbol == "" || result.IndexSymbol == "" {
		return fmt.Errorf("similarity result requires symbol and index_symbol")
	}

	breakdownJSON := "[]"
	if len(result.Breakdown) > 0 {
		data, err := json.Marshal(result.Breakdown)
		if err != nil {
			return fmt.Errorf("failed to serialize breakdown: %w", err)
		}
		breakdownJSON = string(data)
	}

	computedAt := result.ComputedAt
	if computedAt.IsZero() {
		computedAt = time.Now()
	}

	query := `
		INSERT INTO similarity_results (symbol, year, index_symbol, breakdown, computed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(symbol, year) DO UPDATE SET
			index_symbol = excluded.index_symbol,
			breakdown = excluded.breakdown,
			computed_at = excluded.computed_at
	`
	_, err := s.db.DB().ExecContext(ctx, query,
		result.Symbol, result.Year, result.IndexSymbol, breakdownJSON, computedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save similarity result %s/%d: %w", result.Symbol, result.Year, err)
	}
	return nil
}

// GetResult retrieves the result for one subject-year
func (s *SimilarityStorage) GetResult(ctx context.Context, symbol string, year int) (*models.SimilarityResult, error) {
	query := `
		SELECT symbol, year, index_symbol, breakdown, computed_at
		FROM similarity_results
		WHERE symbol = ? AND year = ?
	`
	row := s.db.DB().QueryRowContext(ctx, query, symbol, year)
	result, err := scanSimilarityResult(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("similarity result %s/%d: %w", symbol, year, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get similarity result %s/%d: %w", symbol, year, err)
	}
	return result, nil
}

// GetResultsForSymbol returns every stored year for a subject, ordered
// by year
func (s *SimilarityStorage) GetResultsForSymbol(ctx context.Context, symbol string) ([]*models.SimilarityResult, error) {
	query := `
		SELECT symbol, year, index_symbol, breakdown, computed_at
		FROM similarity_results
		WHERE symbol = ?
		ORDER BY year
	`
	rows, err := s.db.DB().QueryContext(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get similarity results for %s: %w", symbol, err)
	}
	defer rows.Close()

	var results []*models.SimilarityResult
	for rows.Next() {
		result, err := scanSimilarityResult(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

// CountResults counts all stored similarity results
func (s *SimilarityStorage) CountResults(ctx context.Context) (int, error) {
	var count int
	if err := s.db.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM similarity_results`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count similarity results: %w", err)
	}
	return count, nil
}

func scanSimilarityResult(scan func(...any) error) (*models.SimilarityResult, error) {
	var result models.SimilarityResult
	var breakdownJSON sql.NullString
	var computedAt int64

	if err := scan(&result.Symbol, &result.Year, &result.IndexSymbol, &breakdownJSON, &computedAt); err != nil {
		return nil, err
	}

	if breakdownJSON.Valid && breakdownJSON.String != "" {
		if err := json.Unmarshal([]byte(breakdownJSON.String), &result.Breakdown); err != nil {
			return nil, fmt.Errorf("failed to deserialize breakdown: %w", err)
		}
	}
	result.ComputedAt = time.Unix(computedAt, 0)
	return &result, nil
}
