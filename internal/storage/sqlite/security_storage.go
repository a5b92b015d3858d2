package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/interfaces"
	"github.com/ternarybob/similis/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// SecurityStorage implements SQLite persistence for the security master
type SecurityStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewSecurityStorage creates a new security storage instance
func NewSecurityStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.SecurityStorage {
	return &SecurityStorage{
		db:     db,
		logger: logger,
	}
}

// SaveSecurity creates or updates one security record
func (s *SecurityStorage) SaveSecurity(ctx context.Context, security *models.Security) error {
	if err := security.Validate(); err != nil {
		return err
	}

	now := time.Now().Unix()
	query := `
		INSERT INTO securities (symbol, name, kind, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.DB().ExecContext(ctx, query, security.Symbol, security.Name, security.Kind, now, now); err != nil {
		return fmt.Errorf("failed to save security %s: %w", security.Symbol, err)
	}
	return nil
}

// SaveSecurities upserts a batch of securities in one transaction
func (s *SecurityStorage) SaveSecurities(ctx context.Context, securities []*models.Security) error {
	if len(securities) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO securities (symbol, name, kind, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, security := range securities {
		if err := security.Validate(); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, security.Symbol, security.Name, security.Kind, now, now); err != nil {
			return fmt.Errorf("failed to save security %s: %w", security.Symbol, err)
		}
	}

	return tx.Commit()
}

// GetSecurity retrieves one security by symbol
func (s *SecurityStorage) GetSecurity(ctx context.Context, symbol string) (*models.Security, error) {
	query := `SELECT symbol, name, kind, created_at, updated_at FROM securities WHERE symbol = ?`

	var security models.Security
	var createdAt, updatedAt int64
	err := s.db.DB().QueryRowContext(ctx, query, symbol).Scan(
		&security.Symbol, &security.Name, &security.Kind, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("security %s: %w", symbol, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get security %s: %w", symbol, err)
	}

	security.CreatedAt = time.Unix(createdAt, 0)
	security.UpdatedAt = time.Unix(updatedAt, 0)
	return &security, nil
}

// ListSecurities returns all securities of the given kind; an empty
// kind returns everything.
func (s *SecurityStorage) ListSecurities(ctx context.Context, kind string) ([]*models.Security, error) {
	query := `SELECT symbol, name, kind, created_at, updated_at FROM securities`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY symbol`

	rows, err := s.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list securities: %w", err)
	}
	defer rows.Close()

	var securities []*models.Security
	for rows.Next() {
		var security models.Security
		var createdAt, updatedAt int64
		if err := rows.Scan(&security.Symbol, &security.Name, &security.Kind, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan security: %w", err)
		}
		security.CreatedAt = time.Unix(createdAt, 0)
		security.UpdatedAt = time.Unix(updatedAt, 0)
		securities = append(securities, &security)
	}

	return securities, rows.Err()
}

// ListSymbols returns the symbols of the given kind in lexical order
func (s *SecurityStorage) ListSymbols(ctx context.Context, kind string) ([]string, error) {
	query := `SELECT symbol FROM securities`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY symbol`

	rows, err := s.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, err
		}
		symbols = append(symbols, symbol)
	}

	return symbols, rows.Err()
}

// CountSecurities counts securities of the given kind; an empty kind
// counts everything.
func (s *SecurityStorage) CountSecurities(ctx context.Context, kind string) (int, error) {
	query := `SELECT COUNT(*) FROM securities`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}

	var count int
	if err := s.db.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count securities: %w", err)
	}
	return count, nil
}
