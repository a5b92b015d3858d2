package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/similis/internal/models"
)

// SecurityStorage - interface for security master data persistence
type SecurityStorage interface {
	SaveSecurity(ctx context.Context, security *models.Security) error
	SaveSecurities(ctx context.Context, securities []*models.Security) error
	GetSecurity(ctx context.Context, symbol string) (*models.Security, error)
	ListSecurities(ctx context.Context, kind string) ([]*models.Security, error)
	ListSymbols(ctx context.Context, kind string) ([]string, error)
	CountSecurities(ctx context.Context, kind string) (int, error)
}

// BarStorage - interface for raw daily quote persistence
type BarStorage interface {
	SaveBars(ctx context.Context, bars []*models.DailyBar) error
	GetBars(ctx context.Context, symbol string, from, to time.Time) ([]*models.DailyBar, error)
	LatestBarDate(ctx context.Context, symbol string) (time.Time, error)
	CountBars(ctx context.Context, symbol string) (int, error)
}

// ReturnStorage - interface for derived daily return persistence.
// Also serves the similarity core as its read-only return source.
type ReturnStorage interface {
	SaveReturns(ctx context.Context, returns []*models.DailyReturn) error

	// SubjectReturns returns the subject's return series for a year,
	// restricted to days with a non-nil value, ordered by date.
	SubjectReturns(ctx context.Context, symbol string, year int) ([]*models.DailyReturn, error)

	// ReferenceReturnsOn returns the cross-section of reference returns
	// for one date, keyed by symbol and restricted to non-nil values.
	ReferenceReturnsOn(ctx context.Context, date time.Time) (map[string]float64, error)
}

// HotRankStorage - interface for popularity ranking persistence
type HotRankStorage interface {
	SaveHotRanks(ctx context.Context, ranks []*models.HotRank) error
	GetHotRanks(ctx context.Context, symbol string, from, to time.Time) ([]*models.HotRank, error)
	LatestHotRankDate(ctx context.Context, symbol string) (time.Time, error)
}

// SimilarityStorage - interface for similarity result persistence
type SimilarityStorage interface {
	SaveResult(ctx context.Context, result *models.SimilarityResult) error
	GetResult(ctx context.Context, symbol string, year int) (*models.SimilarityResult, error)
	GetResultsForSymbol(ctx context.Context, symbol string) ([]*models.SimilarityResult, error)
	CountResults(ctx context.Context) (int, error)
}

// StorageManager provides access to all storage interfaces
type StorageManager interface {
	SecurityStorage() SecurityStorage
	BarStorage() BarStorage
	ReturnStorage() ReturnStorage
	HotRankStorage() HotRankStorage
	SimilarityStorage() SimilarityStorage

	// Ping verifies the underlying database connection
	Ping(ctx context.Context) error

	// Close closes the underlying database connection
	Close() error
}
