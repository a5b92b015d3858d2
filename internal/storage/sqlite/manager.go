package sqlite

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/common"
	"github.com/ternarybob/similis/internal/interfaces"
)

// Manager implements the StorageManager interface over one SQLite
// connection.
type Manager struct {
	db         *SQLiteDB
	security   interfaces.SecurityStorage
	bar        interfaces.BarStorage
	ret        interfaces.ReturnStorage
	hotRank    interfaces.HotRankStorage
	similarity interfaces.SimilarityStorage
	logger     arbor.ILogger
}

// NewManager creates a new SQLite storage manager
func NewManager(logger arbor.ILogger, config *common.SQLiteConfig) (interfaces.StorageManager, error) {
	db, err := NewSQLiteDB(logger, config)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:         db,
		security:   NewSecurityStorage(db, logger),
		bar:        NewBarStorage(db, logger),
		ret:        NewReturnStorage(db, logger),
		hotRank:    NewHotRankStorage(db, logger),
		similarity: NewSimilarityStorage(db, logger),
		logger:     logger,
	}, nil
}

// SecurityStorage returns the security master storage interface
func (m *Manager) SecurityStorage() interfaces.SecurityStorage {
	return m.security
}

// BarStorage returns the daily bar storage interface
func (m *Manager) BarStorage() interfaces.BarStorage {
	return m.bar
}

// ReturnStorage returns the daily return storage interface
func (m *Manager) ReturnStorage() interfaces.ReturnStorage {
	return m.ret
}

// HotRankStorage returns the hot rank storage interface
func (m *Manager) HotRankStorage() interfaces.HotRankStorage {
	return m.hotRank
}

// SimilarityStorage returns the similarity result storage interface
func (m *Manager) SimilarityStorage() interfaces.SimilarityStorage {
	return m.similarity
}

// Ping verifies the database connection
func (m *Manager) Ping(ctx context.Context) error {
	return m.db.Ping(ctx)
}

// Close closes the database connection
func (m *Manager) Close() error {
	return m.db.Close()
}
