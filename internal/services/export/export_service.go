// Package export writes stored market data and similarity results out as
// CSV files for downstream analysis.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/interfaces"
	"github.com/ternarybob/similis/internal/models"
)

// Service writes CSV exports into a configured directory.
type Service struct {
	storage interfaces.StorageManager
	dir     string
	logger  arbor.ILogger
}

// NewService creates a new export service writing into dir.
func NewService(storage interfaces.StorageManager, dir string, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		dir:     dir,
		logger:  logger,
	}
}

// ExportBars writes a symbol's price history from the given date onward.
// It returns the path of the written file.
func (s *Service) ExportBars(ctx context.Context, symbol string, from time.Time) (string, error) {
	bars, err := s.storage.BarStorage().GetBars(ctx, symbol, from, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to load bars: %w", err)
	}
	if len(bars) == 0 {
		return "", fmt.Errorf("no bars stored for %s since %s", symbol, models.DateKey(from))
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s_bars.csv", symbol))
	rows := make([][]string, 0, len(bars)+1)
	rows = append(rows, []string{"date", "open", "high", "low", "close", "volume", "change_rate"})
	for _, bar := range bars {
		rows = append(rows, []string{
			models.DateKey(bar.Date),
			formatFloat(bar.Open),
			formatFloat(bar.High),
			formatFloat(bar.Low),
			formatFloat(bar.Close),
			strconv.FormatInt(bar.Volume, 10),
			formatFloat(bar.ChangeRate),
		})
	}

	if err := s.writeCSV(path, rows); err != nil {
		return "", err
	}

	s.logger.Info().
		Str("symbol", symbol).
		Str("path", path).
		Int("rows", len(bars)).
		Msg("Price history exported")

	return path, nil
}

// ExportResults writes every stored similarity result for the symbols of
// the given kind. It returns the path of the written file.
func (s *Service) ExportResults(ctx context.Context, kind string) (string, error) {
	symbols, err := s.storage.SecurityStorage().ListSymbols(ctx, kind)
	if err != nil {
		return "", fmt.Errorf("failed to list securities: %w", err)
	}

	rows := [][]string{{"symbol", "year", "index_symbol", "rank_sum", "valid_days", "average"}}
	for _, symbol := range symbols {
		results, err := s.storage.SimilarityStorage().GetResultsForSymbol(ctx, symbol)
		if err != nil {
			return "", fmt.Errorf("failed to load results for %s: %w", symbol, err)
		}
		for _, result := range results {
			winner := bestScore(result)
			rows = append(rows, []string{
				result.Symbol,
				strconv.Itoa(result.Year),
				result.IndexSymbol,
				strconv.Itoa(winner.RankSum),
				strconv.Itoa(winner.ValidDays),
				formatFloat(winner.Average),
			})
		}
	}

	if len(rows) == 1 {
		return "", fmt.Errorf("no similarity results stored")
	}

	path := filepath.Join(s.dir, "similarity_results.csv")
	if err := s.writeCSV(path, rows); err != nil {
		return "", err
	}

	s.logger.Info().
		Str("path", path).
		Int("rows", len(rows)-1).
		Msg("Similarity results exported")

	return path, nil
}

func (s *Service) writeCSV(path string, rows [][]string) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return writer.Error()
}

// bestScore returns the winning reference's score line, falling back to a
// zero score when the breakdown was not stored.
func bestScore(result *models.SimilarityResult) models.ReferenceScore {
	for _, score := range result.Breakdown {
		if score.Symbol == result.IndexSymbol {
			return score
		}
	}
	return models.ReferenceScore{Symbol: result.IndexSymbol}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
