package export

import (
	"context"
	"encoding/csv"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/common"
	"github.com/ternarybob/similis/internal/interfaces"
	"github.com/ternarybob/similis/internal/models"
	"github.com/ternarybob/similis/internal/storage/sqlite"
)

func newTestService(t *testing.T) (*Service, interfaces.StorageManager) {
	t.Helper()

	storage, err := sqlite.NewManager(arbor.NewLogger(), &common.SQLiteConfig{
		Path:          t.TempDir() + "/test.db",
		BusyTimeoutMS: 5000,
	})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	return NewService(storage, t.TempDir(), arbor.NewLogger()), storage
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExportBars(t *testing.T) {
	svc, storage := newTestService(t)
	ctx := context.Background()

	require.NoError(t, storage.BarStorage().SaveBars(ctx, []*models.DailyBar{
		{Symbol: "600000.SHG", Date: time.Date(2023, 3, 6, 0, 0, 0, 0, time.UTC), Open: 9.9, High: 10.1, Low: 9.8, Close: 10.0, Volume: 1000},
		{Symbol: "600000.SHG", Date: time.Date(2023, 3, 7, 0, 0, 0, 0, time.UTC), Open: 10.0, High: 10.6, Low: 10.0, Close: 10.5, Volume: 1200},
	}))

	path, err := svc.ExportBars(ctx, "600000.SHG", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"date", "open", "high", "low", "close", "volume", "change_rate"}, rows[0])
	assert.Equal(t, "2023-03-06", rows[1][0])
	assert.Equal(t, "10.5", rows[2][4])
}

func TestExportBarsNoData(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ExportBars(context.Background(), "600000.SHG", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}

func TestExportResults(t *testing.T) {
	svc, storage := newTestService(t)
	ctx := context.Background()

	require.NoError(t, storage.SecurityStorage().SaveSecurity(ctx, &models.Security{
		Symbol: "600000.SHG", Name: "SPD Bank", Kind: models.SecurityKindStock,
	}))
	require.NoError(t, storage.SimilarityStorage().SaveResult(ctx, &models.SimilarityResult{
		Symbol:      "600000.SHG",
		Year:        2023,
		IndexSymbol: "000001.SHG",
		Breakdown: []models.ReferenceScore{
			{Symbol: "000001.SHG", RankSum: 4, ValidDays: 3, Average: 4.0 / 3.0},
			{Symbol: "399001.SHE", RankSum: 9, ValidDays: 3, Average: 3.0},
		},
	}))

	path, err := svc.ExportResults(ctx, models.SecurityKindStock)
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"symbol", "year", "index_symbol", "rank_sum", "valid_days", "average"}, rows[0])
	assert.Equal(t, "600000.SHG", rows[1][0])
	assert.Equal(t, "2023", rows[1][1])
	assert.Equal(t, "000001.SHG", rows[1][2])
	assert.Equal(t, "4", rows[1][3])
}

func TestExportResultsEmpty(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ExportResults(context.Background(), models.SecurityKindStock)
	assert.Error(t, err)
}
