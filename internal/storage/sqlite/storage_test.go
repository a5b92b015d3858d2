package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/common"
	"github.com/ternarybob/similis/internal/models"
)

// setupTestDB creates a file-backed test database in a temp dir
func setupTestDB(t *testing.T) *SQLiteDB {
	t.Helper()

	config := &common.SQLiteConfig{
		Path:          t.TempDir() + "/test.db",
		WALMode:       false,
		BusyTimeoutMS: 5000,
	}

	db, err := NewSQLiteDB(arbor.NewLogger(), config)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func d(year, month, dayOfMonth int) time.Time {
	return time.Date(year, time.Month(month), dayOfMonth, 0, 0, 0, 0, time.UTC)
}

func fv(v float64) *float64 {
	return &v
}

func TestSecurityStorage_UpsertAndList(t *testing.T) {
	db := setupTestDB(t)
	store := NewSecurityStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, store.SaveSecurities(ctx, []*models.Security{
		{Symbol: "sh600000", Name: "Pudong Bank", Kind: models.SecurityKindStock},
		{Symbol: "sh000001", Name: "SSE Composite", Kind: models.SecurityKindIndex},
		{Symbol: "sz399001", Name: "SZSE Component", Kind: models.SecurityKindIndex},
	}))

	// Upsert overwrites the name, not duplicates the row
	require.NoError(t, store.SaveSecurity(ctx, &models.Security{
		Symbol: "sh600000", Name: "SPD Bank", Kind: models.SecurityKindStock,
	}))

	got, err := store.GetSecurity(ctx, "sh600000")
	require.NoError(t, err)
	assert.Equal(t, "SPD Bank", got.Name)

	indices, err := store.ListSymbols(ctx, models.SecurityKindIndex)
	require.NoError(t, err)
	assert.Equal(t, []string{"sh000001", "sz399001"}, indices)

	count, err := store.CountSecurities(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = store.GetSecurity(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSecurityStorage_RejectsInvalidKind(t *testing.T) {
	db := setupTestDB(t)
	store := NewSecurityStorage(db, arbor.NewLogger())

	err := store.SaveSecurity(context.Background(), &models.Security{
		Symbol: "x", Name: "X", Kind: "bond",
	})
	assert.Error(t, err)
}

func TestBarStorage_UpsertAndRange(t *testing.T) {
	db := setupTestDB(t)
	store := NewBarStorage(db, arbor.NewLogger())
	ctx := context.Background()

	bars := []*models.DailyBar{
		{Symbol: "sh600000", Date: d(2023, 1, 3), Close: 10.0, Volume: 1000},
		{Symbol: "sh600000", Date: d(2023, 1, 4), Close: 10.5, Volume: 1100},
	}
	require.NoError(t, store.SaveBars(ctx, bars))

	// Re-save day 2 with a corrected close
	require.NoError(t, store.SaveBars(ctx, []*models.DailyBar{
		{Symbol: "sh600000", Date: d(2023, 1, 4), Close: 10.6, Volume: 1100},
	}))

	got, err := store.GetBars(ctx, "sh600000", d(2023, 1, 1), d(2023, 12, 31))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 10.6, got[1].Close)

	latest, err := store.LatestBarDate(ctx, "sh600000")
	require.NoError(t, err)
	assert.Equal(t, "2023-01-04", models.DateKey(latest))

	_, err = store.LatestBarDate(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReturnStorage_SubjectSeriesSkipsNulls(t *testing.T) {
	db := setupTestDB(t)
	store := NewReturnStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, store.SaveReturns(ctx, []*models.DailyReturn{
		{Symbol: "sh600000", Date: d(2023, 1, 3), Value: fv(0.01)},
		{Symbol: "sh600000", Date: d(2023, 1, 4), Value: nil}, // gap day
		{Symbol: "sh600000", Date: d(2023, 1, 5), Value: fv(-0.02)},
		{Symbol: "sh600000", Date: d(2022, 12, 30), Value: fv(0.05)}, // prior year
	}))

	series, err := store.SubjectReturns(ctx, "sh600000", 2023)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "2023-01-03", models.DateKey(series[0].Date))
	assert.Equal(t, 0.01, *series[0].Value)
	assert.Equal(t, "2023-01-05", models.DateKey(series[1].Date))
}

func TestReturnStorage_ReferenceCrossSection(t *testing.T) {
	db := setupTestDB(t)
	securities := NewSecurityStorage(db, arbor.NewLogger())
	store := NewReturnStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, securities.SaveSecurities(ctx, []*models.Security{
		{Symbol: "sh000001", Name: "SSE Composite", Kind: models.SecurityKindIndex},
		{Symbol: "sz399001", Name: "SZSE Component", Kind: models.SecurityKindIndex},
		{Symbol: "sh600000", Name: "SPD Bank", Kind: models.SecurityKindStock},
	}))

	require.NoError(t, store.SaveReturns(ctx, []*models.DailyReturn{
		{Symbol: "sh000001", Date: d(2023, 1, 3), Value: fv(0.011)},
		{Symbol: "sz399001", Date: d(2023, 1, 3), Value: nil}, // no data that day
		{Symbol: "sh600000", Date: d(2023, 1, 3), Value: fv(0.02)},
	}))

	refs, err := store.ReferenceReturnsOn(ctx, d(2023, 1, 3))
	require.NoError(t, err)

	// Only the non-null index appears: the stock is not a reference,
	// and the null index is excluded from the day entirely.
	assert.Equal(t, map[string]float64{"sh000001": 0.011}, refs)
}

func TestHotRankStorage_UpsertAndRange(t *testing.T) {
	db := setupTestDB(t)
	store := NewHotRankStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, store.SaveHotRanks(ctx, []*models.HotRank{
		{Symbol: "sh600000", Date: d(2023, 1, 3), Rank: 12, NewFansRatio: 0.3, LoyalFansRatio: 0.5},
	}))
	require.NoError(t, store.SaveHotRanks(ctx, []*models.HotRank{
		{Symbol: "sh600000", Date: d(2023, 1, 3), Rank: 8, NewFansRatio: 0.4, LoyalFansRatio: 0.5},
	}))

	ranks, err := store.GetHotRanks(ctx, "sh600000", d(2023, 1, 1), d(2023, 1, 31))
	require.NoError(t, err)
	require.Len(t, ranks, 1)
	assert.Equal(t, 8, ranks[0].Rank)

	latest, err := store.LatestHotRankDate(ctx, "sh600000")
	require.NoError(t, err)
	assert.Equal(t, "2023-01-03", models.DateKey(latest))
}

func TestSimilarityStorage_UpsertKeepsOtherYears(t *testing.T) {
	db := setupTestDB(t)
	store := NewSimilarityStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, store.SaveResult(ctx, &models.SimilarityResult{
		Symbol: "sh600000", Year: 2022, IndexSymbol: "sh000001",
	}))
	require.NoError(t, store.SaveResult(ctx, &models.SimilarityResult{
		Symbol: "sh600000", Year: 2023, IndexSymbol: "sz399001",
		Breakdown: []models.ReferenceScore{
			{Symbol: "sz399001", RankSum: 4, ValidDays: 3, Average: 4.0 / 3.0},
			{Symbol: "sh000001", RankSum: 9, ValidDays: 3, Average: 3.0},
		},
	}))

	// Recomputing 2023 overwrites only 2023
	require.NoError(t, store.SaveResult(ctx, &models.SimilarityResult{
		Symbol: "sh600000", Year: 2023, IndexSymbol: "sh000001",
	}))

	results, err := store.GetResultsForSymbol(ctx, "sh600000")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "sh000001", results[0].IndexSymbol) // 2022 untouched
	assert.Equal(t, "sh000001", results[1].IndexSymbol)

	got, err := store.GetResult(ctx, "sh600000", 2022)
	require.NoError(t, err)
	assert.Equal(t, 2022, got.Year)

	_, err = store.GetResult(ctx, "sh600000", 2019)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSimilarityStorage_BreakdownRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	store := NewSimilarityStorage(db, arbor.NewLogger())
	ctx := context.Background()

	want := []models.ReferenceScore{
		{Symbol: "sh000001", RankSum: 10, ValidDays: 5, Average: 2.0},
		{Symbol: "sz399001", RankSum: 15, ValidDays: 5, Average: 3.0},
	}
	require.NoError(t, store.SaveResult(ctx, &models.SimilarityResult{
		Symbol: "sh600519", Year: 2023, IndexSymbol: "sh000001", Breakdown: want,
	}))

	got, err := store.GetResult(ctx, "sh600519", 2023)
	require.NoError(t, err)
	assert.Equal(t, want, got.Breakdown)

	count, err := store.CountResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
