package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/common"
	"github.com/ternarybob/similis/internal/interfaces"
	"github.com/ternarybob/similis/internal/models"
	"github.com/ternarybob/similis/internal/services/ranking"
	"github.com/ternarybob/similis/internal/storage/sqlite"
)

type fakeScheduler struct {
	triggered []string
	statuses  []interfaces.JobStatus
}

func (f *fakeScheduler) Start() error     { return nil }
func (f *fakeScheduler) Stop() error      { return nil }
func (f *fakeScheduler) IsRunning() bool  { return true }
func (f *fakeScheduler) RegisterJob(name, schedule, description string, handler func() error) error {
	return nil
}
func (f *fakeScheduler) TriggerJob(name string) error {
	if name == "unknown" {
		return fmt.Errorf("job %s not found", name)
	}
	f.triggered = append(f.triggered, name)
	return nil
}
func (f *fakeScheduler) JobStatuses() []interfaces.JobStatus { return f.statuses }

func newTestStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()

	storage, err := sqlite.NewManager(arbor.NewLogger(), &common.SQLiteConfig{
		Path:          t.TempDir() + "/test.db",
		BusyTimeoutMS: 5000,
	})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestTriggerJobHandler(t *testing.T) {
	scheduler := &fakeScheduler{}
	handler := NewSchedulerHandler(scheduler)

	// Missing name
	rec := httptest.NewRecorder()
	handler.TriggerJobHandler(rec, httptest.NewRequest("POST", "/api/jobs/trigger", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown job
	rec = httptest.NewRecorder()
	handler.TriggerJobHandler(rec, httptest.NewRequest("POST", "/api/jobs/trigger?name=unknown", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Wrong method
	rec = httptest.NewRecorder()
	handler.TriggerJobHandler(rec, httptest.NewRequest("GET", "/api/jobs/trigger?name=daily_update", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	// Success
	rec = httptest.NewRecorder()
	handler.TriggerJobHandler(rec, httptest.NewRequest("POST", "/api/jobs/trigger?name=daily_update", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"daily_update"}, scheduler.triggered)
	assert.Equal(t, "started", decode(t, rec)["status"])
}

func TestListJobsHandler(t *testing.T) {
	lastRun := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	scheduler := &fakeScheduler{
		statuses: []interfaces.JobStatus{
			{Name: "daily_update", Schedule: "0 18 * * 1-5", LastRun: &lastRun},
		},
	}
	handler := NewSchedulerHandler(scheduler)

	rec := httptest.NewRecorder()
	handler.ListJobsHandler(rec, httptest.NewRequest("GET", "/api/jobs", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["running"])
	jobs := body["jobs"].([]interface{})
	require.Len(t, jobs, 1)
}

func TestSimilarityGetResultsHandler(t *testing.T) {
	storage := newTestStorage(t)
	config := common.NewDefaultConfig()
	rankingService := ranking.NewService(storage, nil, config, arbor.NewLogger())
	handler := NewSimilarityHandler(rankingService, storage, arbor.NewLogger())

	require.NoError(t, storage.SimilarityStorage().SaveResult(
		httptest.NewRequest("GET", "/", nil).Context(),
		&models.SimilarityResult{Symbol: "600000.SHG", Year: 2023, IndexSymbol: "000001.SHG"},
	))

	// Missing symbol
	rec := httptest.NewRecorder()
	handler.GetResultsHandler(rec, httptest.NewRequest("GET", "/api/similarity", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Specific year, found
	rec = httptest.NewRecorder()
	handler.GetResultsHandler(rec, httptest.NewRequest("GET", "/api/similarity?symbol=600000.SHG&year=2023", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "000001.SHG", decode(t, rec)["index_symbol"])

	// Specific year, missing
	rec = httptest.NewRecorder()
	handler.GetResultsHandler(rec, httptest.NewRequest("GET", "/api/similarity?symbol=600000.SHG&year=2019", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// All years
	rec = httptest.NewRecorder()
	handler.GetResultsHandler(rec, httptest.NewRequest("GET", "/api/similarity?symbol=600000.SHG", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode(t, rec)["results"].([]interface{})
	assert.Len(t, results, 1)
}

func TestSecuritiesListHandler(t *testing.T) {
	storage := newTestStorage(t)
	handler := NewSecuritiesHandler(storage, arbor.NewLogger())

	ctx := httptest.NewRequest("GET", "/", nil).Context()
	require.NoError(t, storage.SecurityStorage().SaveSecurities(ctx, []*models.Security{
		{Symbol: "600000.SHG", Name: "SPD Bank", Kind: models.SecurityKindStock},
		{Symbol: "000001.SHG", Name: "SSE Composite", Kind: models.SecurityKindIndex},
	}))

	rec := httptest.NewRecorder()
	handler.ListHandler(rec, httptest.NewRequest("GET", "/api/securities?kind=index", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	rec = httptest.NewRecorder()
	handler.ListHandler(rec, httptest.NewRequest("GET", "/api/securities?kind=bond", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBarsHandlerUnknownSymbol(t *testing.T) {
	storage := newTestStorage(t)
	handler := NewSecuritiesHandler(storage, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.BarsHandler(rec, httptest.NewRequest("GET", "/api/securities/bars?symbol=nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	storage := newTestStorage(t)
	handler := NewStatusHandler(nil, &fakeScheduler{}, storage, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.HealthHandler(rec, httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestHealthHandler_DegradedWhenStorageUnreachable(t *testing.T) {
	storage, err := sqlite.NewManager(arbor.NewLogger(), &common.SQLiteConfig{
		Path:          t.TempDir() + "/test.db",
		BusyTimeoutMS: 5000,
	})
	require.NoError(t, err)
	require.NoError(t, storage.Close())

	handler := NewStatusHandler(nil, &fakeScheduler{}, storage, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.HealthHandler(rec, httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decode(t, rec)["status"])
}
