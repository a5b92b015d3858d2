package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/common"
	"github.com/ternarybob/similis/internal/interfaces"
	"github.com/ternarybob/similis/internal/models"
	"github.com/ternarybob/similis/internal/services/status"
)

// StatusHandler handles HTTP requests for application status
type StatusHandler struct {
	statusService    *status.Service
	schedulerService interfaces.SchedulerService
	storage          interfaces.StorageManager
	logger           arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(statusService *status.Service, schedulerService interfaces.SchedulerService, storage interfaces.StorageManager, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		statusService:    statusService,
		schedulerService: schedulerService,
		storage:          storage,
		logger:           logger,
	}
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	payload := h.statusService.GetStatus()
	payload["version"] = common.Version
	payload["jobs"] = h.schedulerService.JobStatuses()

	ctx := r.Context()
	counts := map[string]int{}
	if stocks, err := h.storage.SecurityStorage().CountSecurities(ctx, models.SecurityKindStock); err == nil {
		counts["stocks"] = stocks
	}
	if indices, err := h.storage.SecurityStorage().CountSecurities(ctx, models.SecurityKindIndex); err == nil {
		counts["indices"] = indices
	}
	if etfs, err := h.storage.SecurityStorage().CountSecurities(ctx, models.SecurityKindETF); err == nil {
		counts["etfs"] = etfs
	}
	if results, err := h.storage.SimilarityStorage().CountResults(ctx); err == nil {
		counts["similarity_results"] = results
	}
	payload["counts"] = counts

	WriteJSON(w, http.StatusOK, payload)
}

// HealthHandler handles GET /health
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.Ping(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("Health check failed to reach storage")
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "degraded",
			"version": common.Version,
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": common.Version,
	})
}
