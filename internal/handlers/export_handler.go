package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/models"
	"github.com/ternarybob/similis/internal/services/export"
)

// ExportHandler triggers CSV exports.
type ExportHandler struct {
	exportService *export.Service
	logger        arbor.ILogger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(exportService *export.Service, logger arbor.ILogger) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
		logger:        logger,
	}
}

// ExportResultsHandler handles POST /api/export/results
func (h *ExportHandler) ExportResultsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	path, err := h.exportService.ExportResults(r.Context(), models.SecurityKindStock)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"path":   path,
	})
}

// ExportBarsHandler handles POST /api/export/bars?symbol=<symbol>[&from=YYYY-MM-DD]
func (h *ExportHandler) ExportBarsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "Symbol is required")
		return
	}

	from := time.Now().UTC().AddDate(-5, 0, 0)
	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid from date, expected YYYY-MM-DD")
			return
		}
		from = parsed
	}

	path, err := h.exportService.ExportBars(r.Context(), symbol, from)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"path":   path,
	})
}
