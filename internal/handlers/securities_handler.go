package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/interfaces"
	"github.com/ternarybob/similis/internal/models"
	"github.com/ternarybob/similis/internal/storage/sqlite"
)

// SecuritiesHandler exposes the security master and price history.
type SecuritiesHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewSecuritiesHandler creates a new SecuritiesHandler
func NewSecuritiesHandler(storage interfaces.StorageManager, logger arbor.ILogger) *SecuritiesHandler {
	return &SecuritiesHandler{
		storage: storage,
		logger:  logger,
	}
}

// ListHandler handles GET /api/securities[?kind=stock|index|etf]
func (h *SecuritiesHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	kind := r.URL.Query().Get("kind")
	if kind != "" && kind != models.SecurityKindStock && kind != models.SecurityKindIndex && kind != models.SecurityKindETF {
		WriteError(w, http.StatusBadRequest, "Unknown security kind")
		return
	}

	securities, err := h.storage.SecurityStorage().ListSecurities(r.Context(), kind)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":      len(securities),
		"securities": securities,
	})
}

// BarsHandler handles GET /api/securities/bars?symbol=<symbol>[&from=YYYY-MM-DD][&to=YYYY-MM-DD]
func (h *SecuritiesHandler) BarsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "Symbol is required")
		return
	}

	if _, err := h.storage.SecurityStorage().GetSecurity(r.Context(), symbol); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Unknown symbol")
			return
		}
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	from := time.Now().UTC().AddDate(-1, 0, 0)
	to := time.Now().UTC()
	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid from date, expected YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		parsed, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid to date, expected YYYY-MM-DD")
			return
		}
		to = parsed
	}

	bars, err := h.storage.BarStorage().GetBars(r.Context(), symbol, from, to)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"count":  len(bars),
		"bars":   bars,
	})
}

// HotRanksHandler handles GET /api/securities/hotranks?symbol=<symbol>[&from=][&to=]
func (h *SecuritiesHandler) HotRanksHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "Symbol is required")
		return
	}

	from := time.Now().UTC().AddDate(0, -1, 0)
	to := time.Now().UTC()
	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid from date, expected YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		parsed, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid to date, expected YYYY-MM-DD")
			return
		}
		to = parsed
	}

	ranks, err := h.storage.HotRankStorage().GetHotRanks(r.Context(), symbol, from, to)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"count":  len(ranks),
		"ranks":  ranks,
	})
}
