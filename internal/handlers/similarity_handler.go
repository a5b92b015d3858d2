package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/interfaces"
	"github.com/ternarybob/similis/internal/services/ranking"
	"github.com/ternarybob/similis/internal/storage/sqlite"
)

// SimilarityHandler exposes stored similarity results and on-demand
// computation.
type SimilarityHandler struct {
	rankingService *ranking.Service
	storage        interfaces.StorageManager
	logger         arbor.ILogger
}

// NewSimilarityHandler creates a new SimilarityHandler
func NewSimilarityHandler(rankingService *ranking.Service, storage interfaces.StorageManager, logger arbor.ILogger) *SimilarityHandler {
	return &SimilarityHandler{
		rankingService: rankingService,
		storage:        storage,
		logger:         logger,
	}
}

// GetResultsHandler handles GET /api/similarity?symbol=<symbol>[&year=<year>]
func (h *SimilarityHandler) GetResultsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "Symbol is required")
		return
	}

	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid year")
			return
		}

		result, err := h.storage.SimilarityStorage().GetResult(r.Context(), symbol, year)
		if errors.Is(err, sqlite.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "No similarity result for this symbol and year")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, result)
		return
	}

	results, err := h.storage.SimilarityStorage().GetResultsForSymbol(r.Context(), symbol)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  symbol,
		"results": results,
	})
}

// ComputeHandler handles POST /api/similarity/compute?symbol=<symbol>&year=<year>
func (h *SimilarityHandler) ComputeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "Symbol is required")
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year <= 0 {
		WriteError(w, http.StatusBadRequest, "Valid year is required")
		return
	}

	result, ok, err := h.rankingService.RunOne(r.Context(), symbol, year)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"symbol":  symbol,
			"year":    year,
			"matched": false,
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  symbol,
		"year":    year,
		"matched": true,
		"result":  result,
	})
}
