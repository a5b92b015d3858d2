package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Dashboard
	mux.HandleFunc("/", s.app.PageHandler.IndexHandler)

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - System
	mux.HandleFunc("/health", s.app.StatusHandler.HealthHandler)
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)

	// API routes - Scheduler
	mux.HandleFunc("/api/jobs", s.app.SchedulerHandler.ListJobsHandler)
	mux.HandleFunc("/api/jobs/trigger", s.app.SchedulerHandler.TriggerJobHandler)

	// API routes - Securities and market data
	mux.HandleFunc("/api/securities", s.app.SecuritiesHandler.ListHandler)
	mux.HandleFunc("/api/securities/bars", s.app.SecuritiesHandler.BarsHandler)
	mux.HandleFunc("/api/securities/hotranks", s.app.SecuritiesHandler.HotRanksHandler)

	// API routes - Similarity
	mux.HandleFunc("/api/similarity", s.app.SimilarityHandler.GetResultsHandler)
	mux.HandleFunc("/api/similarity/compute", s.app.SimilarityHandler.ComputeHandler)

	// API routes - Export
	mux.HandleFunc("/api/export/results", s.app.ExportHandler.ExportResultsHandler)
	mux.HandleFunc("/api/export/bars", s.app.ExportHandler.ExportBarsHandler)

	return mux
}
