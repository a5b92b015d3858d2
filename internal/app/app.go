// Package app wires services, storage, and handlers together.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/common"
	"github.com/ternarybob/similis/internal/handlers"
	"github.com/ternarybob/similis/internal/interfaces"
	"github.com/ternarybob/similis/internal/marketdata"
	"github.com/ternarybob/similis/internal/services/calendar"
	"github.com/ternarybob/similis/internal/services/events"
	"github.com/ternarybob/similis/internal/services/export"
	"github.com/ternarybob/similis/internal/services/hotrank"
	"github.com/ternarybob/similis/internal/services/ranking"
	"github.com/ternarybob/similis/internal/services/scheduler"
	"github.com/ternarybob/similis/internal/services/status"
	"github.com/ternarybob/similis/internal/services/updater"
	"github.com/ternarybob/similis/internal/storage/sqlite"
)

// Job names as registered with the scheduler and shown on the dashboard.
const (
	JobDailyUpdate = "daily_update"
	JobSimilarity  = "similarity"
	JobHotRank     = "hot_rank"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Provider
	MarketClient *marketdata.Client

	// Services
	EventService     interfaces.EventService
	CalendarService  interfaces.CalendarService
	UpdaterService   interfaces.UpdaterService
	RankingService   *ranking.Service
	HotRankService   *hotrank.Service
	ExportService    *export.Service
	SchedulerService interfaces.SchedulerService
	StatusService    *status.Service

	// HTTP handlers
	StatusHandler     *handlers.StatusHandler
	SchedulerHandler  *handlers.SchedulerHandler
	SimilarityHandler *handlers.SimilarityHandler
	SecuritiesHandler *handlers.SecuritiesHandler
	ExportHandler     *handlers.ExportHandler
	WSHandler         *handlers.WebSocketHandler
	PageHandler       *handlers.PageHandler
}

// New builds the application graph from configuration.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	storageManager, err := sqlite.NewManager(logger, &config.Storage.SQLite)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	clientOpts := []marketdata.ClientOption{
		marketdata.WithBaseURL(config.Provider.BaseURL),
		marketdata.WithRateLimit(config.Provider.RateLimit),
		marketdata.WithLogger(logger),
	}
	if timeout, err := time.ParseDuration(config.Provider.Timeout); err == nil && timeout > 0 {
		clientOpts = append(clientOpts, marketdata.WithHTTPClient(&http.Client{Timeout: timeout}))
	}
	client := marketdata.NewClient(config.Provider.APIKey, clientOpts...)

	eventService := events.NewService(logger)
	calendarService := calendar.NewService(client, config.Provider.Exchange, logger)

	historyStart := historyStart(config)
	updaterService := updater.NewService(
		updater.NewClientSource(client),
		storageManager,
		calendarService,
		eventService,
		config.Provider.Exchange,
		historyStart,
		logger,
	)

	rankingService := ranking.NewService(storageManager, eventService, config, logger)
	hotRankService := hotrank.NewService(client, storageManager.HotRankStorage(), calendarService, config.Provider.Exchange, logger)
	exportService := export.NewService(storageManager, config.Export.Dir, logger)

	schedulerService := scheduler.NewService(eventService, logger)
	statusService := status.NewService(eventService, logger)
	statusService.SubscribeToJobEvents()

	pageHandler, err := handlers.NewPageHandler(logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to load dashboard templates: %w", err)
	}

	wsHandler := handlers.NewWebSocketHandler(eventService, logger)
	wsHandler.SubscribeToEvents()

	a := &App{
		Config:         config,
		Logger:         logger,
		StorageManager: storageManager,

		MarketClient: client,

		EventService:     eventService,
		CalendarService:  calendarService,
		UpdaterService:   updaterService,
		RankingService:   rankingService,
		HotRankService:   hotRankService,
		ExportService:    exportService,
		SchedulerService: schedulerService,
		StatusService:    statusService,

		StatusHandler:     handlers.NewStatusHandler(statusService, schedulerService, storageManager, logger),
		SchedulerHandler:  handlers.NewSchedulerHandler(schedulerService),
		SimilarityHandler: handlers.NewSimilarityHandler(rankingService, storageManager, logger),
		SecuritiesHandler: handlers.NewSecuritiesHandler(storageManager, logger),
		ExportHandler:     handlers.NewExportHandler(exportService, logger),
		WSHandler:         wsHandler,
		PageHandler:       pageHandler,
	}

	if err := a.registerJobs(); err != nil {
		storageManager.Close()
		return nil, err
	}

	return a, nil
}

// registerJobs binds the recurring jobs to their configured schedules.
func (a *App) registerJobs() error {
	if !a.Config.Scheduler.Enabled {
		a.Logger.Info().Msg("Scheduler disabled by configuration")
		return nil
	}

	jobs := []struct {
		name        string
		schedule    string
		description string
		handler     func() error
	}{
		{
			name:        JobDailyUpdate,
			schedule:    a.Config.Scheduler.DailyUpdate,
			description: "Refresh securities, bars, and derived returns",
			handler: func() error {
				return a.UpdaterService.UpdateAll(context.Background(), false)
			},
		},
		{
			name:        JobSimilarity,
			schedule:    a.Config.Scheduler.Similarity,
			description: "Recompute best-matching indices for all stocks",
			handler: func() error {
				_, err := a.RankingService.RunAll(context.Background())
				return err
			},
		},
		{
			name:        JobHotRank,
			schedule:    a.Config.Scheduler.HotRank,
			description: "Collect the daily attention ranking",
			handler: func() error {
				return a.HotRankService.Collect(context.Background())
			},
		},
	}

	for _, job := range jobs {
		if job.schedule == "" {
			a.Logger.Info().
				Str("job_name", job.name).
				Msg("Job disabled, no schedule configured")
			continue
		}
		if err := a.SchedulerService.RegisterJob(job.name, job.schedule, job.description, job.handler); err != nil {
			return fmt.Errorf("failed to register job %s: %w", job.name, err)
		}
	}

	return a.SchedulerService.Start()
}

// Shutdown stops background work and releases resources.
func (a *App) Shutdown() {
	if err := a.SchedulerService.Stop(); err != nil {
		a.Logger.Warn().Err(err).Msg("Scheduler shutdown failed")
	}
	if err := a.StorageManager.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Storage shutdown failed")
	}
}

// historyStart derives the earliest download date from the configured
// similarity years.
func historyStart(config *common.Config) time.Time {
	years := config.SimilarityYears(time.Now().Year())
	first := years[0]
	for _, year := range years {
		if year < first {
			first = year
		}
	}
	return time.Date(first, time.January, 1, 0, 0, 0, 0, time.UTC)
}
