// Package ranking runs the similarity computation across every tracked
// stock and the configured year set.
package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/common"
	"github.com/ternarybob/similis/internal/interfaces"
	"github.com/ternarybob/similis/internal/models"
	"github.com/ternarybob/similis/internal/similarity"
)

// Service drives batch similarity runs over the stored universe.
type Service struct {
	storage      interfaces.StorageManager
	eventService interfaces.EventService
	config       *common.Config
	logger       arbor.ILogger
	now          func() time.Time
}

// NewService creates a new ranking service.
func NewService(storage interfaces.StorageManager, eventService interfaces.EventService, config *common.Config, logger arbor.ILogger) *Service {
	return &Service{
		storage:      storage,
		eventService: eventService,
		config:       config,
		logger:       logger,
		now:          time.Now,
	}
}

// RunSummary aggregates the outcomes of one batch run.
type RunSummary struct {
	Pairs   int `json:"pairs"`
	Matched int `json:"matched"`
	NoMatch int `json:"no_match"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// RunAll computes the best-matching index for every tracked stock over
// the configured years. Individual pair failures are counted, not fatal.
func (s *Service) RunAll(ctx context.Context) (*RunSummary, error) {
	symbols, err := s.storage.SecurityStorage().ListSymbols(ctx, models.SecurityKindStock)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked stocks: %w", err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no tracked stocks, run the daily update first")
	}

	years := s.config.SimilarityYears(s.now().Year())

	s.publish(ctx, interfaces.EventJobStarted,
		fmt.Sprintf("Similarity run started: %d stocks, %d years", len(symbols), len(years)))

	orchestrator := similarity.NewOrchestrator(
		s.storage.ReturnStorage(),
		s.storage.SimilarityStorage(),
		s.logger,
		similarity.WithConcurrency(s.config.SimilarityWorkers()),
		similarity.WithClock(s.now),
	)

	pairs := orchestrator.ComputeBatch(ctx, symbols, years)

	summary := &RunSummary{Pairs: len(pairs)}
	for _, pair := range pairs {
		switch pair.Outcome {
		case similarity.OutcomeMatched:
			summary.Matched++
		case similarity.OutcomeNoMatch:
			summary.NoMatch++
		case similarity.OutcomeSkipped:
			summary.Skipped++
		case similarity.OutcomeFailed:
			summary.Failed++
		}
	}

	s.logger.Info().
		Int("pairs", summary.Pairs).
		Int("matched", summary.Matched).
		Int("no_match", summary.NoMatch).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("Similarity run finished")

	s.publish(ctx, interfaces.EventJobCompleted,
		fmt.Sprintf("Similarity run finished: %d matched, %d failed", summary.Matched, summary.Failed))

	return summary, nil
}

// RunOne computes and persists the best-matching index for a single
// subject-year. ok is false when no reference shares a valid day.
func (s *Service) RunOne(ctx context.Context, symbol string, year int) (*models.SimilarityResult, bool, error) {
	orchestrator := similarity.NewOrchestrator(
		s.storage.ReturnStorage(),
		s.storage.SimilarityStorage(),
		s.logger,
		similarity.WithClock(s.now),
	)
	return orchestrator.ComputeSimilarity(ctx, symbol, year)
}

func (s *Service) publish(ctx context.Context, eventType interfaces.EventType, message string) {
	if s.eventService == nil {
		return
	}
	s.eventService.Publish(ctx, interfaces.Event{
		Type:      eventType,
		Job:       "similarity",
		Message:   message,
		Timestamp: s.now(),
	})
}
