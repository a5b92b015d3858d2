// Package hotrank collects the provider's daily attention ranking and
// persists it alongside the price history.
package hotrank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/interfaces"
	"github.com/ternarybob/similis/internal/marketdata"
	"github.com/ternarybob/similis/internal/models"
	"github.com/ternarybob/similis/internal/storage/sqlite"
)

// RankSource provides the provider's sentiment ranking endpoint.
type RankSource interface {
	GetSentimentRanks(ctx context.Context, exchange string, opts ...marketdata.QueryOption) (marketdata.SentimentResponse, error)
}

// Service downloads and stores daily attention rankings.
type Service struct {
	source   RankSource
	storage  interfaces.HotRankStorage
	calendar interfaces.CalendarService
	exchange string
	logger   arbor.ILogger
	now      func() time.Time
}

// NewService creates a new hot rank collection service.
func NewService(source RankSource, storage interfaces.HotRankStorage, calendarSvc interfaces.CalendarService, exchange string, logger arbor.ILogger) *Service {
	return &Service{
		source:   source,
		storage:  storage,
		calendar: calendarSvc,
		exchange: exchange,
		logger:   logger,
		now:      time.Now,
	}
}

// Collect downloads the attention ranking for the latest trading day and
// upserts it. Running twice on the same day overwrites, not duplicates.
func (s *Service) Collect(ctx context.Context) error {
	today := s.now().UTC()

	tradingDay, err := s.calendar.LatestTradingDay(ctx, today)
	if err != nil {
		return fmt.Errorf("failed to resolve trading day: %w", err)
	}

	ranks, err := s.source.GetSentimentRanks(ctx, s.exchange,
		marketdata.WithDateRange(tradingDay, tradingDay))
	if err != nil {
		return fmt.Errorf("failed to download attention ranking: %w", err)
	}
	if len(ranks) == 0 {
		s.logger.Info().
			Str("date", models.DateKey(tradingDay)).
			Msg("No attention ranking published yet")
		return nil
	}

	entries := make([]*models.HotRank, 0, len(ranks))
	for _, rank := range ranks {
		date := rank.Date
		if date.IsZero() {
			date = tradingDay
		}
		entries = append(entries, &models.HotRank{
			Symbol:         rank.Symbol,
			Date:           date,
			Rank:           rank.Rank,
			NewFansRatio:   rank.NewFansRatio,
			LoyalFansRatio: rank.LoyalFansRatio,
		})
	}

	if err := s.storage.SaveHotRanks(ctx, entries); err != nil {
		return fmt.Errorf("failed to save attention ranking: %w", err)
	}

	s.logger.Info().
		Str("date", models.DateKey(tradingDay)).
		Int("count", len(entries)).
		Msg("Attention ranking collected")

	return nil
}

// UpToDate reports whether a ranking is already stored for the latest
// trading day.
func (s *Service) UpToDate(ctx context.Context, symbol string) (bool, error) {
	tradingDay, err := s.calendar.LatestTradingDay(ctx, s.now().UTC())
	if err != nil {
		return false, err
	}

	latest, err := s.storage.LatestHotRankDate(ctx, symbol)
	if errors.Is(err, sqlite.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return !latest.Before(tradingDay), nil
}
