// Package calendar answers trading-day questions from the provider's
// exchange calendar. Calendar failures are treated conservatively: a day
// the service cannot verify is reported as a non-trading day.
package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/interfaces"
	"github.com/ternarybob/similis/internal/marketdata"
	"github.com/ternarybob/similis/internal/models"
)

// cacheTTL bounds how long a fetched holiday calendar is trusted.
const cacheTTL = 24 * time.Hour

// ExchangeSource provides exchange metadata including the holiday calendar.
type ExchangeSource interface {
	GetExchangeDetails(ctx context.Context, exchange string) (*marketdata.ExchangeDetails, error)
}

// Service implements CalendarService backed by ExchangeSource.
type Service struct {
	source   ExchangeSource
	exchange string
	logger   arbor.ILogger

	mu        sync.Mutex
	holidays  map[string]struct{}
	fetchedAt time.Time
}

// NewService creates a new calendar service for the given exchange.
func NewService(source ExchangeSource, exchange string, logger arbor.ILogger) interfaces.CalendarService {
	return &Service{
		source:   source,
		exchange: exchange,
		logger:   logger,
	}
}

// IsTradingDay reports whether the given date is a trading day. A date
// the service cannot verify (calendar fetch failure) is reported as false.
func (s *Service) IsTradingDay(ctx context.Context, date time.Time) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	holidays, err := s.holidaySet(ctx)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("exchange", s.exchange).
			Msg("Exchange calendar unavailable, treating day as non-trading")
		return false
	}

	_, holiday := holidays[models.DateKey(date)]
	return !holiday
}

// LatestTradingDay returns the most recent trading day at or before the
// given date, looking back at most 30 calendar days.
func (s *Service) LatestTradingDay(ctx context.Context, date time.Time) (time.Time, error) {
	holidays, err := s.holidaySet(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("exchange calendar unavailable: %w", err)
	}

	for i := 0; i < 30; i++ {
		day := date.AddDate(0, 0, -i)
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		if _, holiday := holidays[models.DateKey(day)]; holiday {
			continue
		}
		return day, nil
	}

	return time.Time{}, fmt.Errorf("no trading day found within 30 days before %s", models.DateKey(date))
}

// holidaySet returns the cached holiday calendar, refreshing it from the
// provider when the cache is empty or stale.
func (s *Service) holidaySet(ctx context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.holidays != nil && time.Since(s.fetchedAt) < cacheTTL {
		return s.holidays, nil
	}

	details, err := s.source.GetExchangeDetails(ctx, s.exchange)
	if err != nil {
		// Serve a stale calendar over no calendar at all
		if s.holidays != nil {
			s.logger.Warn().
				Err(err).
				Str("exchange", s.exchange).
				Msg("Calendar refresh failed, serving stale holiday set")
			return s.holidays, nil
		}
		return nil, err
	}

	holidays := make(map[string]struct{}, len(details.ExchangeHolidays))
	for _, h := range details.ExchangeHolidays {
		holidays[h.Date] = struct{}{}
	}

	s.holidays = holidays
	s.fetchedAt = time.Now()

	s.logger.Info().
		Str("exchange", s.exchange).
		Int("holidays", len(holidays)).
		Msg("Exchange holiday calendar refreshed")

	return s.holidays, nil
}
