// Package updater implements the daily market data refresh: security
// master sync, incremental bar downloads, and derived daily returns.
package updater

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/interfaces"
	"github.com/ternarybob/similis/internal/marketdata"
	"github.com/ternarybob/similis/internal/models"
	"github.com/ternarybob/similis/internal/storage/sqlite"
)

const (
	// fetchAttempts is how many times a symbol download is tried before
	// it is skipped for the day.
	fetchAttempts = 3

	// retryBackoff is the base delay between attempts. The delay grows
	// linearly with the attempt number.
	retryBackoff = time.Second
)

// MarketSource provides the provider endpoints the updater needs.
type MarketSource interface {
	GetSymbolList(ctx context.Context, exchange string) (marketdata.SymbolListResponse, error)
	GetEOD(ctx context.Context, symbol string, from, to time.Time) (marketdata.EODResponse, error)
}

// clientSource adapts the provider client to MarketSource.
type clientSource struct {
	client *marketdata.Client
}

// NewClientSource wraps the provider client as a MarketSource.
func NewClientSource(client *marketdata.Client) MarketSource {
	return &clientSource{client: client}
}

func (c *clientSource) GetSymbolList(ctx context.Context, exchange string) (marketdata.SymbolListResponse, error) {
	return c.client.GetSymbolList(ctx, exchange)
}

func (c *clientSource) GetEOD(ctx context.Context, symbol string, from, to time.Time) (marketdata.EODResponse, error) {
	return c.client.GetEOD(ctx, symbol, marketdata.WithDateRange(from, to))
}

// Service implements UpdaterService.
type Service struct {
	source       MarketSource
	storage      interfaces.StorageManager
	calendar     interfaces.CalendarService
	eventService interfaces.EventService
	exchange     string
	historyStart time.Time
	logger       arbor.ILogger
	now          func() time.Time
	backoff      time.Duration
}

// NewService creates a new updater service. historyStart bounds the first
// download for symbols with no stored bars.
func NewService(source MarketSource, storage interfaces.StorageManager, calendarSvc interfaces.CalendarService, eventService interfaces.EventService, exchange string, historyStart time.Time, logger arbor.ILogger) interfaces.UpdaterService {
	return &Service{
		source:       source,
		storage:      storage,
		calendar:     calendarSvc,
		eventService: eventService,
		exchange:     exchange,
		historyStart: historyStart,
		logger:       logger,
		now:          time.Now,
		backoff:      retryBackoff,
	}
}

// UpdateAll refreshes the security master, downloads missing bars for
// every tracked security, and derives daily returns. When force is false
// the whole run is skipped on non-trading days.
func (s *Service) UpdateAll(ctx context.Context, force bool) error {
	today := s.now().UTC()

	if !force && !s.calendar.IsTradingDay(ctx, today) {
		s.logger.Info().
			Str("date", models.DateKey(today)).
			Msg("Not a trading day, skipping daily update")
		return nil
	}

	s.publish(ctx, interfaces.EventJobStarted, "Daily update started")

	securities, err := s.syncSecurities(ctx)
	if err != nil {
		s.publish(ctx, interfaces.EventJobFailed, fmt.Sprintf("Security master sync failed: %v", err))
		return fmt.Errorf("failed to sync security master: %w", err)
	}

	var updated, failed int
	for _, security := range securities {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.updateSecurity(ctx, security.Symbol, today); err != nil {
			failed++
			s.logger.Warn().
				Err(err).
				Str("symbol", security.Symbol).
				Msg("Symbol update failed, continuing with remaining symbols")
			continue
		}
		updated++

		if updated%100 == 0 {
			s.publish(ctx, interfaces.EventJobProgress, fmt.Sprintf("Updated %d of %d securities", updated, len(securities)))
		}
	}

	s.logger.Info().
		Int("updated", updated).
		Int("failed", failed).
		Msg("Daily update finished")
	s.publish(ctx, interfaces.EventJobCompleted, fmt.Sprintf("Daily update finished: %d updated, %d failed", updated, failed))

	return nil
}

// syncSecurities refreshes the security master from the provider's symbol
// list and returns the tracked securities.
func (s *Service) syncSecurities(ctx context.Context) ([]*models.Security, error) {
	listed, err := s.source.GetSymbolList(ctx, s.exchange)
	if err != nil {
		return nil, err
	}

	securities := make([]*models.Security, 0, len(listed))
	for _, info := range listed {
		kind, ok := securityKind(info.Type)
		if !ok {
			continue
		}
		securities = append(securities, &models.Security{
			Symbol: providerSymbol(info.Code, s.exchange),
			Name:   info.Name,
			Kind:   kind,
		})
	}

	if len(securities) == 0 {
		return nil, fmt.Errorf("provider returned no tracked securities for exchange %s", s.exchange)
	}

	if err := s.storage.SecurityStorage().SaveSecurities(ctx, securities); err != nil {
		return nil, err
	}

	references := 0
	for _, sec := range securities {
		if sec.IsReference() {
			references++
		}
	}

	s.logger.Info().
		Str("exchange", s.exchange).
		Int("count", len(securities)).
		Int("references", references).
		Msg("Security master synced")

	return securities, nil
}

// updateSecurity downloads bars missing since the last stored bar and
// derives the corresponding daily returns.
func (s *Service) updateSecurity(ctx context.Context, symbol string, today time.Time) error {
	from := s.historyStart
	prevClose := 0.0

	latest, err := s.storage.BarStorage().LatestBarDate(ctx, symbol)
	switch {
	case err == nil:
		from = latest.AddDate(0, 0, 1)
		if prev, perr := s.lastCloseBefore(ctx, symbol, from); perr == nil {
			prevClose = prev
		}
	case errors.Is(err, sqlite.ErrNotFound):
		// First download for this symbol
	default:
		return fmt.Errorf("failed to read latest bar date: %w", err)
	}

	if from.After(today) {
		return nil
	}

	bars, err := s.fetchWithRetry(ctx, symbol, from, today)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return nil
	}

	daily := make([]*models.DailyBar, 0, len(bars))
	returns := make([]*models.DailyReturn, 0, len(bars))
	for _, bar := range bars {
		daily = append(daily, &models.DailyBar{
			Symbol:     symbol,
			Date:       bar.Date,
			Open:       bar.Open,
			Close:      bar.Close,
			High:       bar.High,
			Low:        bar.Low,
			Volume:     bar.Volume,
			Amount:     bar.Amount,
			ChangeRate: bar.ChangeRate,
		})

		ret := &models.DailyReturn{Symbol: symbol, Date: bar.Date}
		if prevClose > 0 {
			value := bar.Close/prevClose - 1
			ret.Value = &value
		}
		returns = append(returns, ret)
		prevClose = bar.Close
	}

	if err := s.storage.BarStorage().SaveBars(ctx, daily); err != nil {
		return fmt.Errorf("failed to save bars: %w", err)
	}
	if err := s.storage.ReturnStorage().SaveReturns(ctx, returns); err != nil {
		return fmt.Errorf("failed to save returns: %w", err)
	}

	return nil
}

// fetchWithRetry downloads bars for one symbol, retrying transient
// provider failures with a linear backoff.
func (s *Service) fetchWithRetry(ctx context.Context, symbol string, from, to time.Time) (marketdata.EODResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		bars, err := s.source.GetEOD(ctx, symbol, from, to)
		if err == nil {
			return bars, nil
		}
		lastErr = err

		s.logger.Debug().
			Err(err).
			Str("symbol", symbol).
			Int("attempt", attempt).
			Msg("Bar download failed")

		if attempt < fetchAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * s.backoff):
			}
		}
	}

	return nil, fmt.Errorf("download failed after %d attempts: %w", fetchAttempts, lastErr)
}

// lastCloseBefore returns the close of the most recent stored bar strictly
// before the given date.
func (s *Service) lastCloseBefore(ctx context.Context, symbol string, date time.Time) (float64, error) {
	bars, err := s.storage.BarStorage().GetBars(ctx, symbol, date.AddDate(0, 0, -30), date.AddDate(0, 0, -1))
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, sqlite.ErrNotFound
	}
	return bars[len(bars)-1].Close, nil
}

func (s *Service) publish(ctx context.Context, eventType interfaces.EventType, message string) {
	if s.eventService == nil {
		return
	}
	s.eventService.Publish(ctx, interfaces.Event{
		Type:      eventType,
		Job:       "daily_update",
		Message:   message,
		Timestamp: s.now(),
	})
}

// securityKind maps a provider instrument type to a storage kind.
func securityKind(providerType string) (string, bool) {
	switch strings.ToUpper(providerType) {
	case "COMMON STOCK":
		return models.SecurityKindStock, true
	case "INDEX":
		return models.SecurityKindIndex, true
	case "ETF":
		return models.SecurityKindETF, true
	default:
		return "", false
	}
}

// providerSymbol builds the canonical TICKER.EXCHANGE symbol.
func providerSymbol(code, exchange string) string {
	if strings.Contains(code, ".") {
		return code
	}
	return code + "." + exchange
}
