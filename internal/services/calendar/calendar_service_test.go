package calendar

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/marketdata"
	"github.com/ternarybob/similis/internal/models"
)

type fakeExchangeSource struct {
	holidays []string
	err      error
	calls    atomic.Int32
}

func (f *fakeExchangeSource) GetExchangeDetails(ctx context.Context, exchange string) (*marketdata.ExchangeDetails, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	details := &marketdata.ExchangeDetails{
		Code:             exchange,
		ExchangeHolidays: make(map[string]marketdata.ExchangeHoliday),
	}
	for i, date := range f.holidays {
		details.ExchangeHolidays[string(rune('0'+i))] = marketdata.ExchangeHoliday{Date: date}
	}
	return details, nil
}

func TestIsTradingDay(t *testing.T) {
	source := &fakeExchangeSource{holidays: []string{"2023-01-23", "2023-01-24"}}
	svc := NewService(source, "SHG", arbor.NewLogger())
	ctx := context.Background()

	// Monday, not a holiday
	assert.True(t, svc.IsTradingDay(ctx, time.Date(2023, 1, 9, 0, 0, 0, 0, time.UTC)))

	// Saturday
	assert.False(t, svc.IsTradingDay(ctx, time.Date(2023, 1, 7, 0, 0, 0, 0, time.UTC)))

	// Spring Festival holiday on a Monday
	assert.False(t, svc.IsTradingDay(ctx, time.Date(2023, 1, 23, 0, 0, 0, 0, time.UTC)))
}

func TestIsTradingDayCalendarFailure(t *testing.T) {
	source := &fakeExchangeSource{err: errors.New("provider timeout")}
	svc := NewService(source, "SHG", arbor.NewLogger())

	// An unverifiable weekday is not a trading day
	assert.False(t, svc.IsTradingDay(context.Background(), time.Date(2023, 1, 9, 0, 0, 0, 0, time.UTC)))
}

func TestCalendarIsCached(t *testing.T) {
	source := &fakeExchangeSource{}
	svc := NewService(source, "SHG", arbor.NewLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.IsTradingDay(ctx, time.Date(2023, 1, 9, 0, 0, 0, 0, time.UTC))
	}

	assert.Equal(t, int32(1), source.calls.Load())
}

func TestLatestTradingDaySkipsWeekendAndHolidays(t *testing.T) {
	// 2023-01-23 (Mon) is a holiday, 21/22 are the weekend, 20 (Fri) trades
	source := &fakeExchangeSource{holidays: []string{"2023-01-23"}}
	svc := NewService(source, "SHG", arbor.NewLogger())

	got, err := svc.LatestTradingDay(context.Background(), time.Date(2023, 1, 23, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2023-01-20", models.DateKey(got))
}

func TestLatestTradingDayCalendarFailure(t *testing.T) {
	source := &fakeExchangeSource{err: errors.New("provider timeout")}
	svc := NewService(source, "SHG", arbor.NewLogger())

	_, err := svc.LatestTradingDay(context.Background(), time.Date(2023, 1, 23, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}
