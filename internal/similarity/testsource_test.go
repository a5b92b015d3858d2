package similarity

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ternarybob/similis/internal/models"
)

// fakeSource is an in-memory ReturnSource for tests. Subject series
// are keyed by symbol; reference cross-sections by date key.
type fakeSource struct {
	subjects    map[string][]*models.DailyReturn
	refs        map[string]map[string]float64
	subjectErr  map[string]error
	calls       atomic.Int64
	subjectDesc bool // serve subject days in reverse order
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		subjects:   make(map[string][]*models.DailyReturn),
		refs:       make(map[string]map[string]float64),
		subjectErr: make(map[string]error),
	}
}

func (f *fakeSource) addSubjectDay(symbol string, date time.Time, value float64) {
	v := value
	f.subjects[symbol] = append(f.subjects[symbol], &models.DailyReturn{
		Symbol: symbol,
		Date:   date,
		Value:  &v,
	})
}

func (f *fakeSource) addReference(date time.Time, symbol string, value float64) {
	key := models.DateKey(date)
	if f.refs[key] == nil {
		f.refs[key] = make(map[string]float64)
	}
	f.refs[key][symbol] = value
}

func (f *fakeSource) SubjectReturns(ctx context.Context, symbol string, year int) ([]*models.DailyReturn, error) {
	f.calls.Add(1)
	if err := f.subjectErr[symbol]; err != nil {
		return nil, err
	}

	var days []*models.DailyReturn
	for _, d := range f.subjects[symbol] {
		if d.Date.Year() == year {
			days = append(days, d)
		}
	}
	if f.subjectDesc {
		for i, j := 0, len(days)-1; i < j; i, j = i+1, j-1 {
			days[i], days[j] = days[j], days[i]
		}
	}
	return days, nil
}

func (f *fakeSource) ReferenceReturnsOn(ctx context.Context, date time.Time) (map[string]float64, error) {
	f.calls.Add(1)
	refs := f.refs[models.DateKey(date)]
	out := make(map[string]float64, len(refs))
	for k, v := range refs {
		out[k] = v
	}
	return out, nil
}

func day(yearDay int) time.Time {
	return time.Date(2023, time.January, yearDay, 0, 0, 0, 0, time.UTC)
}
