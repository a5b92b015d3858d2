package similarity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/similis/internal/interfaces"
	"github.com/ternarybob/similis/internal/models"
)

// Outcome classifies the result of one subject-year computation.
type Outcome string

const (
	// OutcomeMatched - a winning reference was found and persisted.
	OutcomeMatched Outcome = "matched"
	// OutcomeNoMatch - no reference shares a valid day with the subject.
	OutcomeNoMatch Outcome = "no_match"
	// OutcomeSkipped - the year lies beyond the current calendar year.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed - the computation errored; siblings are unaffected.
	OutcomeFailed Outcome = "failed"
)

// PairResult is the per-pair entry of a batch run.
type PairResult struct {
	Symbol  string
	Year    int
	Outcome Outcome
	Result  *models.SimilarityResult
	Err     error
}

// Orchestrator fans similarity computations across subject-year pairs.
// Each pair reads through its own score table, so workers share no
// mutable state; the single collector goroutine performs all writes.
type Orchestrator struct {
	source      ReturnSource
	results     interfaces.SimilarityStorage
	logger      arbor.ILogger
	concurrency int
	now         func() time.Time
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency bounds the worker pool. Values below 1 are raised
// to 1.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n < 1 {
			n = 1
		}
		o.concurrency = n
	}
}

// WithClock overrides the time source used for future-year skipping.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator creates a similarity orchestrator.
func NewOrchestrator(source ReturnSource, results interfaces.SimilarityStorage, logger arbor.ILogger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:      source,
		results:     results,
		logger:      logger,
		concurrency: 4,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ComputeSimilarity computes the best-matching reference for one
// subject-year and persists the result when a winner exists. ok is
// false for the defined no-match outcome.
func (o *Orchestrator) ComputeSimilarity(ctx context.Context, symbol string, year int) (*models.SimilarityResult, bool, error) {
	table, err := AggregateYear(ctx, o.source, symbol, year)
	if err != nil {
		return nil, false, err
	}

	winner, breakdown, ok := SelectBest(table)
	if !ok {
		return nil, false, nil
	}

	result := &models.SimilarityResult{
		Symbol:      symbol,
		Year:        year,
		IndexSymbol: winner,
		Breakdown:   breakdown,
		ComputedAt:  o.now().UTC(),
	}

	if o.results != nil {
		if err := o.results.SaveResult(ctx, result); err != nil {
			return nil, false, fmt.Errorf("persist similarity result for %s/%d: %w", symbol, year, err)
		}
	}

	return result, true, nil
}

// ComputeBatch runs every (subject, year) pair through the similarity
// computation on a bounded worker pool. Future years are skipped
// without touching the store. A failing pair is logged and reported as
// OutcomeFailed; it never aborts siblings. Results come back in input
// enumeration order (subjects outer, years inner). Persistence happens
// in the collector, one upsert per matched pair, so concurrent pairs
// for the same subject never race on the stored record.
func (o *Orchestrator) ComputeBatch(ctx context.Context, symbols []string, years []int) []PairResult {
	type workItem struct {
		idx    int
		symbol string
		year   int
	}

	runID := uuid.New().String()[:8]
	currentYear := o.now().Year()
	results := make([]PairResult, 0, len(symbols)*len(years))
	items := make([]workItem, 0, len(symbols)*len(years))

	for _, symbol := range symbols {
		for _, year := range years {
			idx := len(results)
			results = append(results, PairResult{Symbol: symbol, Year: year})
			items = append(items, workItem{idx: idx, symbol: symbol, year: year})
		}
	}

	o.logger.Info().
		Str("run_id", runID).
		Int("pairs", len(items)).
		Int("concurrency", o.concurrency).
		Msg("Similarity batch started")

	work := make(chan workItem)
	done := make(chan struct{})
	var wg sync.WaitGroup

	// Computed-but-unpersisted results flow to the single writer below.
	out := make(chan pairOutcome)

	for w := 0; w < o.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				out <- o.computePair(ctx, item.idx, item.symbol, item.year, currentYear)
			}
		}()
	}

	go func() {
		defer close(done)
		for p := range out {
			r := &results[p.idx]
			r.Outcome = p.outcome
			r.Result = p.result
			r.Err = p.err

			if p.outcome == OutcomeMatched && o.results != nil {
				if err := o.results.SaveResult(ctx, p.result); err != nil {
					r.Outcome = OutcomeFailed
					r.Err = fmt.Errorf("persist similarity result for %s/%d: %w", r.Symbol, r.Year, err)
					o.logger.Warn().
						Str("run_id", runID).
						Str("symbol", r.Symbol).
						Int("year", r.Year).
						Err(err).
						Msg("Failed to persist similarity result")
					continue
				}
			}

			switch r.Outcome {
			case OutcomeMatched:
				o.logger.Info().
					Str("run_id", runID).
					Str("symbol", r.Symbol).
					Int("year", r.Year).
					Str("index", p.result.IndexSymbol).
					Msg("Best-matching index selected")
			case OutcomeFailed:
				o.logger.Warn().
					Str("run_id", runID).
					Str("symbol", r.Symbol).
					Int("year", r.Year).
					Err(r.Err).
					Msg("Similarity computation failed")
			}
		}
	}()

	for _, item := range items {
		work <- item
	}
	close(work)
	wg.Wait()
	close(out)
	<-done

	o.logger.Info().
		Str("run_id", runID).
		Int("pairs", len(results)).
		Msg("Similarity batch finished")

	return results
}

// pairOutcome carries one worker's computed pair to the collector.
type pairOutcome struct {
	idx     int
	outcome Outcome
	result  *models.SimilarityResult
	err     error
}

// computePair evaluates one pair, converting panics and errors into a
// failed outcome so the batch survives.
func (o *Orchestrator) computePair(ctx context.Context, idx int, symbol string, year, currentYear int) (p pairOutcome) {
	p.idx = idx

	defer func() {
		if r := recover(); r != nil {
			p.outcome = OutcomeFailed
			p.err = fmt.Errorf("panic computing %s/%d: %v", symbol, year, r)
		}
	}()

	if year > currentYear {
		p.outcome = OutcomeSkipped
		return p
	}

	table, err := AggregateYear(ctx, o.source, symbol, year)
	if err != nil {
		p.outcome = OutcomeFailed
		p.err = err
		return p
	}

	winner, breakdown, ok := SelectBest(table)
	if !ok {
		p.outcome = OutcomeNoMatch
		return p
	}

	p.outcome = OutcomeMatched
	p.result = &models.SimilarityResult{
		Symbol:      symbol,
		Year:        year,
		IndexSymbol: winner,
		Breakdown:   breakdown,
		ComputedAt:  o.now().UTC(),
	}
	return p
}
