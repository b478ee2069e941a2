package service

import (
	"sync"
	"time"

	"ratecast/internal/domain/model"
	dsvc "ratecast/internal/domain/service"
)

// DefaultAverageWindow bounds the denominator of the hourly average.
const DefaultAverageWindow = time.Hour

// Aggregator owns the per-pair history. History is never evicted for the
// lifetime of the process.
// TODO: window or compact history once a restart-safe store exists.
type Aggregator struct {
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	history map[model.CurrencyPair][]model.RatePoint
}

type AggregatorOption func(*Aggregator)

func WithAverageWindow(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d > 0 {
			a.window = d
		}
	}
}

func WithAggregatorClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) { a.now = now }
}

func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		window:  DefaultAverageWindow,
		now:     time.Now,
		history: make(map[model.CurrencyPair][]model.RatePoint),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ingest groups observations by pair, dedups each group by timestamp, appends
// it to the pair history and returns the batch rates with the hourly average.
func (a *Aggregator) Ingest(obs []model.Observation) *model.Snapshots {
	var order []model.CurrencyPair
	groups := make(map[model.CurrencyPair][]model.RatePoint)
	for _, o := range obs {
		if _, ok := groups[o.Pair]; !ok {
			order = append(order, o.Pair)
		}
		groups[o.Pair] = append(groups[o.Pair], model.RatePoint{Rate: o.Rate, Timestamp: o.Timestamp})
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	since := a.now().Add(-a.window).UnixMilli()
	out := model.NewSnapshots()
	for _, pair := range order {
		rates := dsvc.SortDedup(groups[pair])
		h := dsvc.MergeSorted(a.history[pair], rates)
		a.history[pair] = h

		out.Put(model.PairSnapshot{
			Pair:          pair,
			HourlyAverage: dsvc.HourlyAverage(h, since),
			Rates:         rates,
		})
	}
	return out
}

// History returns a copy of the stored history for pair.
func (a *Aggregator) History(pair model.CurrencyPair) []model.RatePoint {
	a.mu.Lock()
	defer a.mu.Unlock()

	h := a.history[pair]
	out := make([]model.RatePoint, len(h))
	copy(out, h)
	return out
}
