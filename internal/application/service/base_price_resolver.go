package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ratecast/internal/application/port"

	"github.com/rs/zerolog/log"
)

// DefaultFreshness is the maximum age of a cached base price before a new quote is fetched.
const DefaultFreshness = 1000 * time.Millisecond

type basePrice struct {
	price float64
	ts    int64
	set   bool
}

// BasePriceResolver resolves the base asset price for each batch and owns the
// base price cache. Each pipeline builds its own resolver.
type BasePriceResolver struct {
	baseCoin    string
	quoteSymbol string
	symbols     port.SymbolConverter
	quoter      port.Quoter
	freshness   time.Duration
	now         func() time.Time

	// held across the quote fetch
	mu    sync.Mutex
	cache basePrice
}

type ResolverOption func(*BasePriceResolver)

func WithFreshness(d time.Duration) ResolverOption {
	return func(r *BasePriceResolver) {
		if d > 0 {
			r.freshness = d
		}
	}
}

func WithResolverClock(now func() time.Time) ResolverOption {
	return func(r *BasePriceResolver) { r.now = now }
}

func NewBasePriceResolver(baseCoin string, symbols port.SymbolConverter, quoter port.Quoter, opts ...ResolverOption) *BasePriceResolver {
	r := &BasePriceResolver{
		baseCoin:    baseCoin,
		quoteSymbol: symbols.Coin2Symbol(baseCoin),
		symbols:     symbols,
		quoter:      quoter,
		freshness:   DefaultFreshness,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsBase reports whether a feed symbol is the base asset.
func (r *BasePriceResolver) IsBase(symbol string) bool {
	return r.symbols.Symbol2Coin(symbol) == r.baseCoin
}

// Resolve picks the base price for a batch: the last base tick in batch order,
// else a fresh cached price, else a quote lookup. A failed lookup falls back
// to the cache even when stale.
func (r *BasePriceResolver) Resolve(ctx context.Context, ticks []port.Tick) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(ticks) - 1; i >= 0; i-- {
		t := ticks[i]
		if !r.IsBase(t.Symbol) {
			continue
		}
		r.store(t.Price, t.Ts)
		return t.Price, nil
	}

	now := r.now().UnixMilli()
	if r.cache.set && now-r.cache.ts <= r.freshness.Milliseconds() {
		return r.cache.price, nil
	}

	price, err := r.quoter.Quote(ctx, r.quoteSymbol)
	if err == nil && price <= 0 {
		err = fmt.Errorf("quote for %s returned price %v", r.quoteSymbol, price)
	}
	if err != nil {
		log.Error().Err(err).Str("symbol", r.quoteSymbol).Msg("base price fetch failed")
		if r.cache.set {
			return r.cache.price, nil
		}
		return 0, fmt.Errorf("%w: %v", port.ErrNoBasePrice, err)
	}

	r.store(price, now)
	return price, nil
}

// Cached returns the current cache entry.
func (r *BasePriceResolver) Cached() (price float64, ts int64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.price, r.cache.ts, r.cache.set
}

// store keeps the cache monotonic in timestamp.
func (r *BasePriceResolver) store(price float64, ts int64) {
	if r.cache.set && ts < r.cache.ts {
		return
	}
	r.cache = basePrice{price: price, ts: ts, set: true}
}
