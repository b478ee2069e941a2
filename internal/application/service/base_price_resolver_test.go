package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ratecast/internal/application/port"
	"ratecast/internal/infrastructure/exchange"
)

type mockQuoter struct {
	price   float64
	err     error
	calls   int
	symbols []string
}

func (m *mockQuoter) Quote(ctx context.Context, symbol string) (float64, error) {
	m.calls++
	m.symbols = append(m.symbols, symbol)
	return m.price, m.err
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestResolver(q port.Quoter, clock *fakeClock) *BasePriceResolver {
	conv := exchange.NewPrefixedSymbolConverter("BINANCE", "USDT")
	return NewBasePriceResolver("ETH", conv, q, WithResolverClock(clock.Now))
}

func TestResolveUsesLastBaseTickInBatchOrder(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(1_000_000)}
	q := &mockQuoter{price: 1}
	r := newTestResolver(q, clock)

	price, err := r.Resolve(context.Background(), []port.Tick{
		{Symbol: "BINANCE:ETHUSDT", Price: 3100, Ts: 900_000},
		{Symbol: "BINANCE:BTCUSDT", Price: 10000, Ts: 900_001},
		{Symbol: "BINANCE:ETHUSDT", Price: 3000, Ts: 800_000},
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if price != 3000 {
		t.Errorf("expected last base tick price 3000, got %v", price)
	}
	if q.calls != 0 {
		t.Errorf("expected no quote fetch, got %d", q.calls)
	}
}

func TestResolveFreshnessBoundary(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(10_000)}
	q := &mockQuoter{price: 2500}
	r := newTestResolver(q, clock)

	if _, err := r.Resolve(context.Background(), []port.Tick{{Symbol: "BINANCE:ETHUSDT", Price: 3000, Ts: 10_000}}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// exactly at the threshold: still fresh
	clock.Advance(DefaultFreshness)
	price, err := r.Resolve(context.Background(), []port.Tick{{Symbol: "BINANCE:BTCUSDT", Price: 10000, Ts: 11_000}})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if price != 3000 || q.calls != 0 {
		t.Fatalf("expected cached 3000 without fetch, got %v (fetches=%d)", price, q.calls)
	}

	// one millisecond older: fetch
	clock.Advance(time.Millisecond)
	price, err = r.Resolve(context.Background(), []port.Tick{{Symbol: "BINANCE:BTCUSDT", Price: 10000, Ts: 11_001}})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if price != 2500 || q.calls != 1 {
		t.Fatalf("expected fetched 2500 after one fetch, got %v (fetches=%d)", price, q.calls)
	}
	if q.symbols[0] != "BINANCE:ETHUSDT" {
		t.Errorf("expected quote for BINANCE:ETHUSDT, got %s", q.symbols[0])
	}

	cached, ts, ok := r.Cached()
	if !ok || cached != 2500 || ts != clock.Now().UnixMilli() {
		t.Errorf("expected cache 2500@%d, got %v@%d (ok=%v)", clock.Now().UnixMilli(), cached, ts, ok)
	}
}

func TestResolveFetchFailureFallsBackToStaleCache(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(10_000)}
	q := &mockQuoter{err: errors.New("boom")}
	r := newTestResolver(q, clock)

	if _, err := r.Resolve(context.Background(), []port.Tick{{Symbol: "BINANCE:ETHUSDT", Price: 3000, Ts: 10_000}}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	clock.Advance(time.Minute)

	price, err := r.Resolve(context.Background(), []port.Tick{{Symbol: "BINANCE:BTCUSDT", Price: 10000, Ts: 70_000}})
	if err != nil {
		t.Fatalf("expected stale fallback, got error %v", err)
	}
	if price != 3000 {
		t.Errorf("expected stale 3000, got %v", price)
	}
	if _, ts, _ := r.Cached(); ts != 10_000 {
		t.Errorf("cache must not be touched on fetch failure, ts=%d", ts)
	}
}

func TestResolveNoPriceAvailable(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(10_000)}
	q := &mockQuoter{err: errors.New("unreachable")}
	r := newTestResolver(q, clock)

	_, err := r.Resolve(context.Background(), []port.Tick{{Symbol: "BINANCE:BTCUSDT", Price: 10000, Ts: 10_000}})
	if !errors.Is(err, port.ErrNoBasePrice) {
		t.Fatalf("expected ErrNoBasePrice, got %v", err)
	}
}

func TestResolveZeroQuoteIsFailure(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(10_000)}
	r := newTestResolver(&mockQuoter{price: 0}, clock)

	_, err := r.Resolve(context.Background(), []port.Tick{{Symbol: "BINANCE:BTCUSDT", Price: 10000, Ts: 10_000}})
	if !errors.Is(err, port.ErrNoBasePrice) {
		t.Fatalf("expected ErrNoBasePrice, got %v", err)
	}
}

func TestResolveCacheIsMonotonic(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(50_000)}
	r := newTestResolver(&mockQuoter{price: 2000}, clock)

	// fetch stamps the cache with now
	if _, err := r.Resolve(context.Background(), []port.Tick{{Symbol: "BINANCE:BTCUSDT", Price: 1, Ts: 1}}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// an older in-batch tick is used for its batch but does not rewind the cache
	price, err := r.Resolve(context.Background(), []port.Tick{{Symbol: "BINANCE:ETHUSDT", Price: 3000, Ts: 40_000}})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if price != 3000 {
		t.Errorf("expected in-batch price 3000, got %v", price)
	}
	cached, ts, _ := r.Cached()
	if cached != 2000 || ts != 50_000 {
		t.Errorf("expected cache to stay 2000@50000, got %v@%d", cached, ts)
	}
}
