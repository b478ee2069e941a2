package service

import (
	"math"
	"testing"
	"time"

	"ratecast/internal/domain/model"
)

func TestIngestDedupKeepsFirstSeen(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(1_000_000)}
	a := NewAggregator(WithAggregatorClock(clock.Now))

	out := a.Ingest([]model.Observation{
		{Pair: "ETH/BTC", Rate: 0.30, Timestamp: 999_000},
		{Pair: "ETH/BTC", Rate: 0.31, Timestamp: 999_000},
		{Pair: "ETH/BTC", Rate: 0.32, Timestamp: 998_000},
		{Pair: "ETH/BTC", Rate: 0.33, Timestamp: 998_000},
	})

	snap, ok := out.Get("ETH/BTC")
	if !ok {
		t.Fatalf("expected ETH/BTC snapshot")
	}
	want := []model.RatePoint{{Rate: 0.32, Timestamp: 998_000}, {Rate: 0.30, Timestamp: 999_000}}
	if len(snap.Rates) != len(want) {
		t.Fatalf("expected %d rates, got %+v", len(want), snap.Rates)
	}
	for i := range want {
		if snap.Rates[i] != want[i] {
			t.Errorf("rate %d: want %+v, got %+v", i, want[i], snap.Rates[i])
		}
	}
}

func TestIngestPairsInFirstSeenOrder(t *testing.T) {
	a := NewAggregator()
	out := a.Ingest([]model.Observation{
		{Pair: "ETH/USDT", Rate: 3000, Timestamp: time.Now().UnixMilli()},
		{Pair: "ETH/BTC", Rate: 0.3, Timestamp: time.Now().UnixMilli()},
		{Pair: "ETH/USDT", Rate: 3001, Timestamp: time.Now().UnixMilli() + 1},
	})
	pairs := out.Pairs()
	if len(pairs) != 2 || pairs[0] != "ETH/USDT" || pairs[1] != "ETH/BTC" {
		t.Errorf("unexpected pair order %v", pairs)
	}
}

func TestIngestHistoryStaysOrdered(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(10_000_000)}
	a := NewAggregator(WithAggregatorClock(clock.Now))

	batches := [][]model.Observation{
		{{Pair: "ETH/BTC", Rate: 1, Timestamp: 9_000_300}, {Pair: "ETH/BTC", Rate: 2, Timestamp: 9_000_100}},
		{{Pair: "ETH/BTC", Rate: 3, Timestamp: 9_000_200}},
		{{Pair: "ETH/BTC", Rate: 4, Timestamp: 9_000_400}, {Pair: "ETH/BTC", Rate: 5, Timestamp: 9_000_050}},
	}
	for _, b := range batches {
		a.Ingest(b)
		h := a.History("ETH/BTC")
		for i := 1; i < len(h); i++ {
			if h[i].Timestamp < h[i-1].Timestamp {
				t.Fatalf("history out of order at %d: %+v", i, h)
			}
		}
	}
	if got := len(a.History("ETH/BTC")); got != 5 {
		t.Errorf("expected 5 history entries, got %d", got)
	}
}

func TestIngestHourlyAverageAcrossBatches(t *testing.T) {
	start := time.UnixMilli(100_000_000)
	clock := &fakeClock{t: start}
	a := NewAggregator(WithAggregatorClock(clock.Now))

	a.Ingest([]model.Observation{{Pair: "ETH/BTC", Rate: 0.30, Timestamp: start.UnixMilli()}})

	clock.Advance(5 * time.Minute)
	out := a.Ingest([]model.Observation{{Pair: "ETH/BTC", Rate: 0.40, Timestamp: clock.Now().UnixMilli()}})
	snap, _ := out.Get("ETH/BTC")
	if math.Abs(snap.HourlyAverage-0.35) > 1e-12 {
		t.Fatalf("expected (0.30+0.40)/2, got %v", snap.HourlyAverage)
	}
	if len(snap.Rates) != 1 {
		t.Errorf("snapshot must carry only batch rates, got %d", len(snap.Rates))
	}

	// the first entry leaves the window: it stays in the sum but not in the count
	clock.Advance(56 * time.Minute)
	out = a.Ingest([]model.Observation{{Pair: "ETH/BTC", Rate: 0.50, Timestamp: clock.Now().UnixMilli()}})
	snap, _ = out.Get("ETH/BTC")
	want := (0.30 + 0.40 + 0.50) / 2
	if math.Abs(snap.HourlyAverage-want) > 1e-12 {
		t.Errorf("expected full sum over windowed count %v, got %v", want, snap.HourlyAverage)
	}
}

func TestIngestEmptyWindowIsNonFinite(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(100_000_000)}
	a := NewAggregator(WithAggregatorClock(clock.Now))

	out := a.Ingest([]model.Observation{{Pair: "ETH/BTC", Rate: 0.3, Timestamp: 1}})
	snap, _ := out.Get("ETH/BTC")
	if snap.HasAverage() {
		t.Errorf("expected non-finite average, got %v", snap.HourlyAverage)
	}
}
