package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
)

// CurrencyPair is a "BASE/QUOTE" label, e.g. "ETH/BTC".
type CurrencyPair string

func NewCurrencyPair(base, quote string) CurrencyPair {
	return CurrencyPair(strings.ToUpper(base) + "/" + strings.ToUpper(quote))
}

func (p CurrencyPair) String() string { return string(p) }

// Observation is one derived rate, produced per tick.
type Observation struct {
	Pair      CurrencyPair
	Rate      float64
	Timestamp int64 // unix ms
}

// RatePoint is one entry of a pair's history.
type RatePoint struct {
	Rate      float64 `json:"rate"`
	Timestamp int64   `json:"timestamp"`
}

type ratePointJSON struct {
	Rate      *float64 `json:"rate"`
	Timestamp int64    `json:"timestamp"`
}

// MarshalJSON writes a non-finite rate as null; the stored rate is unchanged.
func (p RatePoint) MarshalJSON() ([]byte, error) {
	out := ratePointJSON{Timestamp: p.Timestamp}
	if isFinite(p.Rate) {
		r := p.Rate
		out.Rate = &r
	}
	return json.Marshal(out)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// PairSnapshot is the per-pair payload handed to subscribers.
type PairSnapshot struct {
	Pair          CurrencyPair
	HourlyAverage float64
	Rates         []RatePoint
}

// HasAverage reports whether the average is a finite number.
func (s PairSnapshot) HasAverage() bool {
	return isFinite(s.HourlyAverage)
}

type pairSnapshotJSON struct {
	HourlyAverage *float64    `json:"hourlyAverage"`
	Rates         []RatePoint `json:"rates"`
}

// MarshalJSON writes a non-finite average as null.
func (s PairSnapshot) MarshalJSON() ([]byte, error) {
	out := pairSnapshotJSON{Rates: s.Rates}
	if out.Rates == nil {
		out.Rates = []RatePoint{}
	}
	if s.HasAverage() {
		avg := s.HourlyAverage
		out.HourlyAverage = &avg
	}
	return json.Marshal(out)
}

// Snapshots keeps one PairSnapshot per pair in first-seen order.
type Snapshots struct {
	order  []CurrencyPair
	byPair map[CurrencyPair]*PairSnapshot
}

func NewSnapshots() *Snapshots {
	return &Snapshots{byPair: make(map[CurrencyPair]*PairSnapshot)}
}

// Put stores s, keeping the original position if the pair is already present.
func (s *Snapshots) Put(snap PairSnapshot) {
	if _, ok := s.byPair[snap.Pair]; !ok {
		s.order = append(s.order, snap.Pair)
	}
	cp := snap
	s.byPair[snap.Pair] = &cp
}

func (s *Snapshots) Get(pair CurrencyPair) (PairSnapshot, bool) {
	v, ok := s.byPair[pair]
	if !ok {
		return PairSnapshot{}, false
	}
	return *v, true
}

// Pairs returns pairs in insertion order.
func (s *Snapshots) Pairs() []CurrencyPair {
	out := make([]CurrencyPair, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Snapshots) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// MarshalJSON encodes the mapping as a JSON object with keys in insertion order.
func (s *Snapshots) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if s != nil {
		for i, pair := range s.order {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(string(pair))
			if err != nil {
				return nil, err
			}
			v, err := json.Marshal(s.byPair[pair])
			if err != nil {
				return nil, err
			}
			buf.Write(k)
			buf.WriteByte(':')
			buf.Write(v)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
