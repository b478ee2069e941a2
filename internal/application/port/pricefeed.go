package port

import (
	"context"
	"errors"
)

// ErrMissingToken is returned when the upstream feed credential is not configured.
var ErrMissingToken = errors.New("feed api token is not set")

type Tick struct {
	Symbol string  // "BINANCE:ETHUSDT"
	Price  float64 // last trade price
	Ts     int64   // unix ms
}

// TradeFeed delivers batches of ticks in arrival order.
type TradeFeed interface {
	Name() string
	Start(ctx context.Context) (<-chan []Tick, error)
	Stop() error
}
