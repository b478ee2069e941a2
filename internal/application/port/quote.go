package port

import (
	"context"
	"errors"
)

// ErrNoBasePrice is returned when neither the batch, the cache nor a quote
// lookup yields a base asset price.
var ErrNoBasePrice = errors.New("no base price available")

// Quoter looks up the current price of a symbol.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (float64, error)
}
