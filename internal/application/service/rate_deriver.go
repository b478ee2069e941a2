package service

import (
	"ratecast/internal/application/port"
	"ratecast/internal/domain/model"
	dsvc "ratecast/internal/domain/service"
)

// RateDeriver turns ticks into rates relative to the base coin.
type RateDeriver struct {
	baseCoin string
	symbols  port.SymbolConverter
}

func NewRateDeriver(baseCoin string, symbols port.SymbolConverter) *RateDeriver {
	return &RateDeriver{baseCoin: baseCoin, symbols: symbols}
}

// Derive returns one observation per tick, in tick order. The base coin's own
// ticks are priced against the feed quote currency.
func (d *RateDeriver) Derive(ticks []port.Tick, basePrice float64) []model.Observation {
	out := make([]model.Observation, 0, len(ticks))
	for _, t := range ticks {
		coin := d.symbols.Symbol2Coin(t.Symbol)
		obs := model.Observation{Timestamp: t.Ts}
		if coin == d.baseCoin {
			obs.Pair = model.NewCurrencyPair(d.baseCoin, d.symbols.Quote())
			obs.Rate = t.Price
		} else {
			obs.Pair = model.NewCurrencyPair(d.baseCoin, coin)
			obs.Rate = dsvc.CrossRate(basePrice, t.Price)
		}
		out = append(out, obs)
	}
	return out
}
