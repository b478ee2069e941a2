package exchange

import (
	"strings"

	"ratecast/internal/application/port"
)

// PrefixedSymbolConverter handles symbols of the form "EXCHANGE:COINQUOTE".
type PrefixedSymbolConverter struct {
	exchange string
	quote    string
}

func NewPrefixedSymbolConverter(exchange, quote string) *PrefixedSymbolConverter {
	return &PrefixedSymbolConverter{
		exchange: strings.ToUpper(strings.TrimSpace(exchange)),
		quote:    strings.ToUpper(strings.TrimSpace(quote)),
	}
}

func (c *PrefixedSymbolConverter) Quote() string { return c.quote }

// Symbol2Coin strips the exchange prefix and the quote suffix.
// e.g. BINANCE:BTCUSDT -> BTC, BTCUSDT -> BTC
func (c *PrefixedSymbolConverter) Symbol2Coin(symbol string) string {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if i := strings.LastIndexByte(sym, ':'); i >= 0 {
		sym = sym[i+1:]
	}
	if sym == c.quote {
		return sym
	}
	return strings.TrimSuffix(sym, c.quote)
}

// Coin2Symbol builds the feed symbol for a coin.
// e.g. ETH -> BINANCE:ETHUSDT
func (c *PrefixedSymbolConverter) Coin2Symbol(coin string) string {
	coin = strings.ToUpper(strings.TrimSpace(coin))
	if coin == "" {
		return ""
	}
	if !strings.HasSuffix(coin, c.quote) {
		coin += c.quote
	}
	if c.exchange == "" {
		return coin
	}
	return c.exchange + ":" + coin
}

var _ port.SymbolConverter = (*PrefixedSymbolConverter)(nil)
