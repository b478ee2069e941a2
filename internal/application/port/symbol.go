package port

// SymbolConverter maps between feed symbols and coins.
// e.g. "BINANCE:BTCUSDT" <-> "BTC"
type SymbolConverter interface {
	Symbol2Coin(symbol string) string
	Coin2Symbol(coin string) string
	Quote() string
}
