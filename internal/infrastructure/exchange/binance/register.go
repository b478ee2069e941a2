package binance

import "ratecast/internal/infrastructure/pricefeed"

// init() registers the keyless Binance provider; public streams need no token.
func init() {
	pricefeed.Register(Name, func(s pricefeed.Settings) pricefeed.Provider {
		return pricefeed.Provider{
			Feed:   NewTradeFeed(s.WsURL, s.Symbols, s.ReconnectDelay),
			Quoter: NewTickerClient(s.RestURL),
		}
	})
}
