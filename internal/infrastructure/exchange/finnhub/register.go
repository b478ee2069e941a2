package finnhub

import "ratecast/internal/infrastructure/pricefeed"

func init() {
	pricefeed.Register(Name, func(s pricefeed.Settings) pricefeed.Provider {
		return pricefeed.Provider{
			Feed: NewTradeFeed(FeedConfig{
				WsURL:          s.WsURL,
				Token:          s.Token,
				Symbols:        s.Symbols,
				ReconnectDelay: s.ReconnectDelay,
			}),
			Quoter: NewQuoteClient(s.RestURL, s.Token),
		}
	})
}
