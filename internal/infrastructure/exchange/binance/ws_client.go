package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"ratecast/internal/application/port"
	"ratecast/internal/infrastructure/metrics"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	Name                  = "BINANCE"
	DefaultWsURL          = "wss://stream.binance.com:9443"
	DefaultReconnectDelay = 3000 * time.Millisecond
)

// TradeFeed streams public trades from the combined stream endpoint. Symbols
// may carry an "EXCHANGE:" prefix; ticks are reported with the configured
// spelling so downstream symbol handling matches other providers.
type TradeFeed struct {
	wsURL   string
	symbols []string
	delay   time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

func NewTradeFeed(wsURL string, symbols []string, reconnectDelay time.Duration) *TradeFeed {
	wsURL = strings.TrimSpace(wsURL)
	if wsURL == "" {
		wsURL = DefaultWsURL
	}
	if reconnectDelay <= 0 {
		reconnectDelay = DefaultReconnectDelay
	}
	return &TradeFeed{
		wsURL:   wsURL,
		symbols: append([]string(nil), symbols...),
		delay:   reconnectDelay,
	}
}

func (f *TradeFeed) Name() string { return Name }

type binanceCombined struct {
	Stream string          `json:"stream"`
	Data   binanceTradeMsg `json:"data"`
}

type binanceTradeMsg struct {
	Event     string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	TradeTime int64  `json:"T"`
}

func (f *TradeFeed) Start(ctx context.Context) (<-chan []port.Tick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return nil, errors.New("binance feed already started")
	}

	wsURL, names, err := buildCombinedURL(f.wsURL, f.symbols)
	if err != nil {
		return nil, err
	}

	cctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})
	f.started = true

	out := make(chan []port.Tick, 1024)
	go f.run(cctx, wsURL, names, out)
	return out, nil
}

// Stop cancels the connection loop and waits for it to exit.
func (f *TradeFeed) Stop() error {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// buildCombinedURL returns the stream URL and a map from exchange symbol
// (upper case, no prefix) to the configured symbol.
func buildCombinedURL(base string, symbols []string) (string, map[string]string, error) {
	if base == "" {
		return "", nil, errors.New("binance ws_base empty")
	}

	names := make(map[string]string, len(symbols))
	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		raw := s
		if i := strings.LastIndex(raw, ":"); i >= 0 {
			raw = raw[i+1:]
		}
		if raw == "" {
			continue
		}
		if _, ok := names[raw]; ok {
			continue
		}
		names[raw] = s
		streams = append(streams, fmt.Sprintf("%s@trade", strings.ToLower(raw)))
	}
	if len(streams) == 0 {
		return "", nil, errors.New("no valid symbols")
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", nil, err
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + strings.Join(streams, "/")
	return u.String(), names, nil
}

func (f *TradeFeed) run(ctx context.Context, wsURL string, names map[string]string, out chan<- []port.Tick) {
	defer close(f.done)
	defer close(out)
	defer metrics.SetFeedState(Name, 3)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		metrics.SetFeedState(Name, 1)
		log.Info().Str("feed", Name).Str("url", wsURL).Msg("ws connecting")
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		conn, _, err := websocket.DefaultDialer.DialContext(cctx, wsURL, nil)
		cancel()
		if err == nil {
			metrics.SetFeedState(Name, 2)
			log.Info().Str("feed", Name).Msg("ws connected")

			err = readLoop(ctx, conn, func(b []byte) {
				if batch := decode(b, names); len(batch) > 0 {
					select {
					case out <- batch:
					case <-ctx.Done():
					}
				}
			})
			_ = conn.Close()
		}

		if ctx.Err() != nil {
			return
		}

		metrics.SetFeedState(Name, 0)
		metrics.RecordFeedReconnect(Name)
		log.Warn().Str("feed", Name).Err(err).Dur("delay", f.delay).Msg("ws disconnected, reconnecting")

		timer := time.NewTimer(f.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func decode(b []byte, names map[string]string) []port.Tick {
	var msg binanceCombined
	if err := json.Unmarshal(b, &msg); err != nil {
		log.Error().Str("feed", Name).Err(err).Msg("json unmarshal failed")
		return nil
	}
	if msg.Data.Event != "trade" {
		log.Debug().Str("feed", Name).Str("stream", msg.Stream).Msg("non-trade message")
		return nil
	}

	raw := strings.ToUpper(msg.Data.Symbol)
	px, err := strconv.ParseFloat(strings.TrimSpace(msg.Data.Price), 64)
	if raw == "" || err != nil {
		return nil
	}
	sym, ok := names[raw]
	if !ok {
		sym = raw
	}
	return []port.Tick{{Symbol: sym, Price: px, Ts: msg.Data.TradeTime}}
}

func readLoop(ctx context.Context, conn *websocket.Conn, onMsg func([]byte)) error {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(25 * time.Second)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			onMsg(b)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		}
	}
}

var _ port.TradeFeed = (*TradeFeed)(nil)
