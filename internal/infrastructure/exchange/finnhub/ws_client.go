package finnhub

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"ratecast/internal/application/port"
	"ratecast/internal/infrastructure/metrics"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	Name = "FINNHUB"

	DefaultWsURL          = "wss://ws.finnhub.io"
	DefaultReconnectDelay = 3000 * time.Millisecond
)

// State is the connection state of a TradeFeed.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Conn is the part of *websocket.Conn the feed uses.
type Conn interface {
	WriteJSON(v any) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, rawURL string) (Conn, error)
}

type wsDialer struct {
	d *websocket.Dialer
}

// NewWebsocketDialer returns a Dialer backed by gorilla/websocket.
func NewWebsocketDialer() Dialer {
	return &wsDialer{d: &websocket.Dialer{HandshakeTimeout: 10 * time.Second}}
}

func (w *wsDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	conn, _, err := w.d.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type FeedConfig struct {
	WsURL          string
	Token          string
	Symbols        []string
	ReconnectDelay time.Duration
	Dialer         Dialer
}

type subscribeMsg struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

type tradeMsg struct {
	Type string      `json:"type"`
	Data []tradeData `json:"data,omitempty"`
}

type tradeData struct {
	Symbol string  `json:"s"`
	Price  float64 `json:"p"`
	Ts     int64   `json:"t"`
}

// TradeFeed keeps a single trade stream open and reconnects after a fixed
// delay whenever it drops.
type TradeFeed struct {
	wsURL   string
	token   string
	symbols []string
	delay   time.Duration
	dialer  Dialer

	mu      sync.Mutex
	state   State
	started bool
	conn    Conn
	timer   *time.Timer
	ctx     context.Context
	cancel  context.CancelFunc
	out     chan []port.Tick
	done    chan struct{}
}

func NewTradeFeed(cfg FeedConfig) *TradeFeed {
	f := &TradeFeed{
		wsURL:   strings.TrimSpace(cfg.WsURL),
		token:   strings.TrimSpace(cfg.Token),
		symbols: append([]string(nil), cfg.Symbols...),
		delay:   cfg.ReconnectDelay,
		dialer:  cfg.Dialer,
		done:    make(chan struct{}),
	}
	if f.wsURL == "" {
		f.wsURL = DefaultWsURL
	}
	if f.delay <= 0 {
		f.delay = DefaultReconnectDelay
	}
	if f.dialer == nil {
		f.dialer = NewWebsocketDialer()
	}
	return f
}

func (f *TradeFeed) Name() string { return Name }

func (f *TradeFeed) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// ReconnectPending reports whether a reconnect is scheduled.
func (f *TradeFeed) ReconnectPending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timer != nil
}

// Start opens the connection and returns the batch channel. The channel is
// never closed; consumers select on their own context.
func (f *TradeFeed) Start(ctx context.Context) (<-chan []port.Tick, error) {
	if f.token == "" {
		return nil, port.ErrMissingToken
	}

	f.mu.Lock()
	if f.started {
		out := f.out
		f.mu.Unlock()
		return out, nil
	}
	f.started = true
	f.ctx, f.cancel = context.WithCancel(ctx)
	f.out = make(chan []port.Tick, 256)
	out := f.out
	f.mu.Unlock()

	go func() {
		select {
		case <-f.ctx.Done():
			_ = f.Stop()
		case <-f.done:
		}
	}()

	go f.connect()
	return out, nil
}

// Stop closes the connection and cancels a pending reconnect. Safe to call
// more than once.
func (f *TradeFeed) Stop() error {
	f.mu.Lock()
	if f.state == StateStopped {
		f.mu.Unlock()
		return nil
	}
	f.setState(StateStopped)
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	conn := f.conn
	f.conn = nil
	if f.cancel != nil {
		f.cancel()
	}
	close(f.done)
	f.mu.Unlock()

	log.Info().Str("feed", f.Name()).Msg("ws stopped")
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (f *TradeFeed) connect() {
	f.mu.Lock()
	if f.state == StateStopped {
		f.mu.Unlock()
		return
	}
	f.timer = nil
	f.setState(StateConnecting)
	ctx := f.ctx
	f.mu.Unlock()

	log.Warn().Str("feed", f.Name()).Str("url", f.wsURL).Msg("ws connecting")
	conn, err := f.dialer.Dial(ctx, f.endpoint())
	if err != nil {
		log.Error().Str("feed", f.Name()).Err(err).Msg("ws dial failed")
		f.scheduleReconnect()
		return
	}

	f.mu.Lock()
	if f.state == StateStopped {
		f.mu.Unlock()
		_ = conn.Close()
		return
	}
	f.conn = conn
	f.setState(StateConnected)
	f.mu.Unlock()

	log.Info().Str("feed", f.Name()).Msg("ws connected")

	for _, sym := range f.symbols {
		if err := conn.WriteJSON(subscribeMsg{Type: "subscribe", Symbol: sym}); err != nil {
			f.disconnected(conn, err)
			return
		}
		log.Info().Str("feed", f.Name()).Str("symbol", sym).Msg("subscribed")
	}

	go f.readLoop(conn)
}

func (f *TradeFeed) readLoop(conn Conn) {
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			f.disconnected(conn, err)
			return
		}
		batch := f.decode(b)
		if len(batch) == 0 {
			continue
		}
		select {
		case f.out <- batch:
		case <-f.done:
			return
		}
	}
}

func (f *TradeFeed) decode(b []byte) []port.Tick {
	var msg tradeMsg
	if err := json.Unmarshal(b, &msg); err != nil {
		log.Error().Str("feed", f.Name()).Err(err).Msg("json unmarshal failed")
		return nil
	}
	if msg.Type != "trade" || len(msg.Data) == 0 {
		log.Info().Str("feed", f.Name()).Str("type", msg.Type).RawJSON("msg", b).Msg("non-trade message")
		return nil
	}

	out := make([]port.Tick, 0, len(msg.Data))
	for _, d := range msg.Data {
		out = append(out, port.Tick{Symbol: d.Symbol, Price: d.Price, Ts: d.Ts})
	}
	return out
}

// disconnected tears down conn and schedules one reconnect. Only the first
// call for a given conn has any effect, so an error followed by a close does
// not schedule twice.
func (f *TradeFeed) disconnected(conn Conn, cause error) {
	f.mu.Lock()
	if f.conn != conn {
		f.mu.Unlock()
		return
	}
	f.conn = nil
	f.mu.Unlock()

	_ = conn.Close()
	log.Warn().Str("feed", f.Name()).Err(cause).Msg("ws disconnected, reconnecting")
	f.scheduleReconnect()
}

func (f *TradeFeed) scheduleReconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateStopped || f.timer != nil {
		return
	}
	f.setState(StateDisconnected)
	f.timer = time.AfterFunc(f.delay, f.connect)
	metrics.RecordFeedReconnect(f.Name())
}

// setState must be called with mu held.
func (f *TradeFeed) setState(s State) {
	f.state = s
	metrics.SetFeedState(f.Name(), int(s))
}

func (f *TradeFeed) endpoint() string {
	u, err := url.Parse(f.wsURL)
	if err != nil {
		return f.wsURL + "?token=" + url.QueryEscape(f.token)
	}
	q := u.Query()
	q.Set("token", f.token)
	u.RawQuery = q.Encode()
	return u.String()
}

var _ port.TradeFeed = (*TradeFeed)(nil)
