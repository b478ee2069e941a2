package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ratecast/internal/domain/model"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshots() *model.Snapshots {
	s := model.NewSnapshots()
	s.Put(model.PairSnapshot{Pair: "ETH/BTC", HourlyAverage: 0.3, Rates: []model.RatePoint{{Rate: 0.3, Timestamp: 1}}})
	return s
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestHubPublishReachesAllSubscribers(t *testing.T) {
	hub := NewHub("", 0)
	srv := httptest.NewServer(NewRouter(hub))
	defer srv.Close()
	defer hub.Close()

	a := dial(t, srv)
	defer a.Close()
	b := dial(t, srv)
	defer b.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), testSnapshots()))

	for _, c := range []*websocket.Conn{a, b} {
		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := c.ReadMessage()
		require.NoError(t, err)

		var env struct {
			Topic string                     `json:"topic"`
			Data  map[string]json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg, &env))
		assert.Equal(t, "rates", env.Topic)
		assert.JSONEq(t, `{"hourlyAverage":0.3,"rates":[{"rate":0.3,"timestamp":1}]}`, string(env.Data["ETH/BTC"]))
	}
}

func TestHubPublishWithInfiniteRate(t *testing.T) {
	hub := NewHub("", 0)
	srv := httptest.NewServer(NewRouter(hub))
	defer srv.Close()
	defer hub.Close()

	c := dial(t, srv)
	defer c.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	snaps := testSnapshots()
	snaps.Put(model.PairSnapshot{Pair: "ETH/USDC", HourlyAverage: math.Inf(1), Rates: []model.RatePoint{{Rate: math.Inf(1), Timestamp: 1}}})
	require.NoError(t, hub.Publish(context.Background(), snaps))

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := c.ReadMessage()
	require.NoError(t, err)

	var env struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg, &env))
	assert.JSONEq(t, `{"hourlyAverage":0.3,"rates":[{"rate":0.3,"timestamp":1}]}`, string(env.Data["ETH/BTC"]))
	assert.JSONEq(t, `{"hourlyAverage":null,"rates":[{"rate":null,"timestamp":1}]}`, string(env.Data["ETH/USDC"]))
}

func TestHubLateSubscriberGetsNothingRetroactive(t *testing.T) {
	hub := NewHub("rates", 4)
	srv := httptest.NewServer(NewRouter(hub))
	defer srv.Close()
	defer hub.Close()

	require.NoError(t, hub.Publish(context.Background(), testSnapshots()))

	c := dial(t, srv)
	defer c.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	_ = c.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	_, _, err := c.ReadMessage()
	var netErr interface{ Timeout() bool }
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "expected read timeout, got %v", err)
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub("rates", 1)
	c := &client{id: "slow", send: make(chan []byte, 1), hub: hub}
	hub.clients[c] = struct{}{}

	hub.Broadcast([]byte("one"))
	hub.Broadcast([]byte("two"))

	assert.Equal(t, 1, len(c.send))
	assert.Equal(t, "one", string(<-c.send))
}

func TestHubRemovesDisconnectedSubscriber(t *testing.T) {
	hub := NewHub("rates", 4)
	srv := httptest.NewServer(NewRouter(hub))
	defer srv.Close()

	c := dial(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Close())
	assert.NoError(t, hub.Publish(context.Background(), testSnapshots()))
}

func TestRouterHealthAndMetrics(t *testing.T) {
	srv := httptest.NewServer(NewRouter(NewHub("", 0)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "ratecast_broadcast_clients")
}

type recordingPublisher struct {
	calls int
	err   error
}

func (p *recordingPublisher) Publish(ctx context.Context, snaps *model.Snapshots) error {
	p.calls++
	return p.err
}

func TestFanoutPublishesToAllAndReturnsFirstError(t *testing.T) {
	first := errors.New("first")
	a := &recordingPublisher{}
	b := &recordingPublisher{err: first}
	c := &recordingPublisher{err: errors.New("second")}

	f := NewFanout(a, nil, b, c)
	assert.Equal(t, 3, f.Len())

	err := f.Publish(context.Background(), testSnapshots())
	assert.ErrorIs(t, err, first)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1, c.calls)
}
