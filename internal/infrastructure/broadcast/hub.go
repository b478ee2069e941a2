// Package broadcast fans aggregated rate snapshots out to downstream subscribers.
package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"ratecast/internal/application/port"
	"ratecast/internal/domain/model"
	"ratecast/internal/infrastructure/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTopic      = "rates"
	DefaultSendBuffer = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
)

// Envelope is the message written to every subscriber.
type Envelope struct {
	Topic string           `json:"topic"`
	Data  *model.Snapshots `json:"data"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub accepts websocket subscribers and writes each publish to all of them.
// A subscriber whose buffer is full misses that message.
type Hub struct {
	topic      string
	sendBuffer int
	upgrader   websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

func NewHub(topic string, sendBuffer int) *Hub {
	if topic == "" {
		topic = DefaultTopic
	}
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	return &Hub{
		topic:      topic,
		sendBuffer: sendBuffer,
		clients:    make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and registers the subscriber.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
		hub:  h,
	}
	if !h.add(c) {
		_ = conn.Close()
		return
	}
	log.Info().Str("client", c.id).Str("remote", r.RemoteAddr).Msg("subscriber connected")

	go c.writePump()
	go c.readPump()
}

func (h *Hub) Publish(ctx context.Context, snaps *model.Snapshots) error {
	b, err := json.Marshal(Envelope{Topic: h.topic, Data: snaps})
	if err != nil {
		return err
	}
	h.Broadcast(b)
	return nil
}

// Broadcast writes raw bytes to every connected subscriber without blocking.
func (h *Hub) Broadcast(b []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			log.Debug().Str("client", c.id).Msg("subscriber buffer full, message dropped")
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all subscribers and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
	return nil
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	metrics.SetHubClients(len(h.clients))
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	metrics.SetHubClients(len(h.clients))
	h.mu.Unlock()

	log.Info().Str("client", c.id).Msg("subscriber disconnected")
}

// readPump only drains control frames; subscribers do not send data.
func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.remove(c)
				return
			}
		}
	}
}

var _ port.Publisher = (*Hub)(nil)
