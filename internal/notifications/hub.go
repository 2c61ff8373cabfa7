package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"citypulse/internal/observability"

	"github.com/gofiber/websocket/v2"
)

var wsLog = observability.NewWSLogger("feed")

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Max connections per client identity.
	maxConnsPerUser = 12

	// Max total connections.
	maxTotalConns = 10000
)

// Client is one websocket session attached to the feed hub.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	UserID string
}

// Hub tracks connected websocket clients and broadcasts feed events to all of
// them. It is the server-side stand-in for the browser storage event: a
// mutation in one session becomes a reload signal in every other.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]map[*Client]struct{}
	totalConns int
}

// NewHub creates an empty feed hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*Client]struct{})}
}

// Register attaches a connection for the given user. It fails when the hub or
// per-user connection limits are reached.
func (h *Hub) Register(userID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalConns >= maxTotalConns {
		return nil, errors.New("server connection limit reached")
	}
	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		return nil, errors.New("user connection limit reached")
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, 64), UserID: userID}
	m[client] = struct{}{}
	h.totalConns++
	observability.WebSocketConnectionsTotal.Inc()
	wsLog.LogConnect(context.Background(), userID)
	return client, nil
}

// Unregister detaches a client and drops its send queue.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.conns[client.UserID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			h.totalConns--
			close(client.send)
			observability.WebSocketConnectionsTotal.Dec()
			wsLog.LogDisconnect(context.Background(), client.UserID, "unregistered")
		}
		if len(m) == 0 {
			delete(h.conns, client.UserID)
		}
	}
}

// Broadcast queues a feed event for every connected client. Clients whose
// queue is full are skipped rather than blocking the broadcaster.
func (h *Hub) Broadcast(ev FeedEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	observability.WebSocketEventsTotal.WithLabelValues(ev.Action).Inc()
	for _, clients := range h.conns {
		for c := range clients {
			select {
			case c.send <- payload:
			default:
				observability.WebSocketBackpressureDrops.WithLabelValues("feed", "send_queue_full").Inc()
			}
		}
	}
}

// ConnectionCount returns the number of attached clients.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// StartWiring subscribes the hub to the notifier's feed channel so events
// published by any process reach this hub's clients.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartSubscriber(ctx, h.Broadcast)
}

// WritePump drains the client's send queue onto the wire. It returns when the
// queue closes or a write fails; the caller owns closing the connection.
func (c *Client) WritePump() {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// ReadPump consumes (and discards) inbound frames so pings and close frames
// are processed, unregistering on disconnect.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
