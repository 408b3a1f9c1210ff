// Package ws pushes dashboard state changes to connected browsers over
// WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/aimboard/aimboard/pkg/logger"
	"github.com/aimboard/aimboard/pkg/metrics"
)

// Event types broadcast to dashboard clients.
const (
	EventEstimateUpdated    = "estimate-updated"
	EventSessionUpdated     = "session-updated"
	EventRankedStateChanged = "ranked-state-changed"
)

// defaultSendBuffer is how many pending events a client may lag behind
// before it is disconnected.
const defaultSendBuffer = 64

// The dashboard is served from localhost and packaged shells alike, so
// origin checks stay open.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is the envelope every broadcast wraps: a type tag plus the
// type-specific payload.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Hub tracks connected dashboard clients and fans events out to them.
// Broadcast never blocks on a client: one with a full queue is dropped
// rather than allowed to stall the rest.
type Hub struct {
	log    logger.Logger
	buffer int

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		log:     logger.Get().Named("ws"),
		buffer:  defaultSendBuffer,
		clients: make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleWS upgrades the request and serves the client until it
// disconnects or falls too far behind.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, h.buffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.UpdateWSClients(n)
	h.log.Debug(r.Context(), "websocket client connected", logger.Int("clients", n))

	go c.writer()
	c.reader(h)
}

// Broadcast fans one event out to every connected client.
func (h *Hub) Broadcast(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error(ctx, "encode event payload", logger.String("event", eventType), logger.Error(err))
		return
	}
	out, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		h.log.Error(ctx, "encode event envelope", logger.String("event", eventType), logger.Error(err))
		return
	}

	h.mu.Lock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- out:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.log.Warn(ctx, "dropping slow websocket client", logger.String("event", eventType))
		h.drop(c)
	}
	metrics.RecordBroadcast()
}

// drop unregisters a client and closes its queue. Safe to call twice;
// only the call that removes the map entry closes the channel.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	close(c.send)
	metrics.UpdateWSClients(n)
}

// ClientCount reports how many dashboards are connected.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects future connections.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		close(c.send)
	}
	metrics.UpdateWSClients(0)
}
