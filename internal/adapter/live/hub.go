// Package live pushes refresh notifications to dashboard pages over websockets.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/couchcryptid/sismos-dashboard/internal/observability"
	"github.com/couchcryptid/sismos-dashboard/internal/pipeline"
)

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512

	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Update is the message sent to pages after every successful refresh. Pages
// re-request their chart data when they receive it.
type Update struct {
	Type      string    `json:"type"`
	FetchedAt time.Time `json:"fetched_at"`
	Count     int       `json:"count"`
	Warnings  []string  `json:"warnings"`
}

// NewUpdate builds the notification for a snapshot.
func NewUpdate(snap *pipeline.Snapshot) Update {
	warnings := snap.Report.Warnings()
	if warnings == nil {
		warnings = []string{}
	}
	return Update{
		Type:      "refresh",
		FetchedAt: snap.FetchedAt,
		Count:     len(snap.Quakes),
		Warnings:  warnings,
	}
}

// Hub tracks connected pages and fans out updates to them. The most recent
// update is replayed to pages as they connect.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	last       []byte
	mu         sync.RWMutex
	logger     *slog.Logger
	metrics    *observability.Metrics
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a Hub. Call Run to start dispatching.
func NewHub(logger *slog.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger,
		metrics:    metrics,
	}
}

// Run dispatches registrations and broadcasts until ctx is cancelled, then
// closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.metrics.LiveClients.Set(0)
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			if h.last != nil {
				c.send <- h.last
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.LiveClients.Set(float64(n))
			h.logger.Debug("live client connected", "clients", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.LiveClients.Set(float64(n))
			h.logger.Debug("live client disconnected", "clients", n)

		case msg := <-h.broadcast:
			h.mu.Lock()
			h.last = msg
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow reader; drop it rather than stall the hub.
					delete(h.clients, c)
					close(c.send)
				}
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.LiveClients.Set(float64(n))
		}
	}
}

// Publish queues an update for every connected page. It never blocks; when
// the queue is full the update is dropped.
func (h *Hub) Publish(u Update) {
	data, err := json.Marshal(u)
	if err != nil {
		h.logger.Error("marshal live update", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("live broadcast queue full, dropping update")
	}
}

// OnRefresh adapts Publish to pipeline.Refresher.Subscribe.
func (h *Hub) OnRefresh(snap *pipeline.Snapshot) {
	h.Publish(NewUpdate(snap))
}

// ClientCount returns the number of connected pages.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a websocket and registers the page.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump discards inbound messages and keeps the read deadline fresh so
// dead peers are noticed.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read failed", "error", err)
			}
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
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
