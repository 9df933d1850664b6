// Package realtime implements the websocket fan-out channel for post-change
// events. A single Hub is constructed at server start, handed to the services
// that emit events, and torn down with the server.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/dmitrijs2005/feedstream/internal/logging"
	"github.com/dmitrijs2005/feedstream/internal/server/models"
	"github.com/gorilla/websocket"
)

// Event names carried in the envelope.
const EventPosts = "posts"

// Actions for post-change events.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// PostEvent is the payload broadcast to every connected client after a
// successful post mutation. Either Post or PostID is set, never both.
type PostEvent struct {
	Action string       `json:"action"`
	Post   *models.Post `json:"post,omitempty"`
	PostID string       `json:"postId,omitempty"`
}

type envelope struct {
	Event string    `json:"event"`
	Data  PostEvent `json:"data"`
}

// wsConn is the slice of *websocket.Conn the hub needs; tests substitute a fake.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	Close() error
}

type client struct {
	conn wsConn
	mu   sync.Mutex // serializes writes to the connection
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub keeps the set of currently connected realtime clients and fans events
// out to all of them. Events are ephemeral: no persistence, no retry, no
// backfill for clients that connect later.
type Hub struct {
	logger   logging.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub constructs an empty hub. It must be created before any handler that
// emits events starts serving.
func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		logger: logger.With("module", "realtime"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeWS upgrades the request to a websocket connection and keeps it in the
// hub until the peer disconnects or the hub shuts down.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	c := h.add(conn)
	if c == nil {
		_ = conn.Close()
		return
	}
	h.logger.Info(r.Context(), "client connected", "clients", h.ClientCount())

	// Read loop: inbound messages are ignored, but reading is what detects
	// a closed peer.
	go h.readLoop(c)
}

func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *Hub) add(conn wsConn) *client {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	c := &client{conn: conn}
	h.clients[c] = struct{}{}
	return c
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if present {
		_ = c.conn.Close()
	}
}

// ClientCount reports the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast delivers the event to every connected client, including the one
// whose action triggered it. Clients that fail the write are dropped.
// Calling Broadcast on an uninitialized hub is a programming error.
func (h *Hub) Broadcast(ev PostEvent) {
	if h == nil {
		panic("realtime: Broadcast called before hub initialization")
	}

	data, err := json.Marshal(envelope{Event: EventPosts, Data: ev})
	if err != nil {
		h.logger.Error(context.Background(), "event marshal failed", "error", err)
		return
	}

	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.write(data); err != nil {
			h.logger.Warn(context.Background(), "client write failed, dropping", "error", err)
			h.remove(c)
		}
	}
}

// Shutdown closes every connection and rejects new ones. Safe to call once
// during server teardown.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range targets {
		_ = c.conn.Close()
	}
}
