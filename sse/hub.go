package sse

import (
	"path/filepath"
	"sync"

	"github.com/kbukum/melos/logger"
)

// Frame is one SSE message. Event becomes the "event:" line and is omitted
// when empty.
type Frame struct {
	Event string
	Data  []byte
}

// Client is a connected SSE consumer.
type Client struct {
	id     string
	frames chan Frame
	log    *logger.Logger
}

// clientBuffer bounds how far a client may fall behind before frames are
// dropped.
const clientBuffer = 256

// NewClient creates a client with the given ID.
func NewClient(id string) *Client {
	return &Client{
		id:     id,
		frames: make(chan Frame, clientBuffer),
		log:    logger.Get(logger.ComponentSSE),
	}
}

// ID returns the client's identifier.
func (c *Client) ID() string { return c.id }

// Frames returns the channel the client's frames are delivered on. It is
// closed when the client is unregistered or the hub stops.
func (c *Client) Frames() <-chan Frame { return c.frames }

// Send queues a frame and reports false when the client is too slow to
// keep up.
func (c *Client) Send(f Frame) bool {
	select {
	case c.frames <- f:
		return true
	default:
		c.log.Warn("client buffer full, dropping frame", map[string]interface{}{
			"client_id": c.id,
		})
		return false
	}
}

func (c *Client) close() {
	close(c.frames)
}

// Broadcaster sends frames to every client whose ID matches a glob.
type Broadcaster interface {
	Broadcast(pattern string, f Frame)
}

type message struct {
	pattern string
	frame   Frame
}

// Hub manages client connections and fans frames out to them. All map
// mutations happen on the Run goroutine.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	log        *logger.Logger
}

var _ Broadcaster = (*Hub)(nil)

// NewHub creates a hub. Call Run before registering clients.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, clientBuffer),
		done:       make(chan struct{}),
		log:        logger.Get(logger.ComponentSSE),
	}
}

// Run is the hub's event loop. It blocks until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client registered", logger.Fields("client_id", c.id, logger.FieldCount, n))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				c.close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client unregistered", logger.Fields("client_id", c.id, logger.FieldCount, n))

		case m := <-h.broadcast:
			h.deliver(m)
		}
	}
}

// Stop closes every client and makes Run return. It is safe to call more
// than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
	}
}

// Register adds a client. It returns false if the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its frame channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues f for every client whose ID matches pattern. Frames
// sent after Stop are discarded.
func (h *Hub) Broadcast(pattern string, f Frame) {
	select {
	case h.broadcast <- message{pattern: pattern, frame: f}:
	case <-h.done:
	}
}

func (h *Hub) deliver(m message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for id, c := range h.clients {
		matched, err := filepath.Match(m.pattern, id)
		if err != nil {
			h.log.Error("invalid client pattern", logger.ErrorFields("broadcast", err))
			return
		}
		if matched && c.Send(m.frame) {
			sent++
		}
	}
	h.log.Debug("frame delivered", logger.Fields(
		"pattern", m.pattern,
		"event", m.frame.Event,
		logger.FieldCount, sent,
	))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ClientIDs returns the IDs of connected clients in no particular order.
func (h *Hub) ClientIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}
