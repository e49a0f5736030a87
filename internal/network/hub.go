// Package network implements the observer side of the server: a hub of
// WebSocket clients that race snapshots are fanned out to. The hub is
// strictly downstream of the simulation; a slow or dead client can never
// stall a tick.
package network

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	// Buffer size of 256 prevents blocking on slow clients.
	sendBufferSize = 256

	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
	readLimit    = 512
)

// Hub tracks the set of connected observers and broadcasts to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]bool)}
}

// Audience returns the number of connected observers.
func (h *Hub) Audience() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues data to every connected client. Non-blocking: clients
// whose buffers are full simply miss this update and get the next one.
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		c.Send(data)
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Client is a single connected observer. Each client gets two goroutines:
// one writing queued messages and pings, one draining inbound messages.
type Client struct {
	ws       *websocket.Conn
	hub      *Hub
	sendChan chan []byte
	done     chan struct{}
	once     sync.Once
}

// ServeClient registers a freshly upgraded connection with the hub, sends
// the greeting (the track layout) and starts the client's pump goroutines.
// onMessage receives every inbound text message; it may be nil.
func (h *Hub) ServeClient(ws *websocket.Conn, greeting []byte, onMessage func([]byte)) *Client {
	c := &Client{
		ws:       ws,
		hub:      h,
		sendChan: make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
	h.register(c)
	log.WithField("remote", ws.RemoteAddr().String()).Info("observer connected")

	if greeting != nil {
		c.Send(greeting)
	}

	go c.writePump()
	go c.readPump(onMessage)
	return c
}

// Send queues data for the client. Drops the message if the buffer is full
// so a slow observer never backs up into the broadcast loop.
func (c *Client) Send(data []byte) {
	select {
	case c.sendChan <- data:
	case <-c.done:
	default:
		// Buffer full - the client will catch up on the next update.
	}
}

// Close shuts the connection down. Safe to call multiple times.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		c.hub.unregister(c)
		c.ws.Close()
		log.WithField("remote", c.ws.RemoteAddr().String()).Info("observer disconnected")
	})
}

// writePump sends queued messages and periodic pings to detect dead
// connections.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.Close()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.sendChan:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains inbound messages until the connection dies. Observers are
// read-mostly; the only inbound traffic is the occasional control message.
func (c *Client) readPump(onMessage func([]byte)) {
	defer c.Close()

	c.ws.SetReadLimit(readLimit)
	c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).Debug("observer read error")
			}
			return
		}
		if onMessage != nil {
			onMessage(message)
		}
	}
}
