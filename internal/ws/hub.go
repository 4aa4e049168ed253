package ws

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	sendBuffer   = 256
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

var droppedMessages = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "uptimewatch",
	Subsystem: "ws",
	Name:      "dropped_messages_total",
	Help:      "Transition messages dropped because a client's send queue was full.",
})

func init() {
	prometheus.MustRegister(droppedMessages)
}

// Client is one connected stream subscriber.
type Client struct {
	conn   *websocket.Conn
	remote string
	send   chan Message
	logger *zap.Logger
}

func newClient(conn *websocket.Conn, remote string, logger *zap.Logger) *Client {
	return &Client{
		conn:   conn,
		remote: remote,
		send:   make(chan Message, sendBuffer),
		logger: logger,
	}
}

// Hub fans transition messages out to every connected client. A client
// whose queue is full misses the message; Broadcast never blocks.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds c to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("stream client connected", zap.String("remote", c.remote), zap.Int("clients", n))
}

// Unregister removes c and closes its send queue. Unknown clients are
// ignored.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.logger.Debug("stream client disconnected", zap.String("remote", c.remote), zap.Int("clients", n))
	}
}

// Broadcast queues msg for every client and returns how many accepted it.
func (h *Hub) Broadcast(msg Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients {
		select {
		case c.send <- msg:
			delivered++
		default:
			droppedMessages.Inc()
			h.logger.Warn("stream client queue full, dropping message",
				zap.String("remote", c.remote),
				zap.String("type", string(msg.Type)),
				zap.String("alias", msg.Alias),
			)
		}
	}
	return delivered
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// serve writes queued messages and keepalive pings until ctx ends, the hub
// closes the queue, or a write fails. Pings need a concurrent reader, which
// the caller provides with conn.CloseRead.
func (c *Client) serve(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.write(ctx, msg); err != nil {
				c.logger.Debug("stream write failed", zap.String("remote", c.remote), zap.Error(err))
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.logger.Debug("stream ping failed", zap.String("remote", c.remote), zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) write(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.conn, msg)
}
