// Package websocket carries protocol lines over websocket connections.
// Each connection claims a nick with ?nick= and every text frame it sends
// is treated as lines addressed to the arbiter.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/rpsarbiter/internal/transport"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Send pings with this period, must be less than pongWait
	pingPeriod = 30 * time.Second

	// Largest inbound frame accepted
	maxMessageSize = 4096

	// Buffer size for outgoing lines
	sendBufferSize = 256
)

// ErrBufferFull is returned when a client is not draining its replies
var ErrBufferFull = errors.New("client send buffer full")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub tracks one connection per nick and implements transport.Transport
type Hub struct {
	identity string
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[string]*Client
	handler transport.LineHandler
	ctx     context.Context
}

// Ensure Hub implements the interface
var _ transport.Transport = (*Hub)(nil)

// NewHub creates a hub that delivers lines addressed to identity
func NewHub(identity string, logger *slog.Logger) *Hub {
	return &Hub{
		identity: identity,
		logger:   logger.With(slog.String("component", "websocket")),
		clients:  make(map[string]*Client),
		ctx:      context.Background(),
	}
}

// Run installs handler and blocks until ctx is cancelled, then
// disconnects every client
func (h *Hub) Run(ctx context.Context, handler transport.LineHandler) error {
	h.mu.Lock()
	h.handler = handler
	h.ctx = ctx
	h.mu.Unlock()
	h.logger.Info("websocket hub started")

	<-ctx.Done()

	h.mu.Lock()
	count := len(h.clients)
	for nick, c := range h.clients {
		close(c.send)
		delete(h.clients, nick)
	}
	h.handler = nil
	h.mu.Unlock()
	h.logger.Info("websocket hub stopped", slog.Int("disconnected_clients", count))
	return ctx.Err()
}

// SendLine queues text for the client holding target
func (h *Hub) SendLine(ctx context.Context, target, text string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[target]
	if !ok {
		return fmt.Errorf("%s: %w", target, transport.ErrNotConnected)
	}
	select {
	case c.send <- []byte(text):
		return nil
	default:
		h.logger.Warn("line dropped - client buffer full", slog.String("nick", target))
		return ErrBufferFull
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Connected reports whether nick has a live connection
func (h *Hub) Connected(nick string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[nick]
	return ok
}

// Running reports whether Run has installed a line handler
func (h *Hub) Running() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.handler != nil
}

// ValidNick reports whether nick can appear as a protocol sender
func ValidNick(nick string) bool {
	if nick == "" || len(nick) > 64 {
		return false
	}
	return !strings.ContainsAny(nick, " |\r\n\t")
}

// ServeHTTP upgrades the request and attaches the connection to its nick
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	nick := r.URL.Query().Get("nick")
	if !ValidNick(nick) || nick == h.identity {
		http.Error(w, "invalid nick", http.StatusBadRequest)
		return
	}

	client := &Client{
		id:          uuid.NewString(),
		hub:         h,
		nick:        nick,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
	}
	if !h.claim(client) {
		http.Error(w, "nick already connected", http.StatusConflict)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.release(client)
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	client.conn = conn

	h.logger.Info("websocket client connected",
		slog.String("client_id", client.id),
		slog.String("nick", nick),
		slog.Int("total_clients", h.ClientCount()),
	)

	go client.writePump()
	go client.readPump()
}

func (h *Hub) claim(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, taken := h.clients[c.nick]; taken {
		return false
	}
	h.clients[c.nick] = c
	return true
}

// release drops the client if it still owns its nick
func (h *Hub) release(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.nick]; ok && cur == c {
		delete(h.clients, c.nick)
		close(c.send)
	}
}

func (h *Hub) deliver(from, text string) {
	h.mu.RLock()
	handler, ctx := h.handler, h.ctx
	h.mu.RUnlock()
	if handler == nil {
		h.logger.Warn("line dropped - hub not running", slog.String("nick", from))
		return
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		handler(ctx, from, h.identity, line)
	}
}
