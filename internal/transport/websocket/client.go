package websocket

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// Client is one websocket connection bound to a nick
type Client struct {
	id          string
	hub         *Hub
	nick        string
	conn        *websocket.Conn
	send        chan []byte
	connectedAt time.Time
}

// readPump turns inbound frames into lines until the connection drops
func (c *Client) readPump() {
	defer func() {
		c.hub.release(c)
		c.conn.Close()
		c.hub.logger.Info("websocket client disconnected",
			slog.String("client_id", c.id),
			slog.String("nick", c.nick),
			slog.Duration("connection_duration", time.Since(c.connectedAt)),
		)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				c.hub.logger.Warn("websocket read error", slog.String("nick", c.nick), slog.String("error", err.Error()))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.hub.deliver(c.nick, string(message))
	}
}

// writePump sends queued lines, one text frame each, and keeps the
// connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
