package websocket

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait    = 10 * time.Second
	idleTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second

	// Viewers never send payloads; anything bigger than a control frame is a protocol error.
	maxInboundBytes = 512
)

// Client streams one session's transcript events to a single connection.
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	SessionID string

	// Send is owned by the hub, which closes it on removal.
	Send chan []byte
}

// serve blocks until the peer goes away or the hub drops the client.
func (c *Client) serve() {
	closed := make(chan struct{})
	go c.watchClose(closed)

	keepalive := time.NewTicker(pingInterval)
	defer func() {
		keepalive.Stop()
		c.Hub.leave(c)
		c.Conn.Close()
	}()

	for {
		select {
		case <-closed:
			return
		case frame, ok := <-c.Send:
			if !ok {
				c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, frame); err != nil {
				c.Hub.logger.Debug("WebSocket", "Write failed", map[string]interface{}{"session_id": c.SessionID, "error": err.Error()})
				return
			}
		case <-keepalive.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(kind int, payload []byte) error {
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(kind, payload)
}

// watchClose drains control frames so pongs extend the idle deadline.
func (c *Client) watchClose(closed chan<- struct{}) {
	defer close(closed)

	c.Conn.SetReadLimit(maxInboundBytes)
	c.Conn.SetReadDeadline(time.Now().Add(idleTimeout))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(idleTimeout))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Hub.logger.Warn("WebSocket", "Viewer disconnected unexpectedly", map[string]interface{}{"session_id": c.SessionID, "error": err.Error()})
			}
			return
		}
	}
}
