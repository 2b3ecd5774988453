package websocket

import (
	"github.com/gofiber/websocket/v2"
)

const sendBuffer = 64

// ServeWs attaches a connection to the session's stream and blocks until it closes.
func ServeWs(hub *Hub, conn *websocket.Conn, sessionID string) {
	client := &Client{Hub: hub, Conn: conn, SessionID: sessionID, Send: make(chan []byte, sendBuffer)}
	if !hub.join(client) {
		conn.Close()
		return
	}
	client.serve()
}
