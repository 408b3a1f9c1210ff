// Package ws pushes dashboard state changes to connected browsers over
// WebSocket.
package ws

import (
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds a single frame write so a stalled peer cannot pin the
// writer goroutine forever.
const writeWait = 10 * time.Second

// client is one connected dashboard. Events queue on send; the writer
// goroutine drains them onto the socket.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// writer owns the connection's write side. It runs until the send
// channel is closed or a write fails, then closes the socket so the
// reader unblocks.
func (c *client) writer() {
	defer func() { _ = c.conn.Close() }()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// reader consumes inbound frames until the peer goes away. Dashboard
// clients never send anything meaningful; the loop only detects closure.
func (c *client) reader(h *Hub) {
	defer h.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
