package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// WebSocketClient wraps a WebSocket connection for a solve stream.
type WebSocketClient struct {
	conn *websocket.Conn
	mu   sync.Mutex // Serialises writes; gorilla allows one concurrent writer
}

// NewWebSocketClient creates a new WebSocketClient from a WebSocket connection.
// Incoming messages larger than maxMessageSize close the connection.
func NewWebSocketClient(conn *websocket.Conn, maxMessageSize int64) *WebSocketClient {
	if maxMessageSize > 0 {
		conn.SetReadLimit(maxMessageSize)
	}
	return &WebSocketClient{conn: conn}
}

// WriteJSON sends v as one text frame.
func (c *WebSocketClient) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// Drain discards incoming messages until the connection fails or closes.
func (c *WebSocketClient) Drain() {
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

// CloseGracefully sends a normal close frame. The peer's reply ends Drain.
func (c *WebSocketClient) CloseGracefully() {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// Close closes the WebSocket connection.
func (c *WebSocketClient) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the remote address as a string.
func (c *WebSocketClient) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
