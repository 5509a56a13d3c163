package transport

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// WebSocket frames a connection as one gorilla/websocket text message per
// Send/Receive call, upgraded over a standard HTTP connection.
type WebSocket struct {
	conn   *websocket.Conn
	closed bool
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Upgrade promotes an incoming HTTP request to a WebSocket connection,
// the accepted-endpoint half of a TServerSocket field.
func Upgrade(w http.ResponseWriter, r *http.Request) (*WebSocket, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return &WebSocket{conn: conn}, nil
}

// DialWebSocket opens a client connection to a ws:// or wss:// url.
func DialWebSocket(url string) (*WebSocket, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return &WebSocket{conn: conn}, nil
}

func (c *WebSocket) Send(p []byte) error {
	if c.closed {
		return errClosed
	}
	return c.conn.WriteMessage(websocket.TextMessage, p)
}

func (c *WebSocket) Receive() ([]byte, error) {
	if c.closed {
		return nil, errClosed
	}
	_, p, err := c.conn.ReadMessage()
	return p, err
}

func (c *WebSocket) Close() error {
	c.closed = true
	return c.conn.Close()
}
