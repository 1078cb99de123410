package live

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// StreamTransport opens persistent streaming connections to the live feed.
// The production implementation dials a websocket; tests inject a scripted
// fake so the reconnect and fallback logic runs without any network.
type StreamTransport interface {
	Dial(ctx context.Context, url string, header http.Header) (StreamConn, error)
}

// StreamConn is one open streaming connection. ReadMessage blocks until the
// next message, an error, or the peer closes.
type StreamConn interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v interface{}) error
	Close() error
}

const writeDeadline = 10 * time.Second

type wsTransport struct {
	dialer *websocket.Dialer
}

// NewWebSocketTransport returns the gorilla/websocket backed transport.
func NewWebSocketTransport(handshakeTimeout time.Duration) StreamTransport {
	return &wsTransport{
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

func (t *wsTransport) Dial(ctx context.Context, url string, header http.Header) (StreamConn, error) {
	conn, resp, err := t.dialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteJSON(v interface{}) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
