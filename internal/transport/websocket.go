package transport

import (
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// WebSocket carries the same delimited stream inside WebSocket messages.
// Each message is one chunk; a frame may span messages.
type WebSocket struct {
	conn      *websocket.Conn
	done      chan struct{}
	closeOnce sync.Once
}

// NewWebSocket wraps an upgraded connection and starts its keepalive.
func NewWebSocket(conn *websocket.Conn) *WebSocket {
	w := &WebSocket{
		conn: conn,
		done: make(chan struct{}),
	}
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go w.keepalive()
	return w
}

func (w *WebSocket) keepalive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// WriteControl may run concurrently with the session's writer.
			if err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				w.Close()
				return
			}
		case <-w.done:
			return
		}
	}
}

func (w *WebSocket) Read() ([]byte, error) {
	_, message, err := w.conn.ReadMessage()
	if err != nil {
		select {
		case <-w.done:
			return nil, ErrClosed
		default:
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
			return nil, io.EOF
		}
		return nil, err
	}
	return message, nil
}

func (w *WebSocket) Write(b []byte) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.TextMessage, b)
}

func (w *WebSocket) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		_ = w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		err = w.conn.Close()
	})
	return err
}

func (w *WebSocket) RemoteAddr() string {
	return w.conn.RemoteAddr().String()
}

func (w *WebSocket) Kind() string { return "ws" }
