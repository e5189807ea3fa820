// Package transport adapts byte-stream connections to the chunk-oriented
// interface sessions read from and write to.
package transport

import (
	"errors"
	"net"
	"time"
)

// ReadBufferSize is the largest chunk a TCP transport returns from Read.
const ReadBufferSize = 4096

// DefaultWriteTimeout bounds a single write to a slow peer.
const DefaultWriteTimeout = 10 * time.Second

var ErrClosed = errors.New("transport closed")

// TCP is a raw stream transport. Chunks have no relation to frame
// boundaries.
type TCP struct {
	conn         net.Conn
	buf          []byte
	writeTimeout time.Duration
}

func NewTCP(conn net.Conn) *TCP {
	return &TCP{
		conn:         conn,
		buf:          make([]byte, ReadBufferSize),
		writeTimeout: DefaultWriteTimeout,
	}
}

// Read returns the next chunk received. The slice is owned by the caller.
func (t *TCP) Read() ([]byte, error) {
	n, err := t.conn.Read(t.buf)
	if n > 0 {
		chunk := make([]byte, n)
		copy(chunk, t.buf[:n])
		return chunk, nil
	}
	if errors.Is(err, net.ErrClosed) {
		return nil, ErrClosed
	}
	return nil, err
}

func (t *TCP) Write(b []byte) error {
	if t.writeTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	}
	_, err := t.conn.Write(b)
	return err
}

func (t *TCP) Close() error {
	return t.conn.Close()
}

func (t *TCP) RemoteAddr() string {
	if addr := t.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

func (t *TCP) Kind() string { return "tcp" }
