package server

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/mossy-p/snp-signaling/internal/transport"
)

// TCPServer is the raw stream listener peers connect to.
type TCPServer struct {
	log      *zap.Logger
	hub      *Hub
	listener net.Listener
}

// ListenTCP binds addr.
func ListenTCP(log *zap.Logger, hub *Hub, addr string) (*TCPServer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TCPServer{log: log, hub: hub, listener: ln}, nil
}

// Addr returns the bound address.
func (s *TCPServer) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until ctx is done or the listener is closed.
// Sessions inherit ctx and are closed when it ends.
func (s *TCPServer) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.listener.Close() })
	defer stop()

	var delay time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if delay == 0 {
					delay = 5 * time.Millisecond
				} else {
					delay = min(delay*2, time.Second)
				}
				s.log.Warn("accept failed, retrying", zap.Error(err), zap.Duration("delay", delay))
				time.Sleep(delay)
				continue
			}
			return err
		}
		delay = 0

		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
		}
		s.hub.Go(ctx, transport.NewTCP(conn))
	}
}

func (s *TCPServer) Close() error {
	return s.listener.Close()
}
