// Package session runs one connected peer: it reads chunks from the
// transport, reassembles frames, hands packets to the router and drains an
// outbound queue so that a slow peer never stalls anyone else.
package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mossy-p/snp-signaling/internal/identity"
	"github.com/mossy-p/snp-signaling/internal/metrics"
	"github.com/mossy-p/snp-signaling/internal/protocol"
	"github.com/mossy-p/snp-signaling/internal/router"
	"github.com/mossy-p/snp-signaling/internal/transport"
)

const DefaultQueueSize = 256

var (
	ErrClosed    = errors.New("session closed")
	ErrQueueFull = errors.New("send queue full")
)

// Transport is a connected byte stream delivering arbitrary chunks.
type Transport interface {
	Read() ([]byte, error)
	Write([]byte) error
	Close() error
	RemoteAddr() string
	Kind() string
}

type Options struct {
	QueueSize     int
	MaxFrameBytes int
}

// Session is the server side of one peer connection.
type Session struct {
	mu          sync.RWMutex
	id          identity.ID
	advertising atomic.Bool

	transport   Transport
	framer      *protocol.Framer
	router      *router.Router
	log         *zap.Logger
	connectedAt time.Time

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a session with a fresh identity. It does nothing until Run.
func New(log *zap.Logger, tr Transport, rt *router.Router, opts Options) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	return &Session{
		id:          identity.New(),
		transport:   tr,
		framer:      protocol.NewFramer(opts.MaxFrameBytes),
		router:      rt,
		log:         log.With(zap.String("remote", tr.RemoteAddr()), zap.String("transport", tr.Kind())),
		connectedAt: time.Now(),
		send:        make(chan []byte, opts.QueueSize),
		done:        make(chan struct{}),
	}
}

func (s *Session) ID() identity.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// SetID changes the session identity. Only the registry calls this, while
// rekeying, so the registry key always matches.
func (s *Session) SetID(id identity.ID) {
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
}

func (s *Session) Advertising() bool      { return s.advertising.Load() }
func (s *Session) SetAdvertising(on bool) { s.advertising.Store(on) }

func (s *Session) RemoteAddr() string     { return s.transport.RemoteAddr() }
func (s *Session) TransportKind() string  { return s.transport.Kind() }
func (s *Session) ConnectedAt() time.Time { return s.connectedAt }

// Done is closed once the session has been closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run registers the session, tells the peer its identity and processes
// incoming data until the transport fails, Close is called or ctx ends.
// The registry entry is removed before Run returns.
func (s *Session) Run(ctx context.Context) error {
	reg := s.router.Registry()
	if displaced, err := reg.Register(s); err != nil {
		if displaced == nil {
			s.Close()
			return err
		}
		s.log.Warn("fresh identity collided", zap.Error(err))
	}
	m := s.router.Metrics()
	m.SessionOpened()
	s.router.Presence().Joined(s.ID(), s.RemoteAddr())
	s.log.Info("peer connected", zap.String("peer", s.ID().String()))

	defer s.teardown(m)

	if err := s.Send(protocol.Packet{
		PeerID: identity.Server,
		Type:   protocol.ServerSetID,
		Data:   s.ID().String(),
	}); err != nil {
		return err
	}

	go s.writePump()
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()

	return s.readLoop()
}

func (s *Session) teardown(m *metrics.Metrics) {
	s.Close()
	id := s.ID()
	if !s.router.Registry().Remove(s) {
		s.log.Debug("registry entry already gone", zap.String("peer", id.String()))
	} else {
		s.router.Presence().Left(id)
	}
	m.SessionClosed()
	s.log.Info("peer disconnected", zap.String("peer", id.String()))
}

func (s *Session) readLoop() error {
	for {
		chunk, err := s.transport.Read()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}
			if errors.Is(err, io.EOF) || errors.Is(err, transport.ErrClosed) {
				return nil
			}
			return err
		}
		s.Receive(chunk)
	}
}

// Receive feeds one chunk through reassembly and dispatches every complete
// frame in order. Bad frames are logged and skipped.
func (s *Session) Receive(chunk []byte) {
	frames, err := s.framer.Feed(chunk)
	if err != nil {
		s.router.Metrics().Drop(metrics.DropTooLarge)
		s.log.Warn("discarding oversized partial frame", zap.String("peer", s.ID().String()), zap.Error(err))
	}
	for _, frame := range frames {
		pkt, err := protocol.Decode(frame)
		if err != nil {
			s.router.Metrics().Drop(metrics.DropMalformed)
			s.log.Warn("dropping frame", zap.String("peer", s.ID().String()), zap.Error(err))
			continue
		}
		if err := s.router.Dispatch(s, pkt); err != nil {
			s.log.Warn("packet dropped",
				zap.String("peer", s.ID().String()),
				zap.Stringer("type", pkt.Type),
				zap.Error(err))
		}
	}
}

// Send queues pkt for delivery without blocking.
func (s *Session) Send(pkt protocol.Packet) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	b, err := protocol.Encode(pkt)
	if err != nil {
		return err
	}
	select {
	case s.send <- b:
		return nil
	default:
		s.router.Metrics().Drop(metrics.DropQueueFull)
		return ErrQueueFull
	}
}

func (s *Session) writePump() {
	for {
		select {
		case b := <-s.send:
			if err := s.transport.Write(b); err != nil {
				s.log.Warn("write failed", zap.String("peer", s.ID().String()), zap.Error(err))
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// Close shuts the transport down. The read loop then exits and Run
// unregisters the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.transport.Close()
	})
}
