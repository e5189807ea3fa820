// Package server accepts peer connections and runs a session for each.
package server

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mossy-p/snp-signaling/internal/registry"
	"github.com/mossy-p/snp-signaling/internal/router"
	"github.com/mossy-p/snp-signaling/internal/session"
)

// Hub starts sessions for accepted transports and tracks them for shutdown.
type Hub struct {
	log    *zap.Logger
	router *router.Router
	opts   session.Options
	wg     sync.WaitGroup
}

func NewHub(log *zap.Logger, rt *router.Router, opts session.Options) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{log: log, router: rt, opts: opts}
}

// Registry returns the registry shared by all sessions of the hub.
func (h *Hub) Registry() *registry.Registry {
	return h.router.Registry()
}

// Serve runs a session on tr and blocks until it ends.
func (h *Hub) Serve(ctx context.Context, tr session.Transport) {
	h.wg.Add(1)
	defer h.wg.Done()
	h.run(ctx, tr)
}

// Go runs a session on tr in a new goroutine.
func (h *Hub) Go(ctx context.Context, tr session.Transport) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.run(ctx, tr)
	}()
}

func (h *Hub) run(ctx context.Context, tr session.Transport) {
	s := session.New(h.log, tr, h.router, h.opts)
	if err := s.Run(ctx); err != nil {
		h.log.Debug("session ended with error", zap.String("remote", tr.RemoteAddr()), zap.Error(err))
	}
}

// Wait blocks until every session started by Serve has returned.
func (h *Hub) Wait() {
	h.wg.Wait()
}

// Kick closes the session registered under a peer, if any. The session
// unregisters itself as it stops.
func (h *Hub) Kick(p registry.Peer) bool {
	s, ok := p.(*session.Session)
	if !ok {
		return false
	}
	s.Close()
	return true
}
