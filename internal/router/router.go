// Package router decides what happens to each decoded signaling packet:
// a state change on the sending session, an advertiser listing, an echo,
// or a relay to the addressed peer.
package router

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mossy-p/snp-signaling/internal/identity"
	"github.com/mossy-p/snp-signaling/internal/metrics"
	"github.com/mossy-p/snp-signaling/internal/protocol"
	"github.com/mossy-p/snp-signaling/internal/registry"
)

var (
	ErrUnknownDestination = errors.New("destination not connected")
	ErrServerAddressed    = errors.New("packet addressed to server is not handled")
	ErrInvalidIdentity    = errors.New("requested identity is invalid")
	ErrNotDeliverable     = errors.New("registered peer cannot receive packets")
)

// Peer is a session as seen by the router.
type Peer interface {
	registry.Peer
	SetAdvertising(bool)
	RemoteAddr() string
	Send(protocol.Packet) error
}

// Presence receives membership changes for external observers. Calls must
// not block.
type Presence interface {
	Joined(id identity.ID, remote string)
	Left(id identity.ID)
	Rekeyed(old, id identity.ID, remote string, advertising bool)
	Advertising(id identity.ID, on bool)
}

type nopPresence struct{}

func (nopPresence) Joined(identity.ID, string)                     {}
func (nopPresence) Left(identity.ID)                               {}
func (nopPresence) Rekeyed(identity.ID, identity.ID, string, bool) {}
func (nopPresence) Advertising(identity.ID, bool)                  {}

// Options holds optional collaborators.
type Options struct {
	Metrics  *metrics.Metrics
	Presence Presence
}

// Router is stateless between calls; every decision depends only on the
// registry, the sending peer and the packet.
type Router struct {
	log      *zap.Logger
	registry *registry.Registry
	metrics  *metrics.Metrics
	presence Presence
}

func New(log *zap.Logger, reg *registry.Registry, opts Options) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	if reg == nil {
		reg = registry.New()
	}
	r := &Router{
		log:      log,
		registry: reg,
		metrics:  opts.Metrics,
		presence: opts.Presence,
	}
	if r.presence == nil {
		r.presence = nopPresence{}
	}
	return r
}

// Registry returns the registry the router resolves destinations in.
func (r *Router) Registry() *registry.Registry {
	return r.registry
}

// Presence returns the configured presence observer.
func (r *Router) Presence() Presence {
	return r.presence
}

// Metrics returns the configured metrics, which may be nil.
func (r *Router) Metrics() *metrics.Metrics {
	return r.metrics
}

// Dispatch handles one packet received from from. The returned error
// describes why the packet was dropped; it never requires closing the
// connection.
func (r *Router) Dispatch(from Peer, pkt protocol.Packet) error {
	if pkt.Type.Known() {
		r.metrics.Frame(pkt.Type.String())
	} else {
		r.metrics.Frame("UNKNOWN")
	}

	switch pkt.Type {
	case protocol.ServerSetID:
		return r.setID(from, pkt)
	case protocol.StartAdvertising:
		r.setAdvertising(from, true)
		return nil
	case protocol.StopAdvertising:
		r.setAdvertising(from, false)
		return nil
	case protocol.RequestAdvertisers:
		return r.listAdvertisers(from)
	default:
		if pkt.PeerID.IsServer() {
			return r.toServer(from, pkt)
		}
		return r.relay(from, pkt)
	}
}

func (r *Router) setID(from Peer, pkt protocol.Packet) error {
	id, err := identity.Parse(pkt.Data)
	if err != nil {
		r.metrics.Drop(metrics.DropInvalidIdentity)
		return fmt.Errorf("%w: %w", ErrInvalidIdentity, err)
	}
	if id.IsServer() {
		r.metrics.Drop(metrics.DropReserved)
		return fmt.Errorf("%w: %w", ErrInvalidIdentity, registry.ErrReservedIdentity)
	}

	old := from.ID()
	if old == id {
		return nil
	}
	displaced, err := r.registry.Rekey(from, id)
	if err != nil && !errors.Is(err, registry.ErrDuplicateIdentity) {
		r.metrics.Drop(metrics.DropReserved)
		return err
	}
	if displaced != nil {
		r.log.Warn("identity taken over",
			zap.String("peer", id.String()),
			zap.String("previous", old.String()),
			zap.Error(err))
	}
	r.presence.Rekeyed(old, id, from.RemoteAddr(), from.Advertising())
	r.log.Info("peer changed identity", zap.String("previous", old.String()), zap.String("peer", id.String()))
	return nil
}

func (r *Router) setAdvertising(from Peer, on bool) {
	from.SetAdvertising(on)
	r.presence.Advertising(from.ID(), on)
	if on {
		r.log.Info("peer started advertising", zap.String("peer", from.ID().String()))
	} else {
		r.log.Info("peer stopped advertising", zap.String("peer", from.ID().String()))
	}
}

func (r *Router) listAdvertisers(from Peer) error {
	ids := r.registry.Advertisers(from.ID())
	if len(ids) == 0 {
		return nil
	}
	r.log.Debug("sending advertisers", zap.String("peer", from.ID().String()), zap.Int("count", len(ids)))
	return from.Send(protocol.Packet{
		PeerID: identity.Server,
		Type:   protocol.RequestAdvertisers,
		Data:   identity.Join(ids),
	})
}

func (r *Router) toServer(from Peer, pkt protocol.Packet) error {
	if pkt.Type == protocol.ServerEcho {
		return from.Send(protocol.Packet{
			PeerID: identity.Server,
			Type:   protocol.ServerEcho,
			Data:   pkt.Data,
		})
	}
	r.metrics.Drop(metrics.DropReserved)
	return fmt.Errorf("%w: %s", ErrServerAddressed, pkt.Type)
}

func (r *Router) relay(from Peer, pkt protocol.Packet) error {
	dest := pkt.PeerID
	target, ok := r.registry.Lookup(dest)
	if !ok {
		r.metrics.Drop(metrics.DropUnknownDestination)
		return fmt.Errorf("%w: %s", ErrUnknownDestination, dest)
	}
	peer, ok := target.(Peer)
	if !ok {
		r.metrics.Drop(metrics.DropUnknownDestination)
		return fmt.Errorf("%w: %s", ErrNotDeliverable, dest)
	}

	out := pkt.WithPeer(from.ID())
	if err := peer.Send(out); err != nil {
		return fmt.Errorf("relay to %s: %w", dest, err)
	}
	r.metrics.Relayed()
	r.log.Debug("relayed",
		zap.String("from", out.PeerID.String()),
		zap.String("to", dest.String()),
		zap.Stringer("type", pkt.Type))
	return nil
}
