// Package registry maps peer identities to live sessions.
package registry

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/mossy-p/snp-signaling/internal/identity"
)

var (
	// ErrDuplicateIdentity is returned alongside a successful insert that
	// displaced another peer holding the same identity.
	ErrDuplicateIdentity = errors.New("identity already registered")
	ErrReservedIdentity  = errors.New("reserved server identity")
)

// Peer is the registry's view of a session. SetID is only called by the
// registry while it holds its lock, so the key and the peer's identity
// change together.
type Peer interface {
	ID() identity.ID
	SetID(identity.ID)
	Advertising() bool
}

// Registry is a concurrency-safe identity to peer map. It does not own the
// peers it holds; entries are added and removed as connections come and go.
type Registry struct {
	mu    sync.RWMutex
	peers map[identity.ID]Peer
}

func New() *Registry {
	return &Registry{
		peers: make(map[identity.ID]Peer),
	}
}

// Register inserts p under its current identity. An existing entry for the
// same identity is overwritten and returned together with
// ErrDuplicateIdentity.
func (r *Registry) Register(p Peer) (Peer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.ID()
	if id.IsServer() {
		return nil, ErrReservedIdentity
	}
	return r.put(id, p)
}

func (r *Registry) put(id identity.ID, p Peer) (Peer, error) {
	prev, exists := r.peers[id]
	r.peers[id] = p
	if exists && prev != p {
		return prev, fmt.Errorf("%w: %s", ErrDuplicateIdentity, id)
	}
	return nil, nil
}

// Unregister removes whatever is stored under id. It reports whether an
// entry existed.
func (r *Registry) Unregister(id identity.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.peers[id]
	delete(r.peers, id)
	return ok
}

// Remove deletes p's entry only if p still owns its identity, so a peer
// displaced by a duplicate cannot evict the new owner when it disconnects.
func (r *Registry) Remove(p Peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.ID()
	if cur, ok := r.peers[id]; ok && cur == p {
		delete(r.peers, id)
		return true
	}
	return false
}

// Rekey moves p from its current identity to id and updates p's identity in
// the same critical section. The old entry is only removed if it belongs to
// p. A peer displaced from id is returned with ErrDuplicateIdentity.
func (r *Registry) Rekey(p Peer, id identity.ID) (Peer, error) {
	if id.IsServer() {
		return nil, ErrReservedIdentity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old := p.ID()
	if cur, ok := r.peers[old]; ok && cur == p {
		delete(r.peers, old)
	}
	p.SetID(id)
	return r.put(id, p)
}

// Lookup returns the peer registered under id. The reserved server identity
// never matches.
func (r *Registry) Lookup(id identity.ID) (Peer, bool) {
	if id.IsServer() {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.peers[id]
	return p, ok
}

// Advertisers returns the identities of all advertising peers except
// exclude, in byte order.
func (r *Registry) Advertisers(exclude identity.ID) []identity.ID {
	r.mu.RLock()
	ids := make([]identity.ID, 0, len(r.peers))
	for id, p := range r.peers {
		if id != exclude && p.Advertising() {
			ids = append(ids, id)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(ids, func(a, b identity.ID) int {
		return bytes.Compare(a[:], b[:])
	})
	return ids
}

// Peers returns a snapshot of every registered peer.
func (r *Registry) Peers() []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	return out
}

// Len returns the number of registered peers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}
