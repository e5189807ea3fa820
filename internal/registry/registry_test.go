package registry

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossy-p/snp-signaling/internal/identity"
)

type fakePeer struct {
	mu  sync.Mutex
	id  identity.ID
	adv atomic.Bool
}

func newPeer() *fakePeer { return &fakePeer{id: identity.New()} }

func (p *fakePeer) ID() identity.ID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id
}

func (p *fakePeer) SetID(id identity.ID) {
	p.mu.Lock()
	p.id = id
	p.mu.Unlock()
}

func (p *fakePeer) Advertising() bool { return p.adv.Load() }

func TestRegisterLookupUnregister(t *testing.T) {
	r := New()
	p := newPeer()

	prev, err := r.Register(p)
	require.NoError(t, err)
	assert.Nil(t, prev)

	got, ok := r.Lookup(p.ID())
	require.True(t, ok)
	assert.Same(t, p, got)

	assert.True(t, r.Unregister(p.ID()))
	assert.False(t, r.Unregister(p.ID()), "second unregister is a no-op")

	_, ok = r.Lookup(p.ID())
	assert.False(t, ok)
	assert.Zero(t, r.Len())
}

func TestRegisterDuplicateOverwrites(t *testing.T) {
	r := New()
	a := newPeer()
	b := newPeer()
	b.SetID(a.ID())

	_, err := r.Register(a)
	require.NoError(t, err)

	prev, err := r.Register(b)
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
	assert.Same(t, a, prev)

	got, _ := r.Lookup(a.ID())
	assert.Same(t, b, got)

	assert.False(t, r.Remove(a), "displaced peer must not evict the new owner")
	got, ok := r.Lookup(a.ID())
	require.True(t, ok)
	assert.Same(t, b, got)
}

func TestRegisterSamePeerTwice(t *testing.T) {
	r := New()
	p := newPeer()
	_, err := r.Register(p)
	require.NoError(t, err)
	prev, err := r.Register(p)
	require.NoError(t, err)
	assert.Nil(t, prev)
	assert.Equal(t, 1, r.Len())
}

func TestReservedIdentity(t *testing.T) {
	r := New()
	p := newPeer()
	p.SetID(identity.Server)

	_, err := r.Register(p)
	assert.ErrorIs(t, err, ErrReservedIdentity)

	q := newPeer()
	_, err = r.Register(q)
	require.NoError(t, err)
	_, err = r.Rekey(q, identity.Server)
	assert.ErrorIs(t, err, ErrReservedIdentity)
	assert.NotEqual(t, identity.Server, q.ID())

	_, ok := r.Lookup(identity.Server)
	assert.False(t, ok)
}

func TestRekeyMovesEntry(t *testing.T) {
	r := New()
	p := newPeer()
	_, err := r.Register(p)
	require.NoError(t, err)

	old := p.ID()
	next := identity.New()
	prev, err := r.Rekey(p, next)
	require.NoError(t, err)
	assert.Nil(t, prev)

	assert.Equal(t, next, p.ID())
	_, ok := r.Lookup(old)
	assert.False(t, ok, "old identity must not stay reachable")
	got, ok := r.Lookup(next)
	require.True(t, ok)
	assert.Same(t, p, got)

	assert.True(t, r.Remove(p))
	assert.Zero(t, r.Len())
}

func TestRekeyOntoTakenIdentity(t *testing.T) {
	r := New()
	a, b := newPeer(), newPeer()
	_, _ = r.Register(a)
	_, _ = r.Register(b)

	prev, err := r.Rekey(b, a.ID())
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
	assert.Same(t, a, prev)
	assert.Equal(t, 1, r.Len())

	got, _ := r.Lookup(a.ID())
	assert.Same(t, b, got)
}

func TestAdvertisersExcludesRequester(t *testing.T) {
	r := New()
	a, b, c := newPeer(), newPeer(), newPeer()
	for _, p := range []*fakePeer{a, b, c} {
		_, err := r.Register(p)
		require.NoError(t, err)
	}
	a.adv.Store(true)
	b.adv.Store(true)

	ads := r.Advertisers(a.ID())
	assert.Equal(t, []identity.ID{b.ID()}, ads)

	ads = r.Advertisers(c.ID())
	assert.ElementsMatch(t, []identity.ID{a.ID(), b.ID()}, ads)

	b.adv.Store(false)
	assert.Empty(t, r.Advertisers(a.ID()))
}

func TestRegistryInvariantUnderChurn(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	live := make([]*fakePeer, 64)

	for i := range live {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := newPeer()
			_, _ = r.Register(p)
			for j := 0; j < 10; j++ {
				_, _ = r.Rekey(p, identity.New())
			}
			if i%2 == 0 {
				r.Remove(p)
				return
			}
			live[i] = p
		}(i)
	}
	wg.Wait()

	count := 0
	for _, p := range live {
		if p == nil {
			continue
		}
		count++
		got, ok := r.Lookup(p.ID())
		require.True(t, ok)
		assert.Same(t, p, got)
	}
	assert.Equal(t, count, r.Len())
	for _, p := range r.Peers() {
		got, _ := r.Lookup(p.ID())
		assert.Same(t, p, got)
	}
}
