// Package redis mirrors relay membership into Redis so operators and other
// services can see who is connected and who is advertising. The mirror is
// write-only: routing never reads it back.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mossy-p/snp-signaling/internal/identity"
)

const (
	PeersKey       = "signaling:peers"
	AdvertisersKey = "signaling:advertisers"

	opTimeout = 2 * time.Second
)

type opKind int

const (
	opJoin opKind = iota
	opLeave
	opRekey
	opAdvertise
)

type op struct {
	kind   opKind
	id     identity.ID
	old    identity.ID
	remote string
	on     bool
}

// Presence applies membership changes to Redis from a background
// goroutine. Updates are dropped when the queue is full.
type Presence struct {
	client *redis.Client
	log    *zap.Logger
	ops    chan op
}

func NewPresence(client *redis.Client, log *zap.Logger, queue int) *Presence {
	if log == nil {
		log = zap.NewNop()
	}
	if queue <= 0 {
		queue = 1024
	}
	return &Presence{
		client: client,
		log:    log,
		ops:    make(chan op, queue),
	}
}

// Reset clears entries left behind by a previous process.
func (p *Presence) Reset(ctx context.Context) error {
	return p.client.Del(ctx, PeersKey, AdvertisersKey).Err()
}

// Run applies queued updates until ctx is done.
func (p *Presence) Run(ctx context.Context) {
	for {
		select {
		case o := <-p.ops:
			opCtx, cancel := context.WithTimeout(ctx, opTimeout)
			if err := p.apply(opCtx, o); err != nil {
				p.log.Warn("presence update failed", zap.String("peer", o.id.String()), zap.Error(err))
			}
			cancel()
		case <-ctx.Done():
			return
		}
	}
}

func (p *Presence) apply(ctx context.Context, o op) error {
	id := o.id.String()
	switch o.kind {
	case opJoin:
		return p.client.HSet(ctx, PeersKey, id, o.remote).Err()
	case opLeave:
		_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, PeersKey, id)
			pipe.SRem(ctx, AdvertisersKey, id)
			return nil
		})
		return err
	case opRekey:
		old := o.old.String()
		_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, PeersKey, old)
			pipe.SRem(ctx, AdvertisersKey, old)
			pipe.HSet(ctx, PeersKey, id, o.remote)
			if o.on {
				pipe.SAdd(ctx, AdvertisersKey, id)
			}
			return nil
		})
		return err
	case opAdvertise:
		if o.on {
			return p.client.SAdd(ctx, AdvertisersKey, id).Err()
		}
		return p.client.SRem(ctx, AdvertisersKey, id).Err()
	}
	return nil
}

func (p *Presence) enqueue(o op) {
	select {
	case p.ops <- o:
	default:
		p.log.Warn("presence queue full, update dropped", zap.String("peer", o.id.String()))
	}
}

func (p *Presence) Joined(id identity.ID, remote string) {
	p.enqueue(op{kind: opJoin, id: id, remote: remote})
}

func (p *Presence) Left(id identity.ID) {
	p.enqueue(op{kind: opLeave, id: id})
}

func (p *Presence) Rekeyed(old, id identity.ID, remote string, advertising bool) {
	p.enqueue(op{kind: opRekey, id: id, old: old, remote: remote, on: advertising})
}

func (p *Presence) Advertising(id identity.ID, on bool) {
	p.enqueue(op{kind: opAdvertise, id: id, on: on})
}

// Pending returns the number of queued updates.
func (p *Presence) Pending() int {
	return len(p.ops)
}
