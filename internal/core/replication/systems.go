package replication

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/observability/log"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/observability/metrics"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/transport"
)

type options struct {
	logger  log.Log
	metrics *metrics.WorldCollector
}

type Option func(*options)

func WithLogger(logger log.Log) Option {
	return func(o *options) { o.logger = logger }
}

func WithMetrics(collector *metrics.WorldCollector) Option {
	return func(o *options) { o.metrics = collector }
}

func buildOptions(component string, opts []Option) options {
	o := options{logger: log.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With(log.String("component", component))
	return o
}

// ReceiveSystem drains the inbox and applies every message through the
// consumer. It must be registered before any system that reads replicated
// state. Undecodable payloads are returned as errors and stop the world.
type ReceiveSystem struct {
	inbox    *Inbox
	wire     *MessageCodec
	consumer *Consumer
	opts     options
	latest   atomic.Uint64
}

func NewReceiveSystem(inbox *Inbox, wire *MessageCodec, consumer *Consumer, opts ...Option) *ReceiveSystem {
	return &ReceiveSystem{
		inbox:    inbox,
		wire:     wire,
		consumer: consumer,
		opts:     buildOptions("replication.receive", opts),
	}
}

func (s *ReceiveSystem) Name() string {
	return "replication.receive"
}

func (s *ReceiveSystem) Update(registry *models.EntityRegistry, tick uint64, _ time.Duration) error {
	payloads := s.inbox.Drain()
	s.opts.metrics.SetInboxBacklog(len(payloads))

	for _, payload := range payloads {
		msg, err := s.wire.Decode(payload)
		if err != nil {
			return err
		}
		stats, err := s.consumer.Apply(registry, msg)
		if err != nil {
			return err
		}
		s.opts.metrics.ObserveMessage(msg.Full, len(payload))
		s.opts.metrics.CountDeltas(stats.Created, stats.Updated, stats.Destroyed)
		if msg.Tick > s.latest.Load() {
			s.latest.Store(msg.Tick)
		}
		s.opts.logger.Debug("applied world delta",
			log.Tick(tick),
			log.Uint64("server_tick", msg.Tick),
			log.Bool("full", msg.Full),
			log.Int("created", stats.Created),
			log.Int("updated", stats.Updated),
			log.Int("destroyed", stats.Destroyed),
			log.Int("routed", stats.Routed),
		)
	}
	return nil
}

// LatestTick is the highest authoritative tick received so far.
func (s *ReceiveSystem) LatestTick() uint64 {
	return s.latest.Load()
}

// BroadcastSystem publishes the authoritative world. Each run it sends the
// full state to peers that joined since the previous run, then broadcasts
// the incremental message. The incremental message is sent even when empty
// so observers keep receiving the authoritative tick.
type BroadcastSystem struct {
	producer  *Producer
	wire      *MessageCodec
	transport transport.Transport
	opts      options

	mu      sync.Mutex
	pending []transport.PeerID
}

func NewBroadcastSystem(producer *Producer, wire *MessageCodec, t transport.Transport, opts ...Option) *BroadcastSystem {
	return &BroadcastSystem{
		producer:  producer,
		wire:      wire,
		transport: t,
		opts:      buildOptions("replication.broadcast", opts),
	}
}

func (s *BroadcastSystem) Name() string {
	return "replication.broadcast"
}

// Join schedules a full-state send to peer. Safe to call from I/O goroutines.
func (s *BroadcastSystem) Join(peer transport.PeerID) {
	s.mu.Lock()
	s.pending = append(s.pending, peer)
	s.mu.Unlock()
}

// Leave cancels a pending full-state send.
func (s *BroadcastSystem) Leave(peer transport.PeerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.pending {
		if p == peer {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

func (s *BroadcastSystem) Update(registry *models.EntityRegistry, tick uint64, _ time.Duration) error {
	s.mu.Lock()
	joined := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(joined) > 0 {
		full, err := s.producer.FullState(registry, tick)
		if err != nil {
			return err
		}
		data, err := s.wire.Encode(full)
		if err != nil {
			return err
		}
		for _, peer := range joined {
			if err = s.transport.Send(peer, transport.MessageFullSnapshot, data, transport.ReliableOrdered); err != nil {
				s.opts.logger.Warn("full state send failed", log.Stringer("peer", peer), log.Error(err))
				continue
			}
			s.opts.metrics.ObserveMessage(true, len(data))
		}
	}

	msg, err := s.producer.Produce(registry, tick)
	if err != nil {
		return err
	}
	data, err := s.wire.Encode(msg)
	if err != nil {
		return err
	}
	created, modified, destroyed := msg.Counts()
	s.opts.metrics.CountDeltas(created, modified, destroyed)

	if err = s.transport.Broadcast(transport.MessageDeltaSnapshot, data, transport.ReliableOrdered); err != nil {
		s.opts.logger.Warn("delta broadcast failed", log.Tick(tick), log.Error(err))
		return nil
	}
	s.opts.metrics.ObserveMessage(false, len(data))
	return nil
}
