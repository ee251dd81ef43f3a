// Package client runs an observer world: it applies authoritative state
// received from the server, keeps its tick aligned ahead of the server and
// predicts the transform of the local player.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/config"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/codec"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/observability/log"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/observability/metrics"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/prediction"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/replication"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/system"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/ticksync"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/components"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/physics"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/requests"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/systems"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/transport"
)

var ErrDisconnected = errors.New("disconnected from server")

type Option func(*Client)

// WithClock drives the world from clock instead of wall time.
func WithClock(clock system.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

type Client struct {
	cfg       config.Config
	transport transport.Transport
	local     transport.PeerID
	logger    log.Log
	metrics   *metrics.WorldCollector
	clock     system.Clock

	codecs  *codec.Registry
	world   *system.World
	inbox   *replication.Inbox
	receive *replication.ReceiveSystem
	ticks   *ticksync.TickSync

	lost     chan struct{}
	lostOnce sync.Once
}

// New builds an observer on top of t. local is the peer id the server knows
// this client by; it identifies the player entity to predict.
func New(cfg config.Config, t transport.Transport, local transport.PeerID, logger log.Log, collector *metrics.WorldCollector, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = log.Nop()
	}
	c := &Client{
		cfg:       cfg,
		transport: t,
		local:     local,
		logger:    logger.With(log.String("component", "client"), log.Stringer("peer", local)),
		metrics:   collector,
		inbox:     replication.NewInbox(),
		ticks:     ticksync.New(),
		lost:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	codecs, table, err := components.NewCodecs()
	if err != nil {
		return nil, err
	}
	c.codecs = codecs

	worldOpts := []system.Option{system.WithLogger(logger), system.WithMetrics(collector)}
	if c.clock != nil {
		worldOpts = append(worldOpts, system.WithClock(c.clock))
	}
	c.world = system.NewWorld(system.Config{TickRate: cfg.World.TickRateHz, MaxTick: cfg.World.MaxTick}, worldOpts...)

	c.receive = replication.NewReceiveSystem(
		c.inbox,
		replication.NewMessageCodec(codecs),
		replication.NewConsumer(codecs, table),
		replication.WithLogger(logger), replication.WithMetrics(collector),
	)
	latency, _ := t.(ticksync.LatencyEstimator)
	for _, sys := range []system.System{
		c.receive,
		ticksync.NewSystem(c.ticks, c.receive, latency),
		systems.NewPredictLocalPlayer(local),
		systems.Movement{},
		prediction.NewReconcileSystem(systems.ReconcileTransform(cfg.Client.SnapDistance, cfg.Client.Blend)),
	} {
		if err = c.world.Register(sys); err != nil {
			return nil, fmt.Errorf("register %s: %w", sys.Name(), err)
		}
	}

	t.OnMessageReceived(c.handleMessage)
	t.OnPeerDisconnected(c.handleDisconnected)
	return c, nil
}

func (c *Client) handleMessage(_ transport.PeerID, typ transport.MessageType, payload []byte) {
	switch typ {
	case transport.MessageFullSnapshot, transport.MessageDeltaSnapshot:
		c.inbox.Push(payload)
		c.metrics.SetInboxBacklog(c.inbox.Len())
	default:
		c.logger.Warn("message dropped", log.Stringer("type", typ))
	}
}

func (c *Client) handleDisconnected(peer transport.PeerID) {
	if peer != transport.ServerPeer {
		return
	}
	c.lostOnce.Do(func() {
		c.logger.Warn("server connection lost")
		close(c.lost)
	})
}

// RequestSpawn asks the server for a player entity owned by this peer.
func (c *Client) RequestSpawn(name string, position physics.Vec3) error {
	return c.send(requests.Spawn{Name: name, Position: position})
}

// Shoot asks the server to fire a projectile from the local player.
func (c *Client) Shoot(direction physics.Vec3) error {
	return c.send(requests.Shot{Direction: direction})
}

func (c *Client) send(v any) error {
	typ, payload, err := requests.Encode(v)
	if err != nil {
		return err
	}
	return c.transport.Send(transport.ServerPeer, typ, payload, transport.ReliableOrdered)
}

// Run drives the world until ctx is cancelled, the world fails or the server
// connection is lost. The transport is closed on return.
func (c *Client) Run(ctx context.Context) error {
	if err := c.world.Start(ctx); err != nil {
		return err
	}
	var err error
	select {
	case <-ctx.Done():
	case <-c.world.Done():
	case <-c.lost:
		err = ErrDisconnected
	}
	c.world.Stop()
	if werr := c.world.Wait(); werr != nil {
		err = werr
	}
	if cerr := c.transport.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Step runs one tick by hand. Only valid before Run.
func (c *Client) Step() error { return c.world.Step() }

func (c *Client) World() *system.World { return c.world }

func (c *Client) Codecs() *codec.Registry { return c.codecs }

// TickSync is safe to read while the world runs.
func (c *Client) TickSync() *ticksync.TickSync { return c.ticks }

func (c *Client) Local() transport.PeerID { return c.local }

func (c *Client) Config() config.Config { return c.cfg }

// LocalPlayer returns the replicated player entity owned by this peer. Call
// it from a system or between manual steps.
func (c *Client) LocalPlayer() (*models.Entity, bool) {
	return models.With[components.Player](c.world.Registry()).
		Filter(func(e *models.Entity) bool { return models.Get[components.Player](e).Peer == c.local }).
		First()
}
