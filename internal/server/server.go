// Package server hosts the authoritative world: it turns client requests
// into entities, runs the gameplay systems and replicates the result to every
// connected peer.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/config"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/codec"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/events/bus"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/observability/log"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/observability/metrics"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/replication"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/system"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/ticksync"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/ai"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/components"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/requests"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/systems"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/scene"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/transport"
)

const HealthPath = "/healthz"

type options struct {
	clock    system.Clock
	listener net.Listener
	noHTTP   bool
}

type Option func(*options)

// WithClock drives the world from clock instead of wall time.
func WithClock(clock system.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithListener serves HTTP on l instead of listening on the configured
// address.
func WithListener(l net.Listener) Option {
	return func(o *options) { o.listener = l }
}

// WithoutHTTP disables the HTTP listener. Run then only drives the world.
func WithoutHTTP() Option {
	return func(o *options) { o.noHTTP = true }
}

type Server struct {
	cfg       config.Config
	opts      options
	transport transport.Transport
	logger    log.Log
	metrics   *metrics.WorldCollector

	codecs    *codec.Registry
	world     *system.World
	inbox     *requests.Inbox
	events    bus.EventBus
	broadcast *replication.BroadcastSystem
	ticks     *ticksync.TickSync
	mux       *http.ServeMux
}

// New builds the authoritative node on top of t. When t is also an
// http.Handler it is mounted on the configured websocket path.
func New(cfg config.Config, t transport.Transport, logger log.Log, collector *metrics.WorldCollector, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = log.Nop()
	}
	s := &Server{
		cfg:       cfg,
		transport: t,
		logger:    logger.With(log.String("component", "server")),
		metrics:   collector,
		inbox:     requests.NewInbox(),
		events:    bus.New(),
		ticks:     ticksync.NewAuthoritative(),
	}
	for _, opt := range opts {
		opt(&s.opts)
	}

	codecs, _, err := components.NewCodecs()
	if err != nil {
		return nil, err
	}
	s.codecs = codecs

	worldOpts := []system.Option{system.WithLogger(logger), system.WithMetrics(collector)}
	if s.opts.clock != nil {
		worldOpts = append(worldOpts, system.WithClock(s.opts.clock))
	}
	s.world = system.NewWorld(system.Config{TickRate: cfg.World.TickRateHz, MaxTick: cfg.World.MaxTick}, worldOpts...)

	if cfg.Server.ScenePath != "" {
		if err = s.loadScene(cfg.Server.ScenePath); err != nil {
			return nil, err
		}
	}

	wire := replication.NewMessageCodec(codecs)
	s.broadcast = replication.NewBroadcastSystem(
		replication.NewProducer(codecs), wire, t,
		replication.WithLogger(logger), replication.WithMetrics(collector),
	)
	if err = s.registerSystems(); err != nil {
		return nil, err
	}
	if err = s.subscribe(); err != nil {
		return nil, err
	}

	t.OnMessageReceived(s.handleMessage)
	t.OnPeerConnected(s.handleConnected)
	t.OnPeerDisconnected(s.handleDisconnected)

	s.mux = http.NewServeMux()
	if h, ok := t.(http.Handler); ok {
		s.mux.Handle(cfg.Server.WebSocketPath, h)
	}
	if cfg.Server.MetricsPath != "" {
		s.mux.Handle(cfg.Server.MetricsPath, collector.Handler())
	}
	s.mux.HandleFunc(HealthPath, s.handleHealth)
	return s, nil
}

func (s *Server) loadScene(path string) error {
	sc, err := scene.Load(path)
	if err != nil {
		return err
	}
	stats, err := sc.Apply(s.world.Registry(), s.codecs)
	if err != nil {
		return fmt.Errorf("apply scene %s: %w", path, err)
	}
	s.logger.Info("scene loaded", log.String("path", path), log.Int("entities", stats.Created))
	return nil
}

func (s *Server) registerSystems() error {
	rules := s.cfg.Rules
	regs := []struct {
		sys  system.System
		opts []system.RegisterOption
	}{
		{sys: ticksync.NewSystem(s.ticks, ticksync.TickSourceFunc(s.world.Tick), nil)},
		{sys: systems.NewRequests(s.inbox, systems.Rules{
			PlayerHealth:       rules.PlayerHealth,
			PlayerRadius:       rules.PlayerRadius,
			ProjectileSpeed:    rules.ProjectileSpeed,
			ProjectileDamage:   rules.ProjectileDamage,
			ProjectileLifetime: rules.ProjectileLifetime,
		}, s.logger, s.events)},
		{sys: ai.NewBrain(nil), opts: []system.RegisterOption{system.WithInterval(rules.PatrolIntervalTick)}},
		{sys: systems.Patrol{}, opts: []system.RegisterOption{system.WithInterval(rules.PatrolIntervalTick)}},
		{sys: systems.Movement{}},
		{sys: systems.Collision{}},
		{sys: systems.NewDamage(s.logger, s.events)},
		{sys: s.broadcast, opts: []system.RegisterOption{system.WithInterval(s.cfg.Replication.IntervalTicks)}},
	}
	for _, reg := range regs {
		if err := s.world.Register(reg.sys, reg.opts...); err != nil {
			return fmt.Errorf("register %s: %w", reg.sys.Name(), err)
		}
	}
	return nil
}

// subscribe logs gameplay events at info level.
func (s *Server) subscribe() error {
	handlers := map[string]bus.EventHandler{
		systems.EventPlayerSpawned: func(e bus.Event) error {
			ev := e.Data().(systems.PlayerSpawned)
			s.logger.Info("player spawned", log.Tick(e.Tick()), log.Stringer("peer", ev.Peer), log.Stringer("entity", ev.Entity), log.String("name", ev.Name))
			return nil
		},
		systems.EventPlayerLeft: func(e bus.Event) error {
			ev := e.Data().(systems.PlayerLeft)
			s.logger.Info("player left", log.Tick(e.Tick()), log.Stringer("peer", ev.Peer), log.Stringer("entity", ev.Entity))
			return nil
		},
		systems.EventEntityKilled: func(e bus.Event) error {
			ev := e.Data().(systems.EntityKilled)
			s.logger.Info("entity killed", log.Tick(e.Tick()), log.Stringer("entity", ev.Entity), log.Stringer("source", ev.Source))
			return nil
		},
	}
	for typ, h := range handlers {
		if _, err := s.events.Subscribe(typ, h); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleMessage(peer transport.PeerID, typ transport.MessageType, payload []byte) {
	switch typ {
	case transport.MessageSpawnRequest, transport.MessageShotRequest:
	default:
		s.logger.Warn("message dropped", log.Stringer("peer", peer), log.Error(fmt.Errorf("%w: %s", ErrUnexpectedMessage, typ)))
		return
	}
	req, err := requests.Decode(peer, typ, payload)
	if err != nil {
		s.logger.Warn("request dropped", log.Stringer("peer", peer), log.Error(err))
		return
	}
	s.inbox.Push(req)
}

func (s *Server) handleConnected(peer transport.PeerID) {
	s.logger.Info("peer connected", log.Stringer("peer", peer))
	s.broadcast.Join(peer)
}

func (s *Server) handleDisconnected(peer transport.PeerID) {
	s.logger.Info("peer disconnected", log.Stringer("peer", peer))
	s.broadcast.Leave(peer)
	s.inbox.Push(requests.Request{Peer: peer, Kind: requests.KindLeave})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	state := s.world.State()
	if state == system.StateStopped {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_, _ = fmt.Fprintf(w, "%s tick=%d\n", state, s.world.Tick())
}

// Run starts the world and the HTTP listener and blocks until ctx is
// cancelled or the world stops. It returns the error that stopped the world,
// if any.
func (s *Server) Run(ctx context.Context) error {
	var srv *http.Server
	listener := s.opts.listener
	if !s.opts.noHTTP {
		if listener == nil {
			l, err := net.Listen("tcp", s.cfg.Server.ListenAddr)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrListenerFailed, err)
			}
			listener = l
		}
		srv = &http.Server{Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}
	}

	g, ctx := errgroup.WithContext(ctx)
	if err := s.world.Start(ctx); err != nil {
		if listener != nil {
			_ = listener.Close()
		}
		return err
	}
	s.logger.Info("server running", log.String("addr", addrOf(listener)))

	g.Go(s.world.Wait)
	if srv != nil {
		g.Go(func() error {
			if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve http: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-s.world.Done():
		}
		return s.shutdown(srv)
	})
	return g.Wait()
}

func (s *Server) shutdown(srv *http.Server) error {
	var errs []error
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownGrace)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.world.Stop()
	if err := s.transport.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrShutdown, err)
	}
	s.logger.Info("server stopped", log.Tick(s.world.Tick()))
	return nil
}

func addrOf(l net.Listener) string {
	if l == nil {
		return "-"
	}
	return l.Addr().String()
}

// Step runs one tick by hand. Only valid before Run.
func (s *Server) Step() error { return s.world.Step() }

func (s *Server) World() *system.World { return s.world }

// TickSync is the authoritative alignment state: its local tick is always the
// world tick.
func (s *Server) TickSync() *ticksync.TickSync { return s.ticks }

func (s *Server) Codecs() *codec.Registry { return s.codecs }

// Events carries gameplay events. Handlers run on the tick goroutine.
func (s *Server) Events() bus.EventBus { return s.events }

// Handler is the HTTP surface: websocket upgrades, metrics and health.
func (s *Server) Handler() http.Handler { return s.mux }
