package systems

import (
	"time"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/events/bus"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/observability/log"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/components"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/physics"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/requests"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/transport"
)

// Rules are the tunables of player spawning and shooting.
type Rules struct {
	PlayerHealth       int
	PlayerRadius       float64
	ProjectileSpeed    float64
	ProjectileDamage   int
	ProjectileLifetime uint32
}

func DefaultRules() Rules {
	return Rules{
		PlayerHealth:       100,
		PlayerRadius:       0.5,
		ProjectileSpeed:    20,
		ProjectileDamage:   25,
		ProjectileLifetime: 50,
	}
}

// Requests drains the request inbox on the tick thread and turns intents
// into entities.
type Requests struct {
	inbox  *requests.Inbox
	rules  Rules
	logger log.Log
	events bus.EventBus
}

// NewRequests returns the request system. events may be nil.
func NewRequests(inbox *requests.Inbox, rules Rules, logger log.Log, events bus.EventBus) *Requests {
	if logger == nil {
		logger = log.Nop()
	}
	return &Requests{
		inbox:  inbox,
		rules:  rules,
		logger: logger.With(log.String("component", "requests")),
		events: events,
	}
}

func (s *Requests) Name() string { return "requests" }

func (s *Requests) Update(r *models.EntityRegistry, tick uint64, _ time.Duration) error {
	for _, req := range s.inbox.Drain() {
		player, exists := findPlayer(r, req.Peer)
		switch req.Kind {
		case requests.KindSpawn:
			if exists {
				s.logger.Debug("spawn ignored, peer already has a player", log.Tick(tick), log.Stringer("peer", req.Peer))
				continue
			}
			if err := s.spawn(r, tick, req); err != nil {
				return err
			}
		case requests.KindShot:
			if !exists {
				continue
			}
			if err := s.shoot(r, player, req.Shot); err != nil {
				return err
			}
		case requests.KindLeave:
			if !exists {
				continue
			}
			r.DestroyEntity(player.ID())
			if err := publish(s.events, EventPlayerLeft, tick, PlayerLeft{Entity: player.ID(), Peer: req.Peer}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Requests) spawn(r *models.EntityRegistry, tick uint64, req requests.Request) error {
	e := r.CreateEntity()
	for _, c := range []models.Component{
		models.Replicated{},
		components.Player{Peer: req.Peer},
		components.Name{Value: req.Spawn.Name},
		components.Transform{Position: req.Spawn.Position},
		components.Velocity{},
		components.Health{Current: s.rules.PlayerHealth, Max: s.rules.PlayerHealth},
		components.Collider{Radius: s.rules.PlayerRadius},
	} {
		if err := e.Add(c); err != nil {
			return err
		}
	}
	s.logger.Info("player spawned",
		log.Tick(tick),
		log.Stringer("peer", req.Peer),
		log.Int("players", models.With[components.Player](r).Count()),
	)
	return publish(s.events, EventPlayerSpawned, tick, PlayerSpawned{Entity: e.ID(), Peer: req.Peer, Name: req.Spawn.Name})
}

func (s *Requests) shoot(r *models.EntityRegistry, shooter *models.Entity, shot requests.Shot) error {
	dir := shot.Direction.Normalize()
	if dir == (physics.Vec3{}) {
		return nil
	}
	origin, ok := models.TryGet[components.Transform](shooter)
	if !ok {
		return nil
	}
	e := r.CreateEntity()
	for _, c := range []models.Component{
		models.Replicated{},
		origin,
		components.Velocity{Linear: dir.Scale(s.rules.ProjectileSpeed)},
		components.Projectile{
			Owner:     shooter.ID(),
			Damage:    s.rules.ProjectileDamage,
			Remaining: s.rules.ProjectileLifetime,
		},
	} {
		if err := e.Add(c); err != nil {
			return err
		}
	}
	return nil
}

func findPlayer(r *models.EntityRegistry, peer transport.PeerID) (*models.Entity, bool) {
	return models.With[components.Player](r).
		Filter(func(e *models.Entity) bool { return models.Get[components.Player](e).Peer == peer }).
		First()
}
