package systems

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/events/bus"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/prediction"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/ai"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/components"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/physics"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/requests"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/transport"
)

const dt = 20 * time.Millisecond

func position(e *models.Entity) physics.Vec3 {
	return models.Get[components.Transform](e).Position
}

func TestMovement(t *testing.T) {
	r := models.NewEntityRegistry()
	moving := r.CreateEntity()
	moving.Set(components.Transform{Position: physics.V3(1, 0, 0)})
	moving.Set(components.Velocity{Linear: physics.V3(10, 0, -5)})
	still := r.CreateEntity()
	still.Set(components.Transform{Position: physics.V3(3, 3, 3)})

	require.NoError(t, Movement{}.Update(r, 1, dt))
	assert.InDelta(t, 1.2, position(moving).X, 1e-9)
	assert.InDelta(t, -0.1, position(moving).Z, 1e-9)
	assert.Equal(t, physics.V3(3, 3, 3), position(still))
}

func TestPatrol(t *testing.T) {
	r := models.NewEntityRegistry()
	guard := r.CreateEntity()
	guard.Set(components.AIState{Mode: ai.ModePatrol, Range: 2})
	guard.Set(components.Transform{Position: physics.V3(3, 0, 0)})
	guard.Set(components.Velocity{Linear: physics.V3(1, 0, 0)})

	require.NoError(t, Patrol{}.Update(r, 1, dt))
	require.Equal(t, physics.V3(-1, 0, 0), models.Get[components.Velocity](guard).Linear)

	// Already heading home; no flip.
	require.NoError(t, Patrol{}.Update(r, 2, dt))
	require.Equal(t, physics.V3(-1, 0, 0), models.Get[components.Velocity](guard).Linear)

	idle := r.CreateEntity()
	idle.Set(components.AIState{Mode: "idle"})
	idle.Set(components.Transform{Position: physics.V3(9, 0, 0)})
	idle.Set(components.Velocity{Linear: physics.V3(1, 0, 0)})
	require.NoError(t, Patrol{}.Update(r, 3, dt))
	require.Equal(t, physics.V3(1, 0, 0), models.Get[components.Velocity](idle).Linear)
}

func spawnTarget(r *models.EntityRegistry, at physics.Vec3, hp int) *models.Entity {
	e := r.CreateEntity()
	e.Set(components.Transform{Position: at})
	e.Set(components.Health{Current: hp, Max: hp})
	e.Set(components.Collider{Radius: 1})
	return e
}

func TestCollisionAndDamage(t *testing.T) {
	r := models.NewEntityRegistry()
	shooter := spawnTarget(r, physics.V3(0, 0, 0), 100)
	target := spawnTarget(r, physics.V3(5, 0, 0), 100)

	shot := r.CreateEntity()
	shot.Set(components.Transform{Position: physics.V3(0, 0, 0)})
	shot.Set(components.Projectile{Owner: shooter.ID(), Damage: 25, Remaining: 10})

	require.NoError(t, Collision{}.Update(r, 1, dt))
	require.True(t, shot.Alive(), "owner is never hit")
	require.Equal(t, uint32(9), models.Get[components.Projectile](shot).Remaining)

	shot.Set(components.Transform{Position: physics.V3(4.5, 0, 0)})
	require.NoError(t, Collision{}.Update(r, 2, dt))
	require.False(t, shot.Alive())
	require.Equal(t, components.PendingDamage{Amount: 25, Source: shooter.ID()}, models.Get[components.PendingDamage](target))

	events := bus.New()
	var killed []EntityKilled
	_, err := events.Subscribe(EventEntityKilled, func(e bus.Event) error {
		killed = append(killed, e.Data().(EntityKilled))
		return nil
	})
	require.NoError(t, err)
	damage := NewDamage(nil, events)
	require.NoError(t, damage.Update(r, 2, dt))
	require.Equal(t, components.Health{Current: 75, Max: 100}, models.Get[components.Health](target))
	require.False(t, models.Has[components.PendingDamage](target))

	target.Set(components.PendingDamage{Amount: 500})
	require.NoError(t, damage.Update(r, 3, dt))
	_, ok := r.TryGet(target.ID())
	require.False(t, ok)
	require.Equal(t, []EntityKilled{{Entity: target.ID()}}, killed)
}

func TestProjectileExpires(t *testing.T) {
	r := models.NewEntityRegistry()
	shot := r.CreateEntity()
	shot.Set(components.Transform{})
	shot.Set(components.Projectile{Remaining: 2})

	require.NoError(t, Collision{}.Update(r, 1, dt))
	require.True(t, shot.Alive())
	require.NoError(t, Collision{}.Update(r, 2, dt))
	require.False(t, shot.Alive())
}

func TestRequests(t *testing.T) {
	r := models.NewEntityRegistry()
	inbox := requests.NewInbox()
	rules := DefaultRules()
	events := bus.New()
	var seen []string
	for _, typ := range []string{EventPlayerSpawned, EventPlayerLeft} {
		_, err := events.Subscribe(typ, func(e bus.Event) error {
			seen = append(seen, e.Type())
			return nil
		})
		require.NoError(t, err)
	}
	sys := NewRequests(inbox, rules, nil, events)
	peer := transport.NewPeerID()

	inbox.Push(requests.Request{Peer: peer, Kind: requests.KindShot, Shot: requests.Shot{Direction: physics.V3(1, 0, 0)}})
	inbox.Push(requests.Request{Peer: peer, Kind: requests.KindSpawn, Spawn: requests.Spawn{Name: "ranger", Position: physics.V3(1, 2, 3)}})
	inbox.Push(requests.Request{Peer: peer, Kind: requests.KindSpawn, Spawn: requests.Spawn{Name: "again"}})
	require.NoError(t, sys.Update(r, 1, dt))
	require.Equal(t, 1, r.Len(), "shot before spawn and duplicate spawn are ignored")

	player, ok := findPlayer(r, peer)
	require.True(t, ok)
	require.True(t, models.Has[models.Replicated](player))
	require.Equal(t, components.Name{Value: "ranger"}, models.Get[components.Name](player))
	require.Equal(t, physics.V3(1, 2, 3), position(player))
	require.Equal(t, rules.PlayerHealth, models.Get[components.Health](player).Current)

	inbox.Push(requests.Request{Peer: peer, Kind: requests.KindShot, Shot: requests.Shot{Direction: physics.V3(0, 2, 0)}})
	inbox.Push(requests.Request{Peer: peer, Kind: requests.KindShot, Shot: requests.Shot{}})
	require.NoError(t, sys.Update(r, 2, dt))
	require.Equal(t, 2, r.Len())

	projectile, ok := models.With[components.Projectile](r).First()
	require.True(t, ok)
	require.Equal(t, player.ID(), models.Get[components.Projectile](projectile).Owner)
	require.Equal(t, physics.V3(0, rules.ProjectileSpeed, 0), models.Get[components.Velocity](projectile).Linear)
	require.Equal(t, physics.V3(1, 2, 3), position(projectile))

	inbox.Push(requests.Request{Peer: peer, Kind: requests.KindLeave})
	require.NoError(t, sys.Update(r, 3, dt))
	_, ok = findPlayer(r, peer)
	require.False(t, ok)
	require.Equal(t, []string{EventPlayerSpawned, EventPlayerLeft}, seen)
}

func TestReconcileTransform(t *testing.T) {
	reconcile := ReconcileTransform(2, 0.5)
	live := components.Transform{Position: physics.V3(1, 0, 0)}
	auth := components.Transform{Position: physics.V3(0, 0, 0)}
	require.Equal(t, physics.V3(0.5, 0, 0), reconcile(live, auth, dt).Position)

	far := components.Transform{Position: physics.V3(10, 0, 0)}
	require.Equal(t, auth, reconcile(far, auth, dt))
}

func TestPredictLocalPlayer(t *testing.T) {
	r := models.NewEntityRegistry()
	local := transport.NewPeerID()
	mine := r.CreateEntity()
	mine.Set(components.Player{Peer: local})
	mine.Set(components.Transform{Position: physics.V3(1, 1, 1)})
	theirs := r.CreateEntity()
	theirs.Set(components.Player{Peer: transport.NewPeerID()})
	theirs.Set(components.Transform{})

	sys := NewPredictLocalPlayer(local)
	require.NoError(t, sys.Update(r, 1, dt))
	require.NoError(t, sys.Update(r, 2, dt))
	require.True(t, prediction.IsPredicted[components.Transform](mine))
	require.False(t, prediction.IsPredicted[components.Transform](theirs))
	auth, _ := prediction.AuthoritativeValue[components.Transform](mine)
	require.Equal(t, physics.V3(1, 1, 1), auth.Position)
}
