package systems

import (
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/events/bus"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/transport"
)

// Gameplay events published on the tick goroutine.
const (
	EventPlayerSpawned = "player.spawned"
	EventPlayerLeft    = "player.left"
	EventEntityKilled  = "entity.killed"
)

type PlayerSpawned struct {
	Entity models.EntityID
	Peer   transport.PeerID
	Name   string
}

type PlayerLeft struct {
	Entity models.EntityID
	Peer   transport.PeerID
}

// EntityKilled is published when damage takes an entity to zero health.
// Source is the owner of the projectile that dealt the final hit.
type EntityKilled struct {
	Entity models.EntityID
	Source models.EntityID
}

func publish(events bus.EventBus, typ string, tick uint64, data any) error {
	if events == nil {
		return nil
	}
	return events.Publish(bus.NewEvent(typ, tick, data))
}
