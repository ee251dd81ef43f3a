// Package components declares the game's component types.
package components

import (
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/physics"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/transport"
)

const (
	TransformType     models.ComponentType = "transform"
	VelocityType      models.ComponentType = "velocity"
	HealthType        models.ComponentType = "health"
	PlayerType        models.ComponentType = "player"
	NameType          models.ComponentType = "name"
	ColliderType      models.ComponentType = "collider"
	ProjectileType    models.ComponentType = "projectile"
	AIStateType       models.ComponentType = "ai_state"
	PendingDamageType models.ComponentType = "pending_damage"
)

type Transform struct {
	Position physics.Vec3 `json:"position"`
}

func (Transform) ComponentType() models.ComponentType { return TransformType }

// Velocity is in units per second.
type Velocity struct {
	Linear physics.Vec3 `json:"linear"`
}

func (Velocity) ComponentType() models.ComponentType { return VelocityType }

type Health struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

func (Health) ComponentType() models.ComponentType { return HealthType }

func (h Health) Alive() bool { return h.Current > 0 }

// Player marks the entity controlled by a connected peer.
type Player struct {
	Peer transport.PeerID `json:"peer"`
}

func (Player) ComponentType() models.ComponentType { return PlayerType }

type Name struct {
	Value string `json:"value"`
}

func (Name) ComponentType() models.ComponentType { return NameType }

// Collider is a sphere centered on the entity's transform.
type Collider struct {
	Radius float64 `json:"radius"`
}

func (Collider) ComponentType() models.ComponentType { return ColliderType }

// Projectile travels with its velocity until it hits something or its
// remaining lifetime, in ticks, runs out.
type Projectile struct {
	Owner     models.EntityID `json:"owner"`
	Damage    int             `json:"damage"`
	Remaining uint32          `json:"remaining"`
}

func (Projectile) ComponentType() models.ComponentType { return ProjectileType }

// AIState is private to the authoritative node.
type AIState struct {
	Mode   string       `json:"mode"`
	Anchor physics.Vec3 `json:"anchor"`
	Range  float64      `json:"range"`
	// Sight is how close a player must be to be chased. Zero never chases.
	Sight float64 `json:"sight"`
	Speed float64 `json:"speed"`
}

func (AIState) ComponentType() models.ComponentType { return AIStateType }
func (AIState) ServerOnly()                         {}

// PendingDamage is written by collision handling and consumed by the damage
// system in the same tick.
type PendingDamage struct {
	Amount int             `json:"amount"`
	Source models.EntityID `json:"source"`
}

func (PendingDamage) ComponentType() models.ComponentType { return PendingDamageType }
func (PendingDamage) ServerOnly()                         {}
