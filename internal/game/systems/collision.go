package systems

import (
	"time"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/components"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/physics"
)

// Collision ages projectiles and turns hits into PendingDamage on the
// target. A projectile is destroyed on its first hit or when it expires.
type Collision struct{}

func (Collision) Name() string { return "collision" }

func (Collision) Update(r *models.EntityRegistry, _ uint64, _ time.Duration) error {
	projectiles := models.WithBoth[components.Projectile, components.Transform](r).Collect()
	targets := r.WithAll(components.HealthType, components.TransformType, components.ColliderType).Collect()

	for _, p := range projectiles {
		if !p.Alive() {
			continue
		}
		shot := models.Get[components.Projectile](p)
		if shot.Remaining <= 1 {
			r.DestroyEntity(p.ID())
			continue
		}
		shot.Remaining--
		p.Set(shot)

		at := models.Get[components.Transform](p).Position
		for _, target := range targets {
			if !target.Alive() || target.ID() == shot.Owner {
				continue
			}
			pos := models.Get[components.Transform](target).Position
			if !physics.Within(at, pos, models.Get[components.Collider](target).Radius) {
				continue
			}
			pending, _ := models.TryGet[components.PendingDamage](target)
			pending.Amount += shot.Damage
			pending.Source = shot.Owner
			target.Set(pending)
			r.DestroyEntity(p.ID())
			break
		}
	}
	return nil
}
