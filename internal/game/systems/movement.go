// Package systems holds the game's per-tick logic.
package systems

import (
	"time"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/components"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/physics"
)

// Movement integrates velocity into position.
type Movement struct{}

func (Movement) Name() string { return "movement" }

func (Movement) Update(r *models.EntityRegistry, _ uint64, dt time.Duration) error {
	seconds := dt.Seconds()
	for e := range models.WithBoth[components.Transform, components.Velocity](r).Seq() {
		t := models.Get[components.Transform](e)
		v := models.Get[components.Velocity](e)
		if v.Linear == (physics.Vec3{}) {
			continue
		}
		t.Position = t.Position.Add(v.Linear.Scale(seconds))
		e.Set(t)
	}
	return nil
}
