package systems

import (
	"time"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
	gameai "github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/ai"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/components"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/physics"
)

// Patrol turns patrolling entities around once they leave their range while
// still heading away from the anchor. It does not need to run every tick.
type Patrol struct{}

func (Patrol) Name() string { return "patrol" }

func (Patrol) Update(r *models.EntityRegistry, _ uint64, _ time.Duration) error {
	query := r.WithAll(components.AIStateType, components.TransformType, components.VelocityType)
	for e := range query.Seq() {
		ai := models.Get[components.AIState](e)
		if ai.Mode != gameai.ModePatrol {
			continue
		}
		pos := models.Get[components.Transform](e).Position
		vel := models.Get[components.Velocity](e)
		out := pos.Sub(ai.Anchor)
		if physics.Within(pos, ai.Anchor, ai.Range) || out.Dot(vel.Linear) <= 0 {
			continue
		}
		vel.Linear = vel.Linear.Scale(-1)
		e.Set(vel)
	}
	return nil
}
