package ai

import (
	"fmt"
	"math"
	"time"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/components"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/physics"
)

const (
	ModePatrol = "patrol"
	ModeChase  = "chase"
)

// Brain ticks a behavior tree for every entity carrying AIState.
type Brain struct {
	root Node
}

func NewBrain(root Node) *Brain {
	if root == nil {
		root = DefaultTree()
	}
	return &Brain{root: root}
}

func (b *Brain) Name() string { return "ai.brain" }

func (b *Brain) Update(r *models.EntityRegistry, tick uint64, dt time.Duration) error {
	for _, e := range r.WithAll(components.AIStateType, components.TransformType).Collect() {
		if !e.Alive() {
			continue
		}
		if _, err := b.root.Tick(TickContext{Registry: r, Entity: e, Tick: tick, DT: dt}); err != nil {
			return fmt.Errorf("%s on %s: %w", b.root.Name(), e.ID(), err)
		}
	}
	return nil
}

// DefaultTree chases the nearest player in sight and otherwise patrols.
//
//	selector
//	├── sequence: player in sight -> chase
//	└── patrol
func DefaultTree() Node {
	return NewSelector("root",
		NewSequence("hunt",
			Condition("player_in_sight", func(t TickContext) bool {
				_, ok := nearestPlayer(t)
				return ok
			}),
			Action("chase", chase),
		),
		Action("patrol", patrol),
	)
}

func nearestPlayer(t TickContext) (*models.Entity, bool) {
	state := models.Get[components.AIState](t.Entity)
	if state.Sight <= 0 {
		return nil, false
	}
	pos := models.Get[components.Transform](t.Entity).Position

	var nearest *models.Entity
	best := math.Inf(1)
	for p := range models.WithBoth[components.Player, components.Transform](t.Registry).Seq() {
		d := physics.Distance(pos, models.Get[components.Transform](p).Position)
		if d <= state.Sight && d < best {
			nearest, best = p, d
		}
	}
	return nearest, nearest != nil
}

func chase(t TickContext) (Status, error) {
	target, ok := nearestPlayer(t)
	if !ok {
		return StatusFailure, nil
	}
	state := models.Get[components.AIState](t.Entity)
	pos := models.Get[components.Transform](t.Entity).Position
	dir := models.Get[components.Transform](target).Position.Sub(pos).Normalize()

	t.Entity.Set(components.Velocity{Linear: dir.Scale(state.Speed)})
	if state.Mode != ModeChase {
		state.Mode = ModeChase
		t.Entity.Set(state)
	}
	return StatusRunning, nil
}

// patrol heads back to the anchor after a chase. The patrol system keeps it
// bouncing inside its range from then on. Other modes are left alone.
func patrol(t TickContext) (Status, error) {
	state := models.Get[components.AIState](t.Entity)
	if state.Mode != ModeChase {
		return StatusSuccess, nil
	}
	pos := models.Get[components.Transform](t.Entity).Position
	home := state.Anchor.Sub(pos).Normalize()
	if home == (physics.Vec3{}) {
		home = physics.V3(1, 0, 0)
	}
	t.Entity.Set(components.Velocity{Linear: home.Scale(state.Speed)})
	state.Mode = ModePatrol
	t.Entity.Set(state)
	return StatusSuccess, nil
}
