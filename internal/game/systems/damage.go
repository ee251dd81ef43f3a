package systems

import (
	"time"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/events/bus"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/observability/log"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/components"
)

// Damage applies PendingDamage to Health and destroys entities whose health
// reaches zero.
type Damage struct {
	logger log.Log
	events bus.EventBus
}

// NewDamage returns the damage system. Kills are published on events when it
// is not nil.
func NewDamage(logger log.Log, events bus.EventBus) *Damage {
	if logger == nil {
		logger = log.Nop()
	}
	return &Damage{logger: logger.With(log.String("component", "damage")), events: events}
}

func (d *Damage) Name() string { return "damage" }

func (d *Damage) Update(r *models.EntityRegistry, tick uint64, _ time.Duration) error {
	for _, e := range models.WithBoth[components.Health, components.PendingDamage](r).Collect() {
		h := models.Get[components.Health](e)
		pending := models.Get[components.PendingDamage](e)
		e.Remove(components.PendingDamageType)

		h.Current = max(h.Current-pending.Amount, 0)
		if h.Alive() {
			e.Set(h)
			continue
		}
		r.DestroyEntity(e.ID())
		d.logger.Debug("entity destroyed by damage",
			log.Tick(tick),
			log.Stringer("entity", e.ID()),
			log.Stringer("source", pending.Source),
		)
		if err := publish(d.events, EventEntityKilled, tick, EntityKilled{Entity: e.ID(), Source: pending.Source}); err != nil {
			return err
		}
	}
	return nil
}
