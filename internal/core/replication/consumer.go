package replication

import (
	"fmt"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/codec"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/prediction"
)

// ApplyStats summarizes one Apply call.
type ApplyStats struct {
	Created   int
	Updated   int
	Destroyed int
	// Routed counts authoritative values delivered to predicted wrappers
	// instead of the live component.
	Routed int
}

// Consumer applies received messages to an observer's registry on the tick
// thread.
type Consumer struct {
	codecs    *codec.Registry
	predicted *prediction.Table
}

// NewConsumer returns a consumer; predicted may be nil when the observer
// predicts nothing.
func NewConsumer(codecs *codec.Registry, predicted *prediction.Table) *Consumer {
	return &Consumer{codecs: codecs, predicted: predicted}
}

// Apply applies every delta of msg in order. Applying the same new or
// destroyed delta again leaves the registry unchanged. A full message also
// destroys local replicated entities it does not mention and strips
// replicable components the server no longer lists from the ones it does.
func (c *Consumer) Apply(r *models.EntityRegistry, msg WorldDeltaMessage) (ApplyStats, error) {
	var stats ApplyStats
	var mentioned map[models.EntityID]struct{}
	if msg.Full {
		mentioned = make(map[models.EntityID]struct{}, len(msg.Deltas))
	}

	for _, d := range msg.Deltas {
		if d.IsNew && d.IsDestroyed {
			return stats, fmt.Errorf("apply %s: %w", d.EntityID, ErrConflictingFlags)
		}
		if mentioned != nil {
			mentioned[d.EntityID] = struct{}{}
		}
		if d.IsDestroyed {
			if r.DestroyEntity(d.EntityID) {
				stats.Destroyed++
			}
			continue
		}

		e, ok := r.TryGet(d.EntityID)
		if !ok {
			var err error
			if e, err = r.CreateEntityWithID(d.EntityID); err != nil {
				return stats, fmt.Errorf("apply %s: %w", d.EntityID, err)
			}
			stats.Created++
		} else {
			if !d.IsNew {
				stats.Updated++
			}
			if msg.Full {
				c.dropUnlisted(e, d.AddedOrModified)
			}
		}

		for _, component := range d.AddedOrModified {
			if component == nil {
				return stats, fmt.Errorf("apply %s: %w", d.EntityID, models.ErrNilComponent)
			}
			if c.predicted.Route(e, component) {
				stats.Routed++
				continue
			}
			e.Set(component)
		}

		for _, tag := range d.Removed {
			t, known := c.codecs.TypeOf(tag)
			if !known {
				return stats, fmt.Errorf("apply %s: remove tag %#x: %w", d.EntityID, uint64(tag), codec.ErrUnknownTypeTag)
			}
			e.Remove(t)
			if c.predicted.Predictable(t) {
				e.Remove(prediction.WrapperType(t))
			}
		}
	}

	if msg.Full {
		for _, stale := range r.With(models.ReplicatedType).Collect() {
			if _, ok := mentioned[stale.ID()]; !ok && r.DestroyEntity(stale.ID()) {
				stats.Destroyed++
			}
		}
	}
	return stats, nil
}

// dropUnlisted removes every codec-registered component of e that listed
// does not carry. Local-only components and prediction wrappers stay.
func (c *Consumer) dropUnlisted(e *models.Entity, listed []models.Component) {
	keep := make(map[models.ComponentType]struct{}, len(listed))
	for _, component := range listed {
		if component != nil {
			keep[component.ComponentType()] = struct{}{}
		}
	}
	for _, t := range e.Types() {
		if _, ok := keep[t]; ok {
			continue
		}
		if !c.codecs.Registered(t) || c.predicted.IsWrapper(t) {
			continue
		}
		e.Remove(t)
		if c.predicted.Predictable(t) {
			e.Remove(prediction.WrapperType(t))
		}
	}
}
