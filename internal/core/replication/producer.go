package replication

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/codec"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
)

// fingerprints maps each replicable component type of an entity to the hash
// of its serialized form.
type fingerprints map[models.ComponentType]uint64

// Producer computes deltas against the state it observed at its previous
// production. It runs on the tick thread and only reads the registry.
type Producer struct {
	codecs   *codec.Registry
	baseline map[models.EntityID]fingerprints
}

func NewProducer(codecs *codec.Registry) *Producer {
	return &Producer{
		codecs:   codecs,
		baseline: make(map[models.EntityID]fingerprints),
	}
}

// Produce returns the incremental message for tick and makes the current
// state the new baseline. Entities are reported in registry order, followed
// by destroyed entities ordered by id.
func (p *Producer) Produce(r *models.EntityRegistry, tick uint64) (WorldDeltaMessage, error) {
	msg := WorldDeltaMessage{Tick: tick}
	next := make(map[models.EntityID]fingerprints, len(p.baseline))

	for e := range r.With(models.ReplicatedType).Seq() {
		components, current, err := p.capture(e)
		if err != nil {
			return WorldDeltaMessage{}, err
		}
		next[e.ID()] = current

		previous, seen := p.baseline[e.ID()]
		if !seen {
			msg.Deltas = append(msg.Deltas, EntityDelta{
				EntityID:        e.ID(),
				IsNew:           true,
				AddedOrModified: components,
			})
			continue
		}

		delta := EntityDelta{EntityID: e.ID()}
		for _, c := range components {
			if fp, ok := previous[c.ComponentType()]; !ok || fp != current[c.ComponentType()] {
				delta.AddedOrModified = append(delta.AddedOrModified, c)
			}
		}
		for _, t := range sortedTypes(previous) {
			if _, ok := current[t]; !ok {
				delta.Removed = append(delta.Removed, codec.TagOf(t))
			}
		}
		if !delta.Empty() {
			msg.Deltas = append(msg.Deltas, delta)
		}
	}

	// Entities that were destroyed or lost their Replicated tag.
	var gone []models.EntityID
	for id := range p.baseline {
		if _, ok := next[id]; !ok {
			gone = append(gone, id)
		}
	}
	sort.Slice(gone, func(i, j int) bool {
		return bytes.Compare(gone[i][:], gone[j][:]) < 0
	})
	for _, id := range gone {
		msg.Deltas = append(msg.Deltas, EntityDelta{EntityID: id, IsDestroyed: true})
	}

	p.baseline = next
	return msg, nil
}

// FullState returns every replicated entity as new with all of its
// replicable components. The baseline is left untouched.
func (p *Producer) FullState(r *models.EntityRegistry, tick uint64) (WorldDeltaMessage, error) {
	msg := WorldDeltaMessage{Tick: tick, Full: true}
	for e := range r.With(models.ReplicatedType).Seq() {
		components, _, err := p.capture(e)
		if err != nil {
			return WorldDeltaMessage{}, err
		}
		msg.Deltas = append(msg.Deltas, EntityDelta{
			EntityID:        e.ID(),
			IsNew:           true,
			AddedOrModified: components,
		})
	}
	return msg, nil
}

// Reset forgets the baseline; the next Produce reports every entity as new.
func (p *Producer) Reset() {
	p.baseline = make(map[models.EntityID]fingerprints)
}

// Observed returns the number of entities in the baseline.
func (p *Producer) Observed() int {
	return len(p.baseline)
}

// capture serializes the replicable components of e in type order. Server-only
// components never reach the codec.
func (p *Producer) capture(e *models.Entity) ([]models.Component, fingerprints, error) {
	all := e.Components()
	components := make([]models.Component, 0, len(all))
	current := make(fingerprints, len(all))
	for _, c := range all {
		if models.IsServerOnly(c) {
			continue
		}
		data, err := p.codecs.Serialize(c)
		if err != nil {
			return nil, nil, fmt.Errorf("replicate entity %s: %w", e.ID(), err)
		}
		components = append(components, c)
		current[c.ComponentType()] = xxhash.Sum64(data)
	}
	return components, current, nil
}

func sortedTypes(fp fingerprints) []models.ComponentType {
	types := make([]models.ComponentType, 0, len(fp))
	for t := range fp {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
