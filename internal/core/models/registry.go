package models

import (
	"fmt"

	"github.com/dcasadevall/multiplayer-prototype-sub001/pkg/sequence"
)

// EntityRegistry owns every live entity of one simulation instance.
// It is not safe for concurrent use: all access happens on the tick thread.
type EntityRegistry struct {
	entities map[EntityID]*Entity
	order    []EntityID
}

func NewEntityRegistry() *EntityRegistry {
	return &EntityRegistry{
		entities: make(map[EntityID]*Entity),
	}
}

// CreateEntity creates an entity with a fresh id.
func (r *EntityRegistry) CreateEntity() *Entity {
	id := NewEntityID()
	for r.exists(id) {
		id = NewEntityID()
	}
	return r.insert(id)
}

// CreateEntityWithID creates an entity that adopts an id minted elsewhere,
// typically by the authoritative peer.
func (r *EntityRegistry) CreateEntityWithID(id EntityID) (*Entity, error) {
	if id.IsNil() {
		return nil, ErrNilEntityID
	}
	if r.exists(id) {
		return nil, fmt.Errorf("create entity %s: %w", id, ErrEntityExists)
	}
	return r.insert(id), nil
}

// DestroyEntity removes the entity and all of its components. It reports
// whether the entity was live.
func (r *EntityRegistry) DestroyEntity(id EntityID) bool {
	e, ok := r.entities[id]
	if !ok {
		return false
	}
	delete(r.entities, id)
	for i, other := range r.order {
		if other == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	e.destroy()
	return true
}

// TryGet returns the live entity with the given id.
func (r *EntityRegistry) TryGet(id EntityID) (*Entity, bool) {
	e, ok := r.entities[id]
	return e, ok
}

func (r *EntityRegistry) Len() int {
	return len(r.entities)
}

// All yields every live entity in creation order.
//
// The sequence is evaluated when it is consumed. Entities destroyed while
// iterating are skipped; entities created while iterating are not visited.
// Callers that mutate heavily should Collect first.
func (r *EntityRegistry) All() *sequence.Iterator[*Entity] {
	return sequence.New(func(yield func(*Entity) bool) {
		ids := make([]EntityID, len(r.order))
		copy(ids, r.order)
		for _, id := range ids {
			e, ok := r.entities[id]
			if !ok {
				continue
			}
			if !yield(e) {
				return
			}
		}
	})
}

// With yields live entities that have a component of type t.
func (r *EntityRegistry) With(t ComponentType) *sequence.Iterator[*Entity] {
	return r.All().Filter(func(e *Entity) bool { return e.Has(t) })
}

// WithAll yields live entities that have every one of types.
func (r *EntityRegistry) WithAll(types ...ComponentType) *sequence.Iterator[*Entity] {
	return r.All().Filter(func(e *Entity) bool { return e.HasAll(types...) })
}

func (r *EntityRegistry) exists(id EntityID) bool {
	_, ok := r.entities[id]
	return ok
}

func (r *EntityRegistry) insert(id EntityID) *Entity {
	e := newEntity(id)
	r.entities[id] = e
	r.order = append(r.order, id)
	return e
}
