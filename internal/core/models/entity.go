package models

import (
	"fmt"
	"sort"
)

// Entity is an identity with at most one component per type-key.
// Entities are created and destroyed exclusively through an EntityRegistry.
type Entity struct {
	id         EntityID
	components map[ComponentType]Component
	destroyed  bool
}

func newEntity(id EntityID) *Entity {
	return &Entity{
		id:         id,
		components: make(map[ComponentType]Component),
	}
}

func (e *Entity) ID() EntityID {
	return e.id
}

// Alive reports whether the entity is still owned by its registry.
func (e *Entity) Alive() bool {
	return !e.destroyed
}

// Add attaches c. It fails if a component of the same type is already present.
func (e *Entity) Add(c Component) error {
	if c == nil {
		return ErrNilComponent
	}
	if e.destroyed {
		return fmt.Errorf("add %s to %s: %w", c.ComponentType(), e.id, ErrEntityDestroyed)
	}
	t := c.ComponentType()
	if _, exists := e.components[t]; exists {
		return fmt.Errorf("add %s to %s: %w", t, e.id, ErrComponentExists)
	}
	e.components[t] = c
	return nil
}

// Set replaces the component of c's type, or adds it when absent.
func (e *Entity) Set(c Component) {
	if c == nil || e.destroyed {
		return
	}
	e.components[c.ComponentType()] = c
}

// Remove detaches the component of type t and reports whether it was present.
func (e *Entity) Remove(t ComponentType) bool {
	if _, ok := e.components[t]; !ok {
		return false
	}
	delete(e.components, t)
	return true
}

func (e *Entity) Get(t ComponentType) (Component, bool) {
	c, ok := e.components[t]
	return c, ok
}

func (e *Entity) Has(t ComponentType) bool {
	_, ok := e.components[t]
	return ok
}

// HasAll reports whether every type in types is present.
func (e *Entity) HasAll(types ...ComponentType) bool {
	for _, t := range types {
		if _, ok := e.components[t]; !ok {
			return false
		}
	}
	return true
}

func (e *Entity) Len() int {
	return len(e.components)
}

// Types returns the present type-keys in lexical order.
func (e *Entity) Types() []ComponentType {
	types := make([]ComponentType, 0, len(e.components))
	for t := range e.components {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Components returns the present components ordered by type-key.
func (e *Entity) Components() []Component {
	types := e.Types()
	out := make([]Component, len(types))
	for i, t := range types {
		out[i] = e.components[t]
	}
	return out
}

func (e *Entity) destroy() {
	e.destroyed = true
	e.components = make(map[ComponentType]Component)
}
