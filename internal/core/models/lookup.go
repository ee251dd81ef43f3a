package models

import (
	"fmt"

	"github.com/dcasadevall/multiplayer-prototype-sub001/pkg/sequence"
)

// Get returns the component of type T and panics when it is absent.
// Absence here is a programming defect, not a runtime condition.
func Get[T Component](e *Entity) T {
	t := TypeOf[T]()
	c, ok := e.Get(t)
	if !ok {
		panic(fmt.Errorf("get %s on entity %s: %w", t, e.ID(), ErrComponentNotFound))
	}
	v, ok := c.(T)
	if !ok {
		panic(fmt.Errorf("get %s on entity %s: stored %T", t, e.ID(), c))
	}
	return v
}

// TryGet returns the component of type T if present.
func TryGet[T Component](e *Entity) (T, bool) {
	c, ok := e.Get(TypeOf[T]())
	if !ok {
		var zero T
		return zero, false
	}
	v, ok := c.(T)
	return v, ok
}

func Has[T Component](e *Entity) bool {
	return e.Has(TypeOf[T]())
}

// With yields live entities carrying a component of type T.
func With[T Component](r *EntityRegistry) *sequence.Iterator[*Entity] {
	return r.With(TypeOf[T]())
}

// WithBoth yields live entities carrying components of types A and B.
func WithBoth[A, B Component](r *EntityRegistry) *sequence.Iterator[*Entity] {
	return r.WithAll(TypeOf[A](), TypeOf[B]())
}
