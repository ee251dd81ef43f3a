// Package prediction lets an observer advance a component locally while
// keeping the last authoritative value it received beside it.
package prediction

import (
	"fmt"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
)

const wrapperPrefix = "predicted."

// WrapperType returns the type-key of the predicted wrapper for base.
func WrapperType(base models.ComponentType) models.ComponentType {
	return wrapperPrefix + base
}

// PredictedComponent is co-resident with a live T on the same entity and
// holds the last authoritative value received for T. The live T may run
// ahead of it through local simulation.
type PredictedComponent[T models.Component] struct {
	Authoritative T `json:"authoritative"`
}

func (PredictedComponent[T]) ComponentType() models.ComponentType {
	return WrapperType(models.TypeOf[T]())
}

// AddPredictedComponent adds the live T and its wrapper, both set to initial.
// It fails if either is already present.
func AddPredictedComponent[T models.Component](e *models.Entity, initial T) error {
	if err := e.Add(initial); err != nil {
		return err
	}
	if err := e.Add(PredictedComponent[T]{Authoritative: initial}); err != nil {
		e.Remove(initial.ComponentType())
		return err
	}
	return nil
}

// Predict starts predicting the live T already on e, typically one that
// arrived through replication. The wrapper starts at the current value.
func Predict[T models.Component](e *models.Entity) error {
	live, ok := models.TryGet[T](e)
	if !ok {
		return fmt.Errorf("predict %s on %s: %w", models.TypeOf[T](), e.ID(), models.ErrComponentNotFound)
	}
	return e.Add(PredictedComponent[T]{Authoritative: live})
}

// SetAuthoritativeValue stores value in the wrapper's authoritative slot and
// leaves the live T untouched. It reports false, changing nothing, when the
// entity has no wrapper for T.
func SetAuthoritativeValue[T models.Component](e *models.Entity, value T) bool {
	if !models.Has[PredictedComponent[T]](e) {
		return false
	}
	e.Set(PredictedComponent[T]{Authoritative: value})
	return true
}

// AuthoritativeValue returns the last authoritative T received by e.
func AuthoritativeValue[T models.Component](e *models.Entity) (T, bool) {
	w, ok := models.TryGet[PredictedComponent[T]](e)
	return w.Authoritative, ok
}

// IsPredicted reports whether T on e was added through the predicted path.
func IsPredicted[T models.Component](e *models.Entity) bool {
	return models.Has[PredictedComponent[T]](e)
}
