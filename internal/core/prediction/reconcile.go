package prediction

import (
	"time"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
)

// ReconcileFunc returns the corrected live value given the locally predicted
// value and the last authoritative one.
type ReconcileFunc[T models.Component] func(live, authoritative T, dt time.Duration) T

// Snap replaces the live value with the authoritative one.
func Snap[T models.Component](_ T, authoritative T, _ time.Duration) T {
	return authoritative
}

// ReconcileSystem corrects every predicted T toward its authoritative value.
type ReconcileSystem[T models.Component] struct {
	reconcile ReconcileFunc[T]
}

func NewReconcileSystem[T models.Component](reconcile ReconcileFunc[T]) *ReconcileSystem[T] {
	if reconcile == nil {
		reconcile = Snap[T]
	}
	return &ReconcileSystem[T]{reconcile: reconcile}
}

func (s *ReconcileSystem[T]) Name() string {
	return "reconcile." + string(models.TypeOf[T]())
}

func (s *ReconcileSystem[T]) Update(registry *models.EntityRegistry, _ uint64, dt time.Duration) error {
	for e := range models.WithBoth[T, PredictedComponent[T]](registry).Seq() {
		live := models.Get[T](e)
		wrapper := models.Get[PredictedComponent[T]](e)
		e.Set(s.reconcile(live, wrapper.Authoritative, dt))
	}
	return nil
}
