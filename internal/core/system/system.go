package system

import (
	"time"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
)

// System is a unit of per-tick logic. It is invoked on the tick thread with
// the registry, the tick number (starting at 1) and the fixed delta time.
// A returned error is fatal: the world stops without running the remaining
// systems of that tick.
type System interface {
	Name() string
	Update(registry *models.EntityRegistry, tick uint64, dt time.Duration) error
}

// UpdateFunc adapts a plain function body.
type UpdateFunc func(registry *models.EntityRegistry, tick uint64, dt time.Duration) error

type funcSystem struct {
	name string
	fn   UpdateFunc
}

// Func builds a named System from fn.
func Func(name string, fn UpdateFunc) System {
	return &funcSystem{name: name, fn: fn}
}

func (s *funcSystem) Name() string { return s.name }

func (s *funcSystem) Update(registry *models.EntityRegistry, tick uint64, dt time.Duration) error {
	return s.fn(registry, tick, dt)
}

type registration struct {
	system   System
	interval uint64
}

func (r registration) due(tick uint64) bool {
	return tick%r.interval == 0
}

type RegisterOption func(*registration)

// WithInterval runs the system only on ticks divisible by n. Zero means 1.
func WithInterval(n uint64) RegisterOption {
	return func(r *registration) {
		if n == 0 {
			n = 1
		}
		r.interval = n
	}
}
