package prediction

import (
	"errors"
	"fmt"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/codec"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
)

var (
	ErrServerOnly       = errors.New("server-only components cannot be predicted")
	ErrAlreadyPredicted = errors.New("component type already predictable")
)

type route func(e *models.Entity, c models.Component) bool

// Table maps each predictable base type to its wrapper. It is filled once at
// startup through Register and read-only afterwards.
type Table struct {
	routes   map[models.ComponentType]route
	wrappers map[models.ComponentType]models.ComponentType
}

func NewTable() *Table {
	return &Table{
		routes:   make(map[models.ComponentType]route),
		wrappers: make(map[models.ComponentType]models.ComponentType),
	}
}

// Register makes T predictable: it records how to route authoritative T
// values and registers the PredictedComponent[T] codec.
func Register[T models.Component](t *Table, codecs *codec.Registry) error {
	var zero T
	base := zero.ComponentType()
	if models.IsServerOnly(zero) {
		return fmt.Errorf("predict %s: %w", base, ErrServerOnly)
	}
	if _, exists := t.routes[base]; exists {
		return fmt.Errorf("predict %s: %w", base, ErrAlreadyPredicted)
	}
	if codecs != nil {
		if err := codec.Register[PredictedComponent[T]](codecs); err != nil {
			return err
		}
	}
	t.routes[base] = func(e *models.Entity, c models.Component) bool {
		v, ok := c.(T)
		if !ok {
			return false
		}
		return SetAuthoritativeValue(e, v)
	}
	t.wrappers[base] = WrapperType(base)
	return nil
}

func MustRegister[T models.Component](t *Table, codecs *codec.Registry) {
	if err := Register[T](t, codecs); err != nil {
		panic(err)
	}
}

// Route delivers an authoritative value to the wrapper for its type when
// the entity predicts it. It reports false when c must be applied directly.
func (t *Table) Route(e *models.Entity, c models.Component) bool {
	if t == nil {
		return false
	}
	r, ok := t.routes[c.ComponentType()]
	if !ok {
		return false
	}
	return r(e, c)
}

// Predictable reports whether base has a registered wrapper.
func (t *Table) Predictable(base models.ComponentType) bool {
	if t == nil {
		return false
	}
	_, ok := t.wrappers[base]
	return ok
}

// IsWrapper reports whether ct is the wrapper type of a predictable base.
func (t *Table) IsWrapper(ct models.ComponentType) bool {
	if t == nil {
		return false
	}
	for _, w := range t.wrappers {
		if w == ct {
			return true
		}
	}
	return false
}
