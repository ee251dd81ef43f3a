package components

import (
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/codec"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/prediction"
)

// Register adds every game component to codecs. Server-only types are
// registered for scene loading only.
func Register(codecs *codec.Registry) error {
	for _, register := range []func(*codec.Registry) error{
		codec.Register[Transform],
		codec.Register[Velocity],
		codec.Register[Health],
		codec.Register[Player],
		codec.Register[Name],
		codec.Register[Collider],
		codec.Register[Projectile],
		codec.RegisterLocal[AIState],
		codec.RegisterLocal[PendingDamage],
	} {
		if err := register(codecs); err != nil {
			return err
		}
	}
	return nil
}

// RegisterPredicted makes the components an observer predicts routable.
func RegisterPredicted(table *prediction.Table, codecs *codec.Registry) error {
	return prediction.Register[Transform](table, codecs)
}

// NewCodecs returns a registry with every game component, and the prediction
// table with its wrappers, ready for use.
func NewCodecs() (*codec.Registry, *prediction.Table, error) {
	codecs := codec.NewRegistry()
	if err := Register(codecs); err != nil {
		return nil, nil, err
	}
	table := prediction.NewTable()
	if err := RegisterPredicted(table, codecs); err != nil {
		return nil, nil, err
	}
	return codecs, table, nil
}
