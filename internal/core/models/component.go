package models

// ComponentType is the type-key of a component. It is stable across
// processes and is the name the component is registered under in the codec.
type ComponentType string

// Component is a pure data record tagged with its type-key.
//
// Implementations are value types with a value receiver for ComponentType so
// that the zero value of the type can report its key (see TypeOf).
type Component interface {
	ComponentType() ComponentType
}

// ServerOnly marks a component that is never compared, serialized or
// transmitted by replication, even when its entity is tagged Replicated.
type ServerOnly interface {
	Component
	ServerOnly()
}

// IsServerOnly reports whether c carries the ServerOnly marker.
func IsServerOnly(c Component) bool {
	_, ok := c.(ServerOnly)
	return ok
}

// ReplicatedType is the type-key of the Replicated tag.
const ReplicatedType ComponentType = "replicated"

// Replicated tags an entity as eligible for replication.
type Replicated struct{}

func (Replicated) ComponentType() ComponentType { return ReplicatedType }

// TypeOf returns the type-key of component type T.
func TypeOf[T Component]() ComponentType {
	var zero T
	return zero.ComponentType()
}
