// Package codec implements the component serializer: every concrete component
// type, including generic wrappers, is registered once at startup under its
// type-key and serialized with a tag that identifies it on decode.
package codec

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
)

// TagSize is the number of bytes the type tag occupies at the head of a
// serialized component.
const TagSize = 8

// TypeTag is the wire identity of a component type.
type TypeTag uint64

// TagOf derives the tag of a type-key. Tags are stable across processes.
func TagOf(t models.ComponentType) TypeTag {
	return TypeTag(xxhash.Sum64String(string(t)))
}

type decoder func(body []byte) (models.Component, error)

type entry struct {
	typ    models.ComponentType
	decode decoder
}

// Registry maps type tags to concrete component types.
// Registration happens at startup; lookups are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byTag  map[TypeTag]entry
	byType map[models.ComponentType]TypeTag
	local  map[models.ComponentType]decoder
}

// NewRegistry returns a registry that already knows the Replicated tag.
func NewRegistry() *Registry {
	r := &Registry{
		byTag:  make(map[TypeTag]entry),
		byType: make(map[models.ComponentType]TypeTag),
		local:  make(map[models.ComponentType]decoder),
	}
	MustRegister[models.Replicated](r)
	return r
}

// Register adds component type T. Server-only types are rejected.
func Register[T models.Component](r *Registry) error {
	var zero T
	if models.IsServerOnly(zero) {
		return fmt.Errorf("register %s: %w", zero.ComponentType(), ErrServerOnly)
	}
	return r.add(zero.ComponentType(), decodeJSON[T])
}

// RegisterLocal adds T for DecodeNamed only. It never gets a tag, so it can
// hold server-only types loaded from scene files.
func RegisterLocal[T models.Component](r *Registry) error {
	var zero T
	t := zero.ComponentType()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byType[t]; exists {
		return fmt.Errorf("register %s: %w", t, ErrDuplicateType)
	}
	if _, exists := r.local[t]; exists {
		return fmt.Errorf("register %s: %w", t, ErrDuplicateType)
	}
	r.local[t] = decodeJSON[T]
	return nil
}

func decodeJSON[T models.Component](body []byte) (models.Component, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", v.ComponentType(), err)
	}
	return v, nil
}

// MustRegister is Register for startup code; it panics on failure.
func MustRegister[T models.Component](r *Registry) {
	if err := Register[T](r); err != nil {
		panic(err)
	}
}

func (r *Registry) add(t models.ComponentType, decode decoder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byType[t]; exists {
		return fmt.Errorf("register %s: %w", t, ErrDuplicateType)
	}
	if _, exists := r.local[t]; exists {
		return fmt.Errorf("register %s: %w", t, ErrDuplicateType)
	}
	tag := TagOf(t)
	if other, exists := r.byTag[tag]; exists {
		return fmt.Errorf("register %s (tag of %s): %w", t, other.typ, ErrTagCollision)
	}
	r.byTag[tag] = entry{typ: t, decode: decode}
	r.byType[t] = tag
	return nil
}

// Tag returns the tag of a registered type.
func (r *Registry) Tag(t models.ComponentType) (TypeTag, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tag, ok := r.byType[t]
	return tag, ok
}

// TypeOf resolves a tag back to its type-key.
func (r *Registry) TypeOf(tag TypeTag) (models.ComponentType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byTag[tag]
	return e.typ, ok
}

func (r *Registry) Registered(t models.ComponentType) bool {
	_, ok := r.Tag(t)
	return ok
}

// Serialize encodes c as its type tag (little endian) followed by a JSON body.
func (r *Registry) Serialize(c models.Component) ([]byte, error) {
	if c == nil {
		return nil, models.ErrNilComponent
	}
	if models.IsServerOnly(c) {
		return nil, fmt.Errorf("serialize %s: %w", c.ComponentType(), ErrServerOnly)
	}
	tag, ok := r.Tag(c.ComponentType())
	if !ok {
		return nil, fmt.Errorf("serialize %s: %w", c.ComponentType(), ErrUnregisteredType)
	}
	body, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", c.ComponentType(), err)
	}
	out := make([]byte, TagSize, TagSize+len(body))
	binary.LittleEndian.PutUint64(out, uint64(tag))
	return append(out, body...), nil
}

// Deserialize reconstructs the exact concrete component encoded by Serialize.
func (r *Registry) Deserialize(data []byte) (models.Component, error) {
	if len(data) < TagSize {
		return nil, ErrTruncated
	}
	tag := TypeTag(binary.LittleEndian.Uint64(data))

	r.mu.RLock()
	e, ok := r.byTag[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("deserialize tag %#x: %w", uint64(tag), ErrUnknownTypeTag)
	}
	return e.decode(data[TagSize:])
}

// DecodeNamed decodes a bare JSON body for a type named by its key. Scene
// files use this form since they carry names rather than tags.
func (r *Registry) DecodeNamed(t models.ComponentType, body []byte) (models.Component, error) {
	r.mu.RLock()
	decode, ok := r.local[t]
	if tag, tagged := r.byType[t]; tagged {
		decode, ok = r.byTag[tag].decode, true
	}
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("decode %s: %w", t, ErrUnregisteredType)
	}
	return decode(body)
}
