package models

import "github.com/google/uuid"

// EntityID is an opaque 128-bit identifier, generated at creation time and
// never reused.
type EntityID uuid.UUID

// NilEntityID is the zero identifier. No live entity ever carries it.
var NilEntityID EntityID

func NewEntityID() EntityID {
	return EntityID(uuid.New())
}

// ParseEntityID parses the canonical textual form of an id.
func ParseEntityID(s string) (EntityID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NilEntityID, err
	}
	return EntityID(id), nil
}

func (id EntityID) String() string {
	return uuid.UUID(id).String()
}

func (id EntityID) IsNil() bool {
	return id == NilEntityID
}

func (id EntityID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *EntityID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}
