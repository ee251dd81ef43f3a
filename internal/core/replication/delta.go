// Package replication turns the authoritative registry into per-tick deltas
// and applies received deltas to an observer's registry.
package replication

import (
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/codec"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
)

// EntityDelta is the change of one entity in one producer tick.
// A destroyed delta carries no component lists.
type EntityDelta struct {
	EntityID        models.EntityID
	IsNew           bool
	IsDestroyed     bool
	AddedOrModified []models.Component
	Removed         []codec.TypeTag
}

// Empty reports whether the delta describes no observable change.
func (d EntityDelta) Empty() bool {
	return !d.IsNew && !d.IsDestroyed && len(d.AddedOrModified) == 0 && len(d.Removed) == 0
}

// WorldDeltaMessage is the set of entity deltas for one tick. In the full
// form every replicated entity is present with IsNew set.
type WorldDeltaMessage struct {
	Tick   uint64
	Full   bool
	Deltas []EntityDelta
}

// Counts returns the number of new, modified and destroyed deltas.
func (m WorldDeltaMessage) Counts() (created, modified, destroyed int) {
	for _, d := range m.Deltas {
		switch {
		case d.IsDestroyed:
			destroyed++
		case d.IsNew:
			created++
		default:
			modified++
		}
	}
	return created, modified, destroyed
}
