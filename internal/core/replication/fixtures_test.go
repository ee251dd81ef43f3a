package replication

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/codec"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/prediction"
)

type health struct {
	Current int `json:"current"`
}

func (health) ComponentType() models.ComponentType { return "health" }

type label struct {
	Value string `json:"value"`
}

func (label) ComponentType() models.ComponentType { return "label" }

type position struct {
	X float64 `json:"x"`
}

func (position) ComponentType() models.ComponentType { return "position" }

type cursor struct {
	Visible bool
}

func (cursor) ComponentType() models.ComponentType { return "cursor" }

type secret struct {
	Plan string
}

func (secret) ComponentType() models.ComponentType { return "secret" }
func (secret) ServerOnly()                         {}

func newCodecs(t *testing.T) (*codec.Registry, *prediction.Table) {
	t.Helper()
	codecs := codec.NewRegistry()
	codec.MustRegister[health](codecs)
	codec.MustRegister[label](codecs)
	codec.MustRegister[position](codecs)
	table := prediction.NewTable()
	require.NoError(t, prediction.Register[position](table, codecs))
	return codecs, table
}

func spawn(t *testing.T, r *models.EntityRegistry, components ...models.Component) *models.Entity {
	t.Helper()
	e := r.CreateEntity()
	require.NoError(t, e.Add(models.Replicated{}))
	for _, c := range components {
		require.NoError(t, e.Add(c))
	}
	return e
}

func deltaFor(msg WorldDeltaMessage, id models.EntityID) (EntityDelta, bool) {
	for _, d := range msg.Deltas {
		if d.EntityID == id {
			return d, true
		}
	}
	return EntityDelta{}, false
}
