package scene

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/codec"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/components"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/physics"
)

const arena = `
entities:
  - id: 2b4c6f55-8f8e-4f51-9d1c-2a4b3d2f9c01
    components:
      name: {value: guard}
      transform: {position: {x: 1, y: 0, z: 2}}
      velocity: {linear: {x: 1}}
      health: {current: 50, max: 50}
      collider: {radius: 0.5}
      ai_state: {mode: patrol, range: 4}
  - replicated: false
    components:
      transform: {position: {x: 0, y: 0, z: 0}}
`

func TestSceneMessage(t *testing.T) {
	codecs, _, err := components.NewCodecs()
	require.NoError(t, err)

	s, err := Decode(strings.NewReader(arena))
	require.NoError(t, err)
	msg, err := s.Message(codecs)
	require.NoError(t, err)
	require.True(t, msg.Full)
	require.Len(t, msg.Deltas, 2)

	guard := msg.Deltas[0]
	require.Equal(t, "2b4c6f55-8f8e-4f51-9d1c-2a4b3d2f9c01", guard.EntityID.String())
	require.True(t, guard.IsNew)
	require.Equal(t, []models.Component{
		models.Replicated{},
		components.AIState{Mode: "patrol", Range: 4},
		components.Collider{Radius: 0.5},
		components.Health{Current: 50, Max: 50},
		components.Name{Value: "guard"},
		components.Transform{Position: physics.V3(1, 0, 2)},
		components.Velocity{Linear: physics.V3(1, 0, 0)},
	}, guard.AddedOrModified)

	prop := msg.Deltas[1]
	require.False(t, prop.EntityID.IsNil())
	require.Equal(t, []models.Component{components.Transform{}}, prop.AddedOrModified)
}

func TestSceneApply(t *testing.T) {
	codecs, _, err := components.NewCodecs()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "arena.yaml")
	require.NoError(t, os.WriteFile(path, []byte(arena), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	r := models.NewEntityRegistry()
	// Loading twice must not duplicate the entity with a fixed id.
	_, err = s.Apply(r, codecs)
	require.NoError(t, err)
	stats, err := s.Apply(r, codecs)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Created, "only the entity without an id is new")
	require.Equal(t, 3, r.Len())

	id, err := models.ParseEntityID("2b4c6f55-8f8e-4f51-9d1c-2a4b3d2f9c01")
	require.NoError(t, err)
	guard, ok := r.TryGet(id)
	require.True(t, ok)
	require.True(t, models.IsServerOnly(models.Get[components.AIState](guard)))
}

func TestSceneErrors(t *testing.T) {
	codecs, _, err := components.NewCodecs()
	require.NoError(t, err)

	for name, doc := range map[string]string{
		"bad id":       "entities: [{id: nope}]",
		"duplicate id": "entities: [{id: 2b4c6f55-8f8e-4f51-9d1c-2a4b3d2f9c01}, {id: 2b4c6f55-8f8e-4f51-9d1c-2a4b3d2f9c01}]",
	} {
		s, err := Decode(strings.NewReader(doc))
		require.NoError(t, err, name)
		_, err = s.Message(codecs)
		require.ErrorIs(t, err, ErrInvalidScene, name)
	}

	s, err := Decode(strings.NewReader("entities: [{components: {unknown: {}}}]"))
	require.NoError(t, err)
	_, err = s.Message(codecs)
	require.ErrorIs(t, err, codec.ErrUnregisteredType)

	_, err = Decode(strings.NewReader("entities: {"))
	require.Error(t, err)
}

func TestShippedArena(t *testing.T) {
	codecs, _, err := components.NewCodecs()
	require.NoError(t, err)

	s, err := Load(filepath.Join("..", "..", "configs", "arena.yaml"))
	require.NoError(t, err)
	r := models.NewEntityRegistry()
	stats, err := s.Apply(r, codecs)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Created)
	require.Equal(t, 2, r.WithAll(components.AIStateType).Count())
}
