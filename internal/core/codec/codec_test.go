package codec

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
)

type health struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

func (health) ComponentType() models.ComponentType { return "health" }

type label struct {
	Value string            `json:"value"`
	Owner models.EntityID   `json:"owner"`
	Tags  map[string]string `json:"tags,omitempty"`
}

func (label) ComponentType() models.ComponentType { return "label" }

type secret struct{ Seed int }

func (secret) ComponentType() models.ComponentType { return "secret" }
func (secret) ServerOnly()                         {}

func TestRegistry(t *testing.T) {
	t.Run("Round trip preserves concrete type", func(t *testing.T) {
		r := NewRegistry()
		MustRegister[health](r)
		MustRegister[label](r)

		values := []models.Component{
			health{Current: 75, Max: 100},
			label{Value: "crate", Owner: models.NewEntityID(), Tags: map[string]string{"k": "v"}},
			models.Replicated{},
		}
		for _, c := range values {
			data, err := r.Serialize(c)
			require.NoError(t, err)
			back, err := r.Deserialize(data)
			require.NoError(t, err)
			require.Equal(t, c, back)
		}
	})

	t.Run("Tag heads the payload", func(t *testing.T) {
		r := NewRegistry()
		MustRegister[health](r)
		data, err := r.Serialize(health{Current: 1})
		require.NoError(t, err)
		require.Equal(t, uint64(TagOf("health")), binary.LittleEndian.Uint64(data))
	})

	t.Run("Unknown tag is rejected", func(t *testing.T) {
		producer := NewRegistry()
		MustRegister[health](producer)
		data, err := producer.Serialize(health{})
		require.NoError(t, err)

		_, err = NewRegistry().Deserialize(data)
		require.ErrorIs(t, err, ErrUnknownTypeTag)
		_, err = producer.Deserialize(data[:3])
		require.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("Registration guards", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, Register[health](r))
		require.ErrorIs(t, Register[health](r), ErrDuplicateType)
		require.ErrorIs(t, Register[secret](r), ErrServerOnly)

		_, err := r.Serialize(secret{})
		require.ErrorIs(t, err, ErrServerOnly)
		_, err = r.Serialize(label{})
		require.ErrorIs(t, err, ErrUnregisteredType)
	})

	t.Run("Named decode", func(t *testing.T) {
		r := NewRegistry()
		MustRegister[health](r)
		c, err := r.DecodeNamed("health", []byte(`{"current":10,"max":20}`))
		require.NoError(t, err)
		require.Equal(t, health{Current: 10, Max: 20}, c)

		_, err = r.DecodeNamed("missing", []byte(`{}`))
		require.ErrorIs(t, err, ErrUnregisteredType)
	})

	t.Run("Local types decode by name only", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, RegisterLocal[secret](r))
		require.ErrorIs(t, RegisterLocal[secret](r), ErrDuplicateType)
		require.False(t, r.Registered("secret"))

		c, err := r.DecodeNamed("secret", []byte(`{"Seed":7}`))
		require.NoError(t, err)
		require.Equal(t, secret{Seed: 7}, c)

		_, err = r.Serialize(secret{Seed: 7})
		require.ErrorIs(t, err, ErrServerOnly)

		MustRegister[health](r)
		require.ErrorIs(t, RegisterLocal[health](r), ErrDuplicateType)
	})
}
