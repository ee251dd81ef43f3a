package replication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/codec"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
)

func TestProducerNewEntity(t *testing.T) {
	codecs, _ := newCodecs(t)
	r := models.NewEntityRegistry()
	e := spawn(t, r, health{Current: 100}, label{Value: "orc"}, secret{Plan: "flank"})
	r.CreateEntity().Set(health{Current: 1}) // not replicated

	p := NewProducer(codecs)
	msg, err := p.Produce(r, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), msg.Tick)
	require.False(t, msg.Full)
	require.Len(t, msg.Deltas, 1)

	d := msg.Deltas[0]
	require.Equal(t, e.ID(), d.EntityID)
	require.True(t, d.IsNew)
	require.False(t, d.IsDestroyed)
	require.Equal(t, []models.Component{health{Current: 100}, label{Value: "orc"}, models.Replicated{}}, d.AddedOrModified)
	require.Empty(t, d.Removed)
	require.Equal(t, 1, p.Observed())
}

func TestProducerUnchangedYieldsNothing(t *testing.T) {
	codecs, _ := newCodecs(t)
	r := models.NewEntityRegistry()
	e := spawn(t, r, health{Current: 100})

	p := NewProducer(codecs)
	_, err := p.Produce(r, 1)
	require.NoError(t, err)

	e.Set(health{Current: 100})
	e.Set(secret{Plan: "changes are invisible"})
	msg, err := p.Produce(r, 2)
	require.NoError(t, err)
	require.Empty(t, msg.Deltas)
}

func TestProducerModifiedComponent(t *testing.T) {
	codecs, _ := newCodecs(t)
	r := models.NewEntityRegistry()
	e := spawn(t, r, health{Current: 100}, label{Value: "orc"})

	p := NewProducer(codecs)
	_, err := p.Produce(r, 1)
	require.NoError(t, err)

	e.Set(health{Current: 75})
	msg, err := p.Produce(r, 2)
	require.NoError(t, err)
	require.Len(t, msg.Deltas, 1)
	d := msg.Deltas[0]
	require.False(t, d.IsNew)
	require.Equal(t, []models.Component{health{Current: 75}}, d.AddedOrModified)
	require.Empty(t, d.Removed)
}

func TestProducerAddedAndRemovedComponents(t *testing.T) {
	codecs, _ := newCodecs(t)
	r := models.NewEntityRegistry()
	e := spawn(t, r, health{Current: 100}, label{Value: "orc"})

	p := NewProducer(codecs)
	_, err := p.Produce(r, 1)
	require.NoError(t, err)

	e.Remove("label")
	e.Set(position{X: 2})
	msg, err := p.Produce(r, 2)
	require.NoError(t, err)
	require.Len(t, msg.Deltas, 1)
	d := msg.Deltas[0]
	require.Equal(t, []models.Component{position{X: 2}}, d.AddedOrModified)
	require.Equal(t, []codec.TypeTag{codec.TagOf("label")}, d.Removed)
}

func TestProducerDestroyedEntity(t *testing.T) {
	codecs, _ := newCodecs(t)
	r := models.NewEntityRegistry()
	doomed := spawn(t, r, health{Current: 10}, secret{})
	kept := spawn(t, r, health{Current: 10})

	p := NewProducer(codecs)
	_, err := p.Produce(r, 1)
	require.NoError(t, err)

	require.True(t, r.DestroyEntity(doomed.ID()))
	msg, err := p.Produce(r, 2)
	require.NoError(t, err)
	require.Equal(t, []EntityDelta{{EntityID: doomed.ID(), IsDestroyed: true}}, msg.Deltas)

	msg, err = p.Produce(r, 3)
	require.NoError(t, err)
	require.Empty(t, msg.Deltas, "destruction is reported once")
	_, ok := deltaFor(msg, kept.ID())
	require.False(t, ok)
}

func TestProducerLosingReplicatedTag(t *testing.T) {
	codecs, _ := newCodecs(t)
	r := models.NewEntityRegistry()
	e := spawn(t, r, health{Current: 10})

	p := NewProducer(codecs)
	_, err := p.Produce(r, 1)
	require.NoError(t, err)

	e.Remove(models.ReplicatedType)
	msg, err := p.Produce(r, 2)
	require.NoError(t, err)
	require.Equal(t, []EntityDelta{{EntityID: e.ID(), IsDestroyed: true}}, msg.Deltas)

	require.NoError(t, e.Add(models.Replicated{}))
	msg, err = p.Produce(r, 3)
	require.NoError(t, err)
	require.Len(t, msg.Deltas, 1)
	require.True(t, msg.Deltas[0].IsNew)
}

func TestProducerUnregisteredComponent(t *testing.T) {
	codecs := codec.NewRegistry()
	r := models.NewEntityRegistry()
	spawn(t, r, health{Current: 1})

	_, err := NewProducer(codecs).Produce(r, 1)
	require.ErrorIs(t, err, codec.ErrUnregisteredType)
}

func TestProducerFullStateKeepsBaseline(t *testing.T) {
	codecs, _ := newCodecs(t)
	r := models.NewEntityRegistry()
	a := spawn(t, r, health{Current: 1})
	p := NewProducer(codecs)
	_, err := p.Produce(r, 1)
	require.NoError(t, err)

	b := spawn(t, r, label{Value: "late"})
	full, err := p.FullState(r, 2)
	require.NoError(t, err)
	require.True(t, full.Full)
	require.Len(t, full.Deltas, 2)
	for _, d := range full.Deltas {
		assert.True(t, d.IsNew)
		assert.NotEmpty(t, d.AddedOrModified)
	}

	msg, err := p.Produce(r, 2)
	require.NoError(t, err)
	require.Len(t, msg.Deltas, 1)
	require.Equal(t, b.ID(), msg.Deltas[0].EntityID)
	require.True(t, msg.Deltas[0].IsNew)
	_, ok := deltaFor(msg, a.ID())
	require.False(t, ok)

	p.Reset()
	require.Zero(t, p.Observed())
	msg, err = p.Produce(r, 3)
	require.NoError(t, err)
	require.Len(t, msg.Deltas, 2)
	created, modified, destroyed := msg.Counts()
	require.Equal(t, []int{2, 0, 0}, []int{created, modified, destroyed})
}
