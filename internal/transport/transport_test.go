package transport

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame(t *testing.T) {
	frame := EncodeFrame(MessageDeltaSnapshot, []byte("abc"))
	require.Equal(t, byte(MessageDeltaSnapshot), frame[0])

	typ, payload, err := DecodeFrame(frame)
	require.NoError(t, err)
	require.Equal(t, MessageDeltaSnapshot, typ)
	require.Equal(t, []byte("abc"), payload)

	_, _, err = DecodeFrame(nil)
	require.ErrorIs(t, err, ErrEmptyFrame)
	_, _, err = DecodeFrame([]byte{0xff})
	require.ErrorIs(t, err, ErrUnknownMessageType)
}

func TestPeerIDText(t *testing.T) {
	id := NewPeerID()
	data, err := json.Marshal(struct {
		Peer PeerID `json:"peer"`
	}{id})
	require.NoError(t, err)
	require.Contains(t, string(data), id.String())

	parsed, err := ParsePeerID(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
	assert.Equal(t, "delta_snapshot", MessageDeltaSnapshot.String())
}

type received struct {
	peer    PeerID
	typ     MessageType
	payload string
}

type recorder struct {
	mu   sync.Mutex
	msgs []received
}

func (r *recorder) handle(peer PeerID, typ MessageType, payload []byte) {
	r.mu.Lock()
	r.msgs = append(r.msgs, received{peer, typ, string(payload)})
	r.mu.Unlock()
}

func (r *recorder) all() []received {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]received(nil), r.msgs...)
}

func TestLoopbackInline(t *testing.T) {
	server := NewLoopbackServer()
	var connected, disconnected []PeerID
	server.OnPeerConnected(func(p PeerID) { connected = append(connected, p) })
	server.OnPeerDisconnected(func(p PeerID) { disconnected = append(disconnected, p) })
	var fromClients recorder
	server.OnMessageReceived(fromClients.handle)

	a, err := server.Connect(0)
	require.NoError(t, err)
	b, err := server.Connect(0)
	require.NoError(t, err)
	require.Equal(t, []PeerID{a.ID(), b.ID()}, connected)
	require.Equal(t, 2, server.Peers())

	var atA, atB recorder
	a.OnMessageReceived(atA.handle)
	b.OnMessageReceived(atB.handle)

	require.NoError(t, server.Broadcast(MessageDeltaSnapshot, []byte("d1"), ReliableOrdered))
	require.NoError(t, server.Send(b.ID(), MessageFullSnapshot, []byte("f1"), ReliableOrdered))
	require.NoError(t, a.Send(ServerPeer, MessageSpawnRequest, []byte("spawn"), ReliableOrdered))

	require.Equal(t, []received{{ServerPeer, MessageDeltaSnapshot, "d1"}}, atA.all())
	require.Equal(t, []received{
		{ServerPeer, MessageDeltaSnapshot, "d1"},
		{ServerPeer, MessageFullSnapshot, "f1"},
	}, atB.all())
	require.Equal(t, []received{{a.ID(), MessageSpawnRequest, "spawn"}}, fromClients.all())

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	require.Equal(t, []PeerID{a.ID()}, disconnected)
	require.ErrorIs(t, server.Send(a.ID(), MessageDeltaSnapshot, nil, ReliableOrdered), ErrUnknownPeer)
	require.ErrorIs(t, a.Send(ServerPeer, MessageShotRequest, nil, ReliableOrdered), ErrClosed)

	require.NoError(t, server.Close())
	require.Equal(t, []PeerID{a.ID(), b.ID()}, disconnected)
	_, err = server.Connect(0)
	require.ErrorIs(t, err, ErrClosed)
}

func TestLoopbackLatencyPreservesOrder(t *testing.T) {
	server := NewLoopbackServer()
	defer server.Close()
	c, err := server.Connect(5 * time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 10*time.Millisecond, c.RTT())

	var got recorder
	c.OnMessageReceived(got.handle)

	start := time.Now()
	for _, p := range []string{"1", "2", "3"} {
		require.NoError(t, server.Broadcast(MessageDeltaSnapshot, []byte(p), ReliableOrdered))
	}
	require.Eventually(t, func() bool { return len(got.all()) == 3 }, time.Second, time.Millisecond)
	require.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)

	msgs := got.all()
	require.Equal(t, "1", msgs[0].payload)
	require.Equal(t, "2", msgs[1].payload)
	require.Equal(t, "3", msgs[2].payload)
}

func TestLoopbackCopiesPayload(t *testing.T) {
	server := NewLoopbackServer()
	c, err := server.Connect(0)
	require.NoError(t, err)
	var got recorder
	c.OnMessageReceived(got.handle)

	buf := []byte("abc")
	require.NoError(t, server.Broadcast(MessageDeltaSnapshot, buf, ReliableOrdered))
	buf[0] = 'z'
	require.Equal(t, "abc", got.all()[0].payload)
}
