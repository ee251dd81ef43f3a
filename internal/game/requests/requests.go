// Package requests carries player intents from the transport to the tick
// thread of the authoritative node.
package requests

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/physics"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/transport"
	"github.com/dcasadevall/multiplayer-prototype-sub001/pkg/concurrent"
)

var ErrUnsupportedRequest = errors.New("unsupported request type")

type Kind uint8

const (
	KindSpawn Kind = iota + 1
	KindShot
	// KindLeave is raised locally when a peer disconnects.
	KindLeave
)

type Spawn struct {
	Name     string       `json:"name"`
	Position physics.Vec3 `json:"position"`
}

type Shot struct {
	Direction physics.Vec3 `json:"direction"`
}

// Request is one decoded intent. Only the field matching Kind is set.
type Request struct {
	Peer  transport.PeerID
	Kind  Kind
	Spawn Spawn
	Shot  Shot
}

// Encode returns the message type and payload for a client intent.
func Encode(v any) (transport.MessageType, []byte, error) {
	var typ transport.MessageType
	switch v.(type) {
	case Spawn:
		typ = transport.MessageSpawnRequest
	case Shot:
		typ = transport.MessageShotRequest
	default:
		return 0, nil, fmt.Errorf("encode %T: %w", v, ErrUnsupportedRequest)
	}
	payload, err := json.Marshal(v)
	return typ, payload, err
}

// Decode parses a request frame received from peer.
func Decode(peer transport.PeerID, typ transport.MessageType, payload []byte) (Request, error) {
	req := Request{Peer: peer}
	var err error
	switch typ {
	case transport.MessageSpawnRequest:
		req.Kind = KindSpawn
		err = json.Unmarshal(payload, &req.Spawn)
	case transport.MessageShotRequest:
		req.Kind = KindShot
		err = json.Unmarshal(payload, &req.Shot)
	default:
		return Request{}, fmt.Errorf("decode %s: %w", typ, ErrUnsupportedRequest)
	}
	if err != nil {
		return Request{}, fmt.Errorf("decode %s from %s: %w", typ, peer, err)
	}
	return req, nil
}

// Inbox queues decoded requests until the tick thread drains them.
type Inbox struct {
	queue *concurrent.Queue[Request]
}

func NewInbox() *Inbox {
	return &Inbox{queue: concurrent.NewQueue[Request]()}
}

func (i *Inbox) Push(req Request) {
	i.queue.Push(req)
}

func (i *Inbox) Drain() []Request {
	return i.queue.Drain()
}

func (i *Inbox) Len() int {
	return i.queue.Len()
}
