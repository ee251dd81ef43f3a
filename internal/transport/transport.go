// Package transport defines the boundary between the simulation core and the
// network. Implementations deliver frames asynchronously; handlers run on the
// implementation's I/O goroutines and must not touch the entity registry.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// PeerID identifies one connection.
type PeerID uuid.UUID

// ServerPeer is the peer id an observer attributes to the authoritative node.
var ServerPeer = PeerID(uuid.Nil)

func NewPeerID() PeerID {
	return PeerID(uuid.New())
}

func ParsePeerID(s string) (PeerID, error) {
	id, err := uuid.Parse(s)
	return PeerID(id), err
}

func (id PeerID) String() string {
	return uuid.UUID(id).String()
}

func (id PeerID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *PeerID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}

// MessageType is the first byte of every frame.
type MessageType uint8

const (
	MessageFullSnapshot MessageType = iota + 1
	MessageDeltaSnapshot
	MessageSpawnRequest
	MessageShotRequest
)

func (t MessageType) String() string {
	switch t {
	case MessageFullSnapshot:
		return "full_snapshot"
	case MessageDeltaSnapshot:
		return "delta_snapshot"
	case MessageSpawnRequest:
		return "spawn_request"
	case MessageShotRequest:
		return "shot_request"
	default:
		return "unknown"
	}
}

func (t MessageType) Valid() bool {
	return t >= MessageFullSnapshot && t <= MessageShotRequest
}

// Delivery is the guarantee requested for a message. Every message the core
// sends today is ReliableOrdered.
type Delivery uint8

const (
	ReliableOrdered Delivery = iota
	Unreliable
)

type (
	MessageHandler func(peer PeerID, typ MessageType, payload []byte)
	PeerHandler    func(peer PeerID)
)

// Transport is the collaborator the server and client nodes send through.
// Send and Broadcast never block on the remote side.
type Transport interface {
	Send(peer PeerID, typ MessageType, payload []byte, delivery Delivery) error
	Broadcast(typ MessageType, payload []byte, delivery Delivery) error
	OnMessageReceived(handler MessageHandler)
	OnPeerConnected(handler PeerHandler)
	OnPeerDisconnected(handler PeerHandler)
	Close() error
}

// LatencyEstimator reports the current round-trip estimate of a connection.
type LatencyEstimator interface {
	RTT() time.Duration
}
