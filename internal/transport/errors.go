package transport

import "errors"

var (
	ErrClosed             = errors.New("transport closed")
	ErrUnknownPeer        = errors.New("unknown peer")
	ErrSlowPeer           = errors.New("peer send queue full")
	ErrEmptyFrame         = errors.New("empty frame")
	ErrUnknownMessageType = errors.New("unknown message type")
)
