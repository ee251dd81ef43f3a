package server

import "errors"

// Server-specific errors
var (
	ErrUnexpectedMessage = errors.New("unexpected message type")
	ErrListenerFailed    = errors.New("failed to create listener")
	ErrShutdown          = errors.New("shutdown failed")
)
