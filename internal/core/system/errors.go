package system

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyRunning = errors.New("world is already running")
	ErrStopped        = errors.New("world is stopped")
	ErrNilSystem      = errors.New("nil system")
	ErrTickOverflow   = errors.New("tick counter reached its ceiling")
	ErrSystemPanic    = errors.New("system panicked")
)

// TickError reports the system that failed and the tick it failed on.
type TickError struct {
	Tick   uint64
	System string
	Err    error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("tick %d: system %s: %v", e.Tick, e.System, e.Err)
}

func (e *TickError) Unwrap() error {
	return e.Err
}
