// Package ticksync keeps an observer's local tick a few ticks ahead of the
// authoritative tick, enough to cover the connection latency.
package ticksync

import (
	"sync"
	"time"
)

const (
	// MinLead is the number of ticks the observer runs ahead of the
	// authoritative tick on a zero-latency link.
	MinLead = 2
	// SmoothStep is how far the local tick advances per tick while catching up.
	SmoothStep = 2
	// DriftTolerance is how far beyond the target lead the local tick may
	// run before it stalls.
	DriftTolerance = 10
	// Smoothing is the exponential smoothing factor of SmoothedTick.
	Smoothing = 0.1
)

// TickSync is the alignment state of one connection. It is mutated once per
// tick by the owning System and may be read concurrently.
type TickSync struct {
	mu            sync.RWMutex
	authoritative bool
	serverTick    uint64
	clientTick    uint64
	smoothedTick  float64
	primed        bool
}

// New returns the state of an observer connection.
func New() *TickSync {
	return &TickSync{}
}

// NewAuthoritative returns the state of the authoritative node, whose local
// tick is always the server tick.
func NewAuthoritative() *TickSync {
	return &TickSync{authoritative: true}
}

// Update folds in the latest authoritative tick and the current latency
// estimate and advances the local tick by 0, 1 or SmoothStep.
func (s *TickSync) Update(serverTick uint64, latency, fixedDelta time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.serverTick = serverTick
	if !s.primed {
		s.smoothedTick = float64(serverTick)
		s.primed = true
	} else {
		s.smoothedTick += (float64(serverTick) - s.smoothedTick) * Smoothing
	}

	if s.authoritative {
		s.clientTick = serverTick
		return
	}

	target := TargetOffset(latency, fixedDelta)
	current := int64(s.clientTick) - int64(serverTick)
	switch {
	case current < target:
		s.clientTick += SmoothStep
	case current > target+DriftTolerance:
	default:
		s.clientTick++
	}
}

// TargetOffset is the lead, in ticks, required to cover latency.
func TargetOffset(latency, fixedDelta time.Duration) int64 {
	if fixedDelta <= 0 || latency < 0 {
		return MinLead
	}
	return int64(latency/fixedDelta) + MinLead
}

func (s *TickSync) ServerTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serverTick
}

func (s *TickSync) ClientTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientTick
}

// SmoothedTick is for presentation interpolation only.
func (s *TickSync) SmoothedTick() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.smoothedTick
}

// Offset is the current lead of the local tick over the server tick.
func (s *TickSync) Offset() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(s.clientTick) - int64(s.serverTick)
}

// Authoritative reports whether this is the authoritative node's state.
func (s *TickSync) Authoritative() bool {
	return s.authoritative
}

// SetClientTick seeds the local tick, typically when the first authoritative
// message arrives.
func (s *TickSync) SetClientTick(tick uint64) {
	s.mu.Lock()
	s.clientTick = tick
	s.mu.Unlock()
}
