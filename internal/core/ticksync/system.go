package ticksync

import (
	"time"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
)

// TickSource reports the latest authoritative tick observed.
type TickSource interface {
	LatestTick() uint64
}

// TickSourceFunc adapts a function, such as the authoritative world's Tick,
// into a TickSource.
type TickSourceFunc func() uint64

func (f TickSourceFunc) LatestTick() uint64 { return f() }

// LatencyEstimator reports the round-trip estimate of the connection.
type LatencyEstimator interface {
	RTT() time.Duration
}

// System updates one TickSync per tick. It does nothing until the source
// has reported a tick, then seeds the local tick at the server tick.
type System struct {
	state   *TickSync
	source  TickSource
	latency LatencyEstimator
}

// NewSystem returns a system updating state. latency may be nil, in which
// case a zero latency is assumed.
func NewSystem(state *TickSync, source TickSource, latency LatencyEstimator) *System {
	return &System{state: state, source: source, latency: latency}
}

func (s *System) Name() string {
	return "ticksync"
}

func (s *System) Update(_ *models.EntityRegistry, _ uint64, dt time.Duration) error {
	serverTick := s.source.LatestTick()
	if serverTick == 0 {
		return nil
	}
	if s.state.ClientTick() == 0 {
		s.state.SetClientTick(serverTick)
	}
	var latency time.Duration
	if s.latency != nil {
		latency = s.latency.RTT() / 2
	}
	s.state.Update(serverTick, latency, dt)
	return nil
}

// Sync returns the state the system updates.
func (s *System) Sync() *TickSync {
	return s.state
}
