package system

import (
	"sync"
	"time"
)

// Clock is the time source that paces the world loop.
type Clock interface {
	Now() time.Time
	NewTicker(period time.Duration) Ticker
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// acker is implemented by tickers that wait for each delivered tick to be
// processed. The world loop acks after every tick it receives.
type acker interface {
	ack()
}

func ackTick(t Ticker) {
	if a, ok := t.(acker); ok {
		a.ack()
	}
}

// RealClock paces the loop with time.Ticker.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) NewTicker(period time.Duration) Ticker {
	return realTicker{t: time.NewTicker(period)}
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// ManualClock is a deterministic clock. Advance hands every elapsed tick to
// the loop and waits until the loop has finished with it, so when Advance
// returns every due tick has run.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) NewTicker(period time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{
		period:  period,
		next:    c.now.Add(period),
		ch:      make(chan time.Time),
		acks:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves time forward by d and delivers the ticks that became due.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*manualTicker(nil), c.tickers...)
	c.mu.Unlock()

	for _, t := range tickers {
		for !t.next.After(now) {
			at := t.next
			t.next = t.next.Add(t.period)
			if !t.deliver(at) {
				break
			}
		}
	}
}

type manualTicker struct {
	period   time.Duration
	next     time.Time
	ch       chan time.Time
	acks     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.stopOnce.Do(func() { close(t.stopped) })
}

func (t *manualTicker) ack() {
	select {
	case t.acks <- struct{}{}:
	case <-t.stopped:
	}
}

// deliver hands at to the receiver and waits for its ack.
func (t *manualTicker) deliver(at time.Time) bool {
	select {
	case <-t.stopped:
		return false
	default:
	}
	select {
	case t.ch <- at:
	case <-t.stopped:
		return false
	}
	select {
	case <-t.acks:
		return true
	case <-t.stopped:
		return false
	}
}
