package system

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/observability/log"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/observability/metrics"
)

// State of the world loop. Transitions are Created -> Running -> Stopped.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config holds scheduler settings.
type Config struct {
	// TickRate is the number of ticks per second.
	TickRate int
	// MaxTick is the last tick number the world will run. Reaching it stops
	// the world with ErrTickOverflow.
	MaxTick uint64
}

func DefaultConfig() Config {
	return Config{
		TickRate: 50,
		MaxTick:  math.MaxUint64,
	}
}

// FixedDelta is the simulated time covered by one tick.
func (c Config) FixedDelta() time.Duration {
	if c.TickRate <= 0 {
		return time.Second / time.Duration(DefaultConfig().TickRate)
	}
	return time.Second / time.Duration(c.TickRate)
}

type Option func(*World)

func WithClock(clock Clock) Option {
	return func(w *World) { w.clock = clock }
}

func WithLogger(logger log.Log) Option {
	return func(w *World) { w.logger = logger }
}

func WithMetrics(collector *metrics.WorldCollector) Option {
	return func(w *World) { w.metrics = collector }
}

// WithRegistry lets the world drive an existing registry.
func WithRegistry(registry *models.EntityRegistry) Option {
	return func(w *World) { w.registry = registry }
}

// World runs registered systems at a fixed tick rate on a single goroutine.
// All registry mutation happens inside that loop.
type World struct {
	cfg      Config
	period   time.Duration
	registry *models.EntityRegistry
	systems  []registration

	clock   Clock
	logger  log.Log
	metrics *metrics.WorldCollector

	mu       sync.Mutex
	state    atomic.Int32
	tick     atomic.Uint64
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	doneOnce sync.Once
	err      error
}

func NewWorld(cfg Config, opts ...Option) *World {
	if cfg.MaxTick == 0 {
		cfg.MaxTick = math.MaxUint64
	}
	w := &World{
		cfg:    cfg,
		period: cfg.FixedDelta(),
		clock:  RealClock{},
		logger: log.Provide(),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.registry == nil {
		w.registry = models.NewEntityRegistry()
	}
	w.logger = w.logger.With(log.String("component", "world"))
	return w
}

func (w *World) Registry() *models.EntityRegistry { return w.registry }

func (w *World) FixedDelta() time.Duration { return w.period }

func (w *World) State() State { return State(w.state.Load()) }

// Tick returns the number of the last tick that started.
func (w *World) Tick() uint64 { return w.tick.Load() }

// Register appends a system. Systems run in registration order, so systems
// that apply replicated state must be registered before gameplay systems.
func (w *World) Register(sys System, opts ...RegisterOption) error {
	if sys == nil {
		return ErrNilSystem
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkCreated(); err != nil {
		return err
	}
	reg := registration{system: sys, interval: 1}
	for _, opt := range opts {
		opt(&reg)
	}
	w.systems = append(w.systems, reg)
	return nil
}

// Start launches the tick loop. It fails unless the world is in Created.
// Cancelling ctx stops the loop like Stop does.
func (w *World) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkCreated(); err != nil {
		return err
	}
	ticker := w.clock.NewTicker(w.period)
	w.state.Store(int32(StateRunning))
	w.logger.Info("world started",
		log.Int("tick_rate", w.cfg.TickRate),
		log.Int("systems", len(w.systems)),
	)
	go w.loop(ctx, ticker)
	return nil
}

// Step runs exactly one tick on the calling goroutine. It is meant for tools
// and tests that drive the simulation by hand and is only valid before Start.
func (w *World) Step() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkCreated(); err != nil {
		return err
	}
	if err := w.step(); err != nil {
		w.finish(err)
		return err
	}
	return nil
}

// Stop halts the loop and waits for it to exit. No system runs after Stop
// returns. It is idempotent and safe from any goroutine except the tick
// goroutine itself; a system that wants to stop the world returns an error.
func (w *World) Stop() {
	w.mu.Lock()
	if w.State() == StateCreated {
		w.finish(nil)
	}
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.mu.Unlock()
	<-w.done
}

// Wait blocks until the world stops and returns the error that stopped it,
// if any.
func (w *World) Wait() error {
	<-w.done
	return w.err
}

// Done is closed once the world has stopped.
func (w *World) Done() <-chan struct{} { return w.done }

func (w *World) checkCreated() error {
	switch w.State() {
	case StateRunning:
		return ErrAlreadyRunning
	case StateStopped:
		return ErrStopped
	}
	return nil
}

func (w *World) loop(ctx context.Context, ticker Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-w.stopCh:
			w.finish(nil)
			return
		case <-ctx.Done():
			w.finish(nil)
			return
		case <-ticker.C():
		}

		if !w.runTick() {
			ackTick(ticker)
			return
		}
		ackTick(ticker)
	}
}

// runTick steps once unless Stop won the race for this tick. It reports
// whether the loop should continue.
func (w *World) runTick() bool {
	select {
	case <-w.stopCh:
		w.finish(nil)
		return false
	default:
	}
	if err := w.step(); err != nil {
		w.finish(err)
		return false
	}
	return true
}

func (w *World) step() error {
	if w.tick.Load() >= w.cfg.MaxTick {
		return fmt.Errorf("tick %d: %w", w.tick.Load(), ErrTickOverflow)
	}
	tick := w.tick.Add(1)
	started := time.Now()

	for _, reg := range w.systems {
		if !reg.due(tick) {
			continue
		}
		if err := w.run(reg.system, tick); err != nil {
			w.metrics.SystemFailed(reg.system.Name())
			return &TickError{Tick: tick, System: reg.system.Name(), Err: err}
		}
	}

	w.metrics.ObserveTick(time.Since(started), w.registry.Len())
	return nil
}

func (w *World) run(sys System, tick uint64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok {
				err = errors.Join(ErrSystemPanic, rerr)
				return
			}
			err = fmt.Errorf("%w: %v", ErrSystemPanic, r)
		}
	}()
	return sys.Update(w.registry, tick, w.period)
}

func (w *World) finish(err error) {
	w.doneOnce.Do(func() {
		w.err = err
		w.state.Store(int32(StateStopped))
		if err != nil {
			w.logger.Error("world stopped on error", log.Tick(w.tick.Load()), log.Error(err))
		} else {
			w.logger.Info("world stopped", log.Tick(w.tick.Load()))
		}
		close(w.done)
	})
}
