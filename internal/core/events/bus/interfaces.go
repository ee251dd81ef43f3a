package bus

import "errors"

var (
	ErrEmptyEventType = errors.New("event type is required")
	ErrNilHandler     = errors.New("handler is nil")
)

// EventBus is a thread-safe, in-process pub/sub bus for gameplay events.
//
// Key characteristics:
// - Type-based fan-out: handlers subscribe by Event.Type().
// - Synchronous delivery: Publish calls handlers in the caller goroutine, in
// subscription order. Systems publish from the tick goroutine, so handlers
// must not touch the registry from another goroutine and should return fast.
// - Error aggregation: handler errors are joined and returned from Publish.
type EventBus interface {
	Publish(event Event) error
	// PublishBatch publishes events in order and joins every handler error.
	PublishBatch(events ...Event) error
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. Nil is a no-op.
	Unsubscribe(Subscription) error
	GetMetrics() EventBusMetrics
}

// Event is an immutable message carried by the bus.
type Event interface {
	Type() string
	// Tick is the world tick the event happened on.
	Tick() uint64
	Data() any
}

type EventHandler func(event Event) error

// Subscription is a registered handler. Cancel is idempotent.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	Cancel() error
}

type EventBusMetrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
}
