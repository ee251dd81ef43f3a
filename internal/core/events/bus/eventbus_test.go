package bus

import (
	"errors"
	"sync"
	"testing"
)

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	var got Event
	_, err := b.Subscribe("test.event", func(e Event) error {
		got = e
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err = b.Publish(NewEvent("test.event", 7, 123)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got == nil {
		t.Fatal("handler not called")
	}
	if got.Tick() != 7 || got.Data() != 123 {
		t.Fatalf("unexpected event: tick=%d data=%v", got.Tick(), got.Data())
	}
}

func TestDeliveryOrderAndTypeRouting(t *testing.T) {
	b := New()
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		_, _ = b.Subscribe("ev", func(Event) error { order = append(order, name); return nil })
	}
	_, _ = b.Subscribe("other", func(Event) error { order = append(order, "other"); return nil })

	_ = b.Publish(NewEvent("ev", 1, nil))
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("unexpected delivery order: %v", order)
	}
}

func TestHandlerErrorsAreJoined(t *testing.T) {
	b := New()
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	_, _ = b.Subscribe("x", func(Event) error { return errA })
	_, _ = b.Subscribe("x", func(Event) error { return nil })
	_, _ = b.Subscribe("x", func(Event) error { return errB })

	err := b.Publish(NewEvent("x", 1, nil))
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both errors, got %v", err)
	}

	err = b.PublishBatch(NewEvent("x", 2, nil), NewEvent("none", 2, nil))
	if !errors.Is(err, errA) {
		t.Fatalf("batch should carry handler errors, got %v", err)
	}
	m := b.GetMetrics()
	if m.Published != 3 || m.Errors != 2 || m.DeliveredHandlers != 6 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	count := 0
	sub, err := b.Subscribe("ev", func(Event) error { count++; return nil })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	_ = b.Publish(NewEvent("ev", 1, nil))
	if err = b.Unsubscribe(sub); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if sub.IsActive() {
		t.Fatal("subscription still active")
	}
	_ = b.Publish(NewEvent("ev", 2, nil))
	_ = sub.Cancel()
	_ = b.Unsubscribe(nil)

	if count != 1 {
		t.Fatalf("expected 1 delivery, got %d", count)
	}
	if n := b.GetMetrics().SubscribersActive; n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
}

func TestCancelDuringDelivery(t *testing.T) {
	b := New()
	var second Subscription
	calls := 0
	_, _ = b.Subscribe("ev", func(Event) error { return second.Cancel() })
	second, _ = b.Subscribe("ev", func(Event) error { calls++; return nil })

	_ = b.Publish(NewEvent("ev", 1, nil))
	if calls != 0 {
		t.Fatalf("cancelled handler was called %d times", calls)
	}
}

func TestSubscribeValidation(t *testing.T) {
	b := New()
	if _, err := b.Subscribe("", func(Event) error { return nil }); !errors.Is(err, ErrEmptyEventType) {
		t.Fatalf("expected ErrEmptyEventType, got %v", err)
	}
	if _, err := b.Subscribe("ev", nil); !errors.Is(err, ErrNilHandler) {
		t.Fatalf("expected ErrNilHandler, got %v", err)
	}
}

func TestConcurrentPublish(t *testing.T) {
	b := New()
	var mu sync.Mutex
	count := 0
	_, _ = b.Subscribe("ev", func(Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = b.Publish(NewEvent("ev", uint64(i), nil))
			}
		}()
	}
	wg.Wait()
	if count != 800 {
		t.Fatalf("expected 800 deliveries, got %d", count)
	}
}
