package event

import (
	"sync"
	"testing"
)

func TestSubscribePublish(t *testing.T) {
	b := NewBus()
	var got []Edit
	sub := b.Subscribe(func(e Edit) { got = append(got, e) })
	if sub.ID() == 0 {
		t.Fatal("Subscribe returned inert subscription")
	}

	b.Publish(Edit{Offset: 5, InsertedLen: 3, Version: 1})
	b.Publish(Edit{Offset: 2, RemovedLen: 4, Version: 2})

	if len(got) != 2 {
		t.Fatalf("received %d edits, want 2", len(got))
	}
	if got[0].Version != 1 || got[1].Version != 2 {
		t.Errorf("versions out of order: %d, %d", got[0].Version, got[1].Version)
	}
	if got[0].Delta() != 3 || got[1].Delta() != -4 {
		t.Errorf("deltas = %d, %d, want 3, -4", got[0].Delta(), got[1].Delta())
	}
}

func TestDeliveryOrder(t *testing.T) {
	b := NewBus()
	var order []int
	b.Subscribe(func(Edit) { order = append(order, 1) })
	b.Subscribe(func(Edit) { order = append(order, 2) })
	b.Subscribe(func(Edit) { order = append(order, 3) })

	b.Publish(Edit{Version: 1})
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("delivery order = %v, want [1 2 3]", order)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := NewBus()
	calls := 0
	sub := b.Subscribe(func(Edit) { calls++ })

	b.Publish(Edit{Version: 1})
	if !b.Unsubscribe(sub) {
		t.Fatal("Unsubscribe returned false for live subscription")
	}
	b.Publish(Edit{Version: 2})

	if calls != 1 {
		t.Errorf("handler ran %d times, want 1", calls)
	}
	if b.Unsubscribe(sub) {
		t.Error("second Unsubscribe returned true")
	}
	if b.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", b.SubscriberCount())
	}
}

func TestNilHandler(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe(nil)
	if sub.ID() != 0 {
		t.Error("nil handler produced a live subscription")
	}
	if b.Unsubscribe(sub) {
		t.Error("Unsubscribe of inert subscription returned true")
	}
	b.Publish(Edit{Version: 1})
}

func TestHandlerPanicIsolated(t *testing.T) {
	b := NewBus()
	ran := false
	b.Subscribe(func(Edit) { panic("bad handler") })
	b.Subscribe(func(Edit) { ran = true })

	b.Publish(Edit{Version: 1})

	if !ran {
		t.Error("panic in one handler stopped delivery to the next")
	}
	stats := b.Stats()
	if stats.HandlerPanics != 1 {
		t.Errorf("HandlerPanics = %d, want 1", stats.HandlerPanics)
	}
	if stats.EventsDelivered != 1 {
		t.Errorf("EventsDelivered = %d, want 1", stats.EventsDelivered)
	}
}

func TestReentrantUnsubscribe(t *testing.T) {
	b := NewBus()
	var sub Subscription
	calls := 0
	sub = b.Subscribe(func(Edit) {
		calls++
		b.Unsubscribe(sub)
	})

	b.Publish(Edit{Version: 1})
	b.Publish(Edit{Version: 2})

	if calls != 1 {
		t.Errorf("handler ran %d times, want 1", calls)
	}
}

func TestStats(t *testing.T) {
	b := NewBus()
	b.Subscribe(func(Edit) {})
	b.Subscribe(func(Edit) {})

	b.Publish(Edit{Version: 1})
	b.Publish(Edit{Version: 2})

	stats := b.Stats()
	if stats.EventsPublished != 2 {
		t.Errorf("EventsPublished = %d, want 2", stats.EventsPublished)
	}
	if stats.EventsDelivered != 4 {
		t.Errorf("EventsDelivered = %d, want 4", stats.EventsDelivered)
	}
	if stats.ActiveSubscribers != 2 {
		t.Errorf("ActiveSubscribers = %d, want 2", stats.ActiveSubscribers)
	}
}

func TestConcurrentSubscribers(t *testing.T) {
	b := NewBus()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				sub := b.Subscribe(func(Edit) {})
				b.Unsubscribe(sub)
			}
		}()
	}
	wg.Wait()

	if b.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d after churn, want 0", b.SubscriberCount())
	}
}
