package bus

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewBus(t *testing.T) {
	bus := NewBus()
	if bus == nil {
		t.Fatal("NewBus returned nil")
	}

	if bus.historySize != DefaultHistorySize {
		t.Errorf("Expected history size %d, got %d", DefaultHistorySize, bus.historySize)
	}

	bus.Close()
}

func TestNewBusWithConfig(t *testing.T) {
	bus := NewBusWithConfig(500, 10)
	if bus.historySize != 500 {
		t.Errorf("Expected history size 500, got %d", bus.historySize)
	}
	if bus.channelBuffer != 10 {
		t.Errorf("Expected channel buffer 10, got %d", bus.channelBuffer)
	}
	bus.Close()
}

func TestSubscribeAndPublish(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var received atomic.Bool
	done := make(chan bool, 1)

	handler := func(e Event) {
		if e.Type == EventDecisionMade {
			received.Store(true)
			done <- true
		}
	}

	id := bus.Subscribe(EventDecisionMade, handler)
	if id == "" {
		t.Fatal("Subscribe returned empty ID")
	}

	event := NewEvent(EventDecisionMade)
	event.Strategy = "circuit_breaker"

	if err := bus.Publish(event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case <-done:
		if !received.Load() {
			t.Error("Handler was not called with correct event")
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for event")
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	callCount := atomic.Int32{}

	handler := func(e Event) {
		callCount.Add(1)
	}

	id := bus.Subscribe(EventDecisionMade, handler)

	// Publish and receive
	bus.Publish(NewEvent(EventDecisionMade))
	time.Sleep(100 * time.Millisecond)

	// Unsubscribe
	if err := bus.Unsubscribe(id); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}

	// Publish again
	bus.Publish(NewEvent(EventDecisionMade))
	time.Sleep(100 * time.Millisecond)

	if callCount.Load() != 1 {
		t.Errorf("Expected 1 call, got %d", callCount.Load())
	}
}

func TestWildcardSubscription(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	callCount := atomic.Int32{}
	done := make(chan bool, 1)

	handler := func(e Event) {
		if callCount.Add(1) == 2 {
			done <- true
		}
	}

	bus.Subscribe(EventType(""), handler)

	bus.Publish(NewEvent(EventRecognitionCompleted))
	bus.Publish(NewEvent(EventDecisionMade))

	select {
	case <-done:
		if callCount.Load() != 2 {
			t.Errorf("Expected 2 calls, got %d", callCount.Load())
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for events")
	}
}

func TestTypedAndWildcardSubscriptions(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	typedCount := atomic.Int32{}
	wildcardCount := atomic.Int32{}

	bus.Subscribe(EventOutcomeRecorded, func(e Event) {
		typedCount.Add(1)
	})

	bus.Subscribe(EventType(""), func(e Event) {
		wildcardCount.Add(1)
	})

	bus.Publish(NewEvent(EventOutcomeRecorded))
	time.Sleep(100 * time.Millisecond)

	if typedCount.Load() != 1 {
		t.Errorf("Typed subscriber expected 1 call, got %d", typedCount.Load())
	}
	if wildcardCount.Load() != 1 {
		t.Errorf("Wildcard subscriber expected 1 call, got %d", wildcardCount.Load())
	}
}

func TestEventHistory(t *testing.T) {
	bus := NewBusWithConfig(10, DefaultChannelBuffer)
	defer bus.Close()

	// Publish 5 events
	for i := 0; i < 5; i++ {
		event := NewEvent(EventDecisionMade)
		event.RequestID = string(rune('A' + i))
		bus.Publish(event)
	}

	history := bus.GetHistory()
	if len(history) != 5 {
		t.Errorf("Expected 5 events in history, got %d", len(history))
	}

	// Test slice
	slice := bus.GetHistorySlice(3)
	if len(slice) != 3 {
		t.Errorf("Expected 3 events in slice, got %d", len(slice))
	}
}

func TestHistoryOverflow(t *testing.T) {
	bus := NewBusWithConfig(5, DefaultChannelBuffer)
	defer bus.Close()

	// Publish 10 events (double the capacity)
	for i := 0; i < 10; i++ {
		bus.Publish(NewEvent(EventDecisionMade))
	}

	history := bus.GetHistory()
	if len(history) != 5 {
		t.Errorf("Expected 5 events in history (max capacity), got %d", len(history))
	}
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var wg sync.WaitGroup
	counters := [3]*atomic.Int32{{}, {}, {}}

	for i := 0; i < 3; i++ {
		wg.Add(1)
		idx := i
		bus.Subscribe(EventDecisionMade, func(e Event) {
			counters[idx].Add(1)
			wg.Done()
		})
	}

	bus.Publish(NewEvent(EventDecisionMade))

	done := make(chan bool)
	go func() {
		wg.Wait()
		done <- true
	}()

	select {
	case <-done:
		for i, c := range counters {
			if c.Load() != 1 {
				t.Errorf("Subscriber %d expected 1 call, got %d", i, c.Load())
			}
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for all subscribers")
	}
}

func TestConcurrentPublishSubscribe(t *testing.T) {
	bus := NewBusWithConfig(DefaultHistorySize, 2000)
	defer bus.Close()

	received := atomic.Int32{}

	// Create multiple subscribers
	for i := 0; i < 10; i++ {
		bus.Subscribe(EventDecisionMade, func(e Event) {
			received.Add(1)
		})
	}

	// Concurrent publishes
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(NewEvent(EventDecisionMade))
		}()
	}

	wg.Wait()
	time.Sleep(200 * time.Millisecond) // Allow handlers to process

	expected := int32(100 * 10) // 100 events * 10 subscribers
	if received.Load() != expected {
		t.Errorf("Expected %d total events, got %d", expected, received.Load())
	}
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	bus := NewBusWithConfig(DefaultHistorySize, 4)
	defer bus.Close()

	release := make(chan struct{})
	received := atomic.Int32{}

	// A subscriber that blocks forever on its first event
	bus.Subscribe(EventDecisionMade, func(e Event) {
		received.Add(1)
		<-release
	})

	time.Sleep(50 * time.Millisecond)

	// If Publish blocked on the stalled subscriber, this loop would hang
	// and the test would time out.
	for i := 0; i < 50; i++ {
		if err := bus.Publish(NewEvent(EventDecisionMade)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	close(release)
	time.Sleep(100 * time.Millisecond)

	// The stalled subscriber missed events beyond its buffer
	got := received.Load()
	if got >= 50 {
		t.Errorf("Expected dropped events for the slow subscriber, got %d of 50", got)
	}
	if got < 4 {
		t.Errorf("Expected at least the buffered events to arrive, got %d", got)
	}
}

func TestPublishAfterClose(t *testing.T) {
	bus := NewBus()
	bus.Close()

	err := bus.Publish(NewEvent(EventDecisionMade))
	if err == nil {
		t.Error("Expected error when publishing to closed bus")
	}
}

func TestUnsubscribeNonExistent(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	err := bus.Unsubscribe(SubscriptionID("nonexistent"))
	if err == nil {
		t.Error("Expected error when unsubscribing non-existent ID")
	}
}

func TestSubscriptionCounts(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	// Initially empty
	if bus.SubscriptionsCount() != 0 {
		t.Errorf("Expected 0 subscriptions, got %d", bus.SubscriptionsCount())
	}

	// Add typed subscriptions
	id1 := bus.Subscribe(EventDecisionMade, func(e Event) {})
	id2 := bus.Subscribe(EventOutcomeRecorded, func(e Event) {})

	if bus.SubscriptionsCount() != 2 {
		t.Errorf("Expected 2 subscriptions, got %d", bus.SubscriptionsCount())
	}

	// Add wildcard
	bus.Subscribe(EventType(""), func(e Event) {})

	if bus.SubscriptionsCount() != 3 {
		t.Errorf("Expected 3 subscriptions, got %d", bus.SubscriptionsCount())
	}

	if bus.WildcardSubscriptionsCount() != 1 {
		t.Errorf("Expected 1 wildcard subscription, got %d", bus.WildcardSubscriptionsCount())
	}

	if bus.TypedSubscriptionsCount(EventDecisionMade) != 1 {
		t.Errorf("Expected 1 typed subscription for decision.made, got %d", bus.TypedSubscriptionsCount(EventDecisionMade))
	}

	// Unsubscribe
	bus.Unsubscribe(id1)

	if bus.SubscriptionsCount() != 2 {
		t.Errorf("Expected 2 subscriptions after unsubscribe, got %d", bus.SubscriptionsCount())
	}

	// Unsubscribe other
	bus.Unsubscribe(id2)

	if bus.TypedSubscriptionsCount(EventOutcomeRecorded) != 0 {
		t.Errorf("Expected 0 typed subscriptions for outcome.recorded after unsubscribe, got %d", bus.TypedSubscriptionsCount(EventOutcomeRecorded))
	}
}

func TestNewEvent(t *testing.T) {
	event := NewEvent(EventDecisionMade)

	if event.ID == "" {
		t.Error("NewEvent should generate an ID")
	}

	if event.Type != EventDecisionMade {
		t.Errorf("Expected type %s, got %s", EventDecisionMade, event.Type)
	}

	if event.Timestamp.IsZero() {
		t.Error("NewEvent should set a timestamp")
	}
}

func TestEventConstructors(t *testing.T) {
	rec := NewRecognitionEvent("req-1", "book_flight", "model", 0.82)
	if rec.Type != EventRecognitionCompleted || rec.Intent != "book_flight" || rec.Confidence != 0.82 {
		t.Errorf("unexpected recognition event: %+v", rec)
	}

	dec := NewDecisionEvent("req-1", "circuit_breaker", "timeout", 0.74, 0.68)
	if dec.Type != EventDecisionMade || dec.Strategy != "circuit_breaker" || dec.ErrorClass != "timeout" {
		t.Errorf("unexpected decision event: %+v", dec)
	}

	out := NewOutcomeEvent("circuit_breaker", "timeout", true, 250*time.Millisecond)
	if out.Type != EventOutcomeRecorded || !out.Success || out.DurationMs != 250 {
		t.Errorf("unexpected outcome event: %+v", out)
	}

	inv := NewCacheInvalidateEvent("aggregates")
	if inv.Type != EventCacheInvalidate || inv.Details != "aggregates" {
		t.Errorf("unexpected cache invalidate event: %+v", inv)
	}
}

func BenchmarkPublish(b *testing.B) {
	bus := NewBus()
	defer bus.Close()

	bus.Subscribe(EventDecisionMade, func(e Event) {})

	event := NewEvent(EventDecisionMade)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Publish(event)
	}
}

func BenchmarkPublishMultipleSubscribers(b *testing.B) {
	bus := NewBus()
	defer bus.Close()

	for i := 0; i < 10; i++ {
		bus.Subscribe(EventDecisionMade, func(e Event) {})
	}

	event := NewEvent(EventDecisionMade)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Publish(event)
	}
}
