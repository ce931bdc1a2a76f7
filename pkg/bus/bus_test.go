package bus

import (
	"context"
	"testing"
	"time"
)

func TestPublishReachesSubscriber(t *testing.T) {
	b := New()
	t.Cleanup(b.Close)

	events, unsubscribe := b.Subscribe(context.Background(), 4)
	t.Cleanup(unsubscribe)

	if ok := b.Publish(context.Background(), Event{Type: EventTaskReceived, TaskID: 7}); !ok {
		t.Fatal("expected publish to succeed")
	}

	select {
	case event := <-events:
		if event.Type != EventTaskReceived || event.TaskID != 7 {
			t.Fatalf("event = %+v, want task_received for task 7", event)
		}
		if event.At.IsZero() {
			t.Fatal("expected publish to stamp the event time")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := New()
	t.Cleanup(b.Close)

	_, unsubscribe := b.Subscribe(context.Background(), 1)
	t.Cleanup(unsubscribe)

	// Second publish overflows the buffer; it must drop, not block.
	done := make(chan struct{})
	go func() {
		b.Publish(context.Background(), Event{Type: EventHeartbeat})
		b.Publish(context.Background(), Event{Type: EventHeartbeat})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestCloseStopsBus(t *testing.T) {
	b := New()

	events, _ := b.Subscribe(context.Background(), 1)
	b.Close()

	if ok := b.Publish(context.Background(), Event{Type: EventHeartbeat}); ok {
		t.Fatal("expected publish to fail after close")
	}

	if _, open := <-events; open {
		t.Fatal("expected subscriber channel to close")
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := New()
	t.Cleanup(b.Close)

	_, unsubscribe := b.Subscribe(context.Background(), 1)
	unsubscribe()
	unsubscribe()
}

func TestCanceledContextStopsSubscription(t *testing.T) {
	b := New()
	t.Cleanup(b.Close)

	ctx, cancel := context.WithCancel(context.Background())
	events, _ := b.Subscribe(ctx, 1)
	cancel()

	select {
	case _, open := <-events:
		if open {
			t.Fatal("expected channel close, got event")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}
