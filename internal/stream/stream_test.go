package stream

import (
	"context"
	"testing"
	"time"
)

func TestPublishReachesEverySubscriber(t *testing.T) {
	h := New[int](4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := h.Subscribe(ctx)
	b := h.Subscribe(ctx)
	h.Publish(7)

	for _, ch := range []<-chan int{a, b} {
		select {
		case v := <-ch:
			if v != 7 {
				t.Fatalf("got %d", v)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive value")
		}
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	h := New[int](1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := h.Subscribe(ctx)
	h.Publish(1)
	h.Publish(2)

	if v := <-ch; v != 1 {
		t.Fatalf("want first value kept, got %d", v)
	}
	select {
	case v := <-ch:
		t.Fatalf("unexpected extra value %d", v)
	default:
	}
}

func TestSubscriptionClosesWithContext(t *testing.T) {
	h := New[string](0)
	ctx, cancel := context.WithCancel(context.Background())
	ch := h.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
	if h.Len() != 0 {
		t.Fatalf("subscriber not removed, Len=%d", h.Len())
	}
}
