package events

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/binSaed/flutter-redirectly/internal/deeplink"
)

func recv(t *testing.T, ch <-chan deeplink.ResolvedLink) (deeplink.ResolvedLink, bool) {
	t.Helper()
	select {
	case l, ok := <-ch:
		return l, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for link event")
		return deeplink.ResolvedLink{}, false
	}
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 1s")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroker_FanOut(t *testing.T) {
	b := NewBroker(4, zerolog.Nop())
	defer b.Close()

	ctx := context.Background()
	a := b.Subscribe(ctx)
	c := b.Subscribe(ctx)

	link := deeplink.Classify("https://alice.redirectly.app/promo")
	if n := b.Publish(link); n != 2 {
		t.Fatalf("Publish delivered to %d, want 2", n)
	}
	for _, ch := range []<-chan deeplink.ResolvedLink{a, c} {
		got, ok := recv(t, ch)
		if !ok || got.Slug != "promo" {
			t.Errorf("received %+v (ok %v), want promo", got, ok)
		}
	}
}

func TestBroker_UnsubscribeOnCancel(t *testing.T) {
	b := NewBroker(4, zerolog.Nop())
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx)
	if b.Subscribers() != 1 {
		t.Fatalf("Subscribers = %d, want 1", b.Subscribers())
	}

	cancel()
	if _, ok := recv(t, ch); ok {
		t.Error("channel still open after cancel")
	}
	waitFor(t, func() bool { return b.Subscribers() == 0 })

	if n := b.Publish(deeplink.Classify("https://alice.redirectly.app/promo")); n != 0 {
		t.Errorf("Publish delivered to %d after unsubscribe, want 0", n)
	}
}

func TestBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroker(1, zerolog.Nop())
	defer b.Close()

	ch := b.Subscribe(context.Background())
	link := deeplink.Classify("https://alice.redirectly.app/promo")

	if n := b.Publish(link); n != 1 {
		t.Fatalf("first Publish = %d, want 1", n)
	}
	done := make(chan int)
	go func() { done <- b.Publish(link) }()
	select {
	case n := <-done:
		if n != 0 {
			t.Errorf("second Publish = %d, want 0 with full buffer", n)
		}
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	if _, ok := recv(t, ch); !ok {
		t.Error("first event lost")
	}
}

func TestBroker_Close(t *testing.T) {
	b := NewBroker(0, zerolog.Nop())
	ch := b.Subscribe(context.Background())

	b.Close()
	b.Close()

	if _, ok := recv(t, ch); ok {
		t.Error("channel open after Close")
	}
	late := b.Subscribe(context.Background())
	if _, ok := recv(t, late); ok {
		t.Error("Subscribe after Close returned an open channel")
	}
}

func TestBroker_CloseReleasesWatchers(t *testing.T) {
	b := NewBroker(0, zerolog.Nop())
	before := runtime.NumGoroutine()

	for i := 0; i < 100; i++ {
		b.Subscribe(context.Background())
	}
	if b.Subscribers() != 100 {
		t.Fatalf("Subscribers = %d, want 100", b.Subscribers())
	}

	b.Close()
	waitFor(t, func() bool { return runtime.NumGoroutine() <= before+5 })
}
