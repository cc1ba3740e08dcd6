// Package events fans resolved deep links out to subscribers.
package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/binSaed/flutter-redirectly/internal/deeplink"
	"github.com/binSaed/flutter-redirectly/internal/metrics"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

// Broker delivers every published link to all current subscribers. A
// subscriber whose buffer is full misses the event; Publish never blocks.
type Broker struct {
	mu     sync.Mutex
	subs   map[uint64]chan deeplink.ResolvedLink
	next   uint64
	buffer int
	closed bool
	done   chan struct{}
	log    zerolog.Logger
}

// NewBroker returns a Broker with the given per-subscriber buffer. A buffer
// below one uses DefaultBuffer.
func NewBroker(buffer int, log zerolog.Logger) *Broker {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	return &Broker{
		subs:   make(map[uint64]chan deeplink.ResolvedLink),
		buffer: buffer,
		done:   make(chan struct{}),
		log:    log,
	}
}

// Subscribe registers a listener. The returned channel is closed when ctx is
// done or the broker is closed; cancelling ctx is how a listener unsubscribes.
func (b *Broker) Subscribe(ctx context.Context) <-chan deeplink.ResolvedLink {
	ch := make(chan deeplink.ResolvedLink, b.buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch
	}
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			b.remove(id)
		case <-b.done:
		}
	}()
	return ch
}

// Publish sends link to every subscriber and returns how many received it.
func (b *Broker) Publish(link deeplink.ResolvedLink) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	delivered := 0
	for id, ch := range b.subs {
		select {
		case ch <- link:
			delivered++
		default:
			metrics.LinkEventsDroppedTotal.Inc()
			b.log.Warn().Uint64("subscriber", id).Str("url", link.OriginalURL).Msg("link event dropped")
		}
	}
	return delivered
}

// Subscribers returns the number of active subscribers.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later Subscribe calls return a
// closed channel and Publish delivers to no one.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}

func (b *Broker) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		close(ch)
		delete(b.subs, id)
	}
}
