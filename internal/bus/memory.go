// Package bus provides the in-process signal bus used by single-process
// deployments. It mirrors the Redis-backed bus but keeps everything in
// memory: no backlog, no replay, events only reach subscribers registered
// before Publish is called.
package bus

import (
	"context"
	"sync"
)

// subscriberBuffer is the per-subscriber payload buffer. A subscriber that
// falls this far behind starts losing events rather than blocking publishers.
const subscriberBuffer = 128

// Memory implements domain.SignalBus with process-local fan-out.
type Memory struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan []byte
}

// NewMemory creates an empty in-process bus.
func NewMemory() *Memory {
	return &Memory{
		subs: make(map[string]map[int]chan []byte),
	}
}

// Publish delivers the payload to every current subscriber of the channel.
// Delivery is best-effort: a subscriber with a full buffer is skipped, and
// the error result exists only to satisfy the bus interface.
func (b *Memory) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registers a new subscriber on the channel. The returned channel
// receives payloads in publish order and is closed when ctx is cancelled.
func (b *Memory) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, subscriberBuffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[int]chan []byte)
	}
	b.subs[channel][id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		// The write lock excludes in-flight publishes, so closing here can
		// never race a send.
		b.mu.Lock()
		delete(b.subs[channel], id)
		b.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}
