package stream

import (
	"context"
	"sync"
)

// Broadcast fans published values out to every live subscriber. It keeps no
// history: a subscriber only sees values published after it subscribed, plus
// whatever initial values it asked for.
type Broadcast[T any] struct {
	mu       sync.Mutex
	subs     map[*Subscription[T]]struct{}
	capacity int
}

// NewBroadcast creates a broadcast whose subscribers buffer capacity values.
func NewBroadcast[T any](capacity int) *Broadcast[T] {
	return &Broadcast[T]{
		subs:     make(map[*Subscription[T]]struct{}),
		capacity: capacity,
	}
}

// Subscribe registers a new subscriber. initial values are delivered to it
// before anything published afterwards. A nil ctx means the subscription
// lives until Close.
func (b *Broadcast[T]) Subscribe(ctx context.Context, initial ...T) *Subscription[T] {
	sub := newSubscription[T](b.capacity)
	sub.detach = func() { b.remove(sub) }

	b.mu.Lock()
	for _, v := range initial {
		sub.deliver(v)
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	sub.bind(ctx)
	return sub
}

// Publish delivers v to every current subscriber.
func (b *Broadcast[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		sub.deliver(v)
	}
}

// Len returns the number of live subscribers.
func (b *Broadcast[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broadcast[T]) remove(sub *Subscription[T]) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}
