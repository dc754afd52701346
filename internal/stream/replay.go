package stream

import (
	"context"
	"errors"
	"sync"

	"github.com/srg/bleplug/internal/groutine"
)

// Producer feeds a Replay. It runs until ctx is cancelled, calling emit for
// every value. Returning nil after cancellation is a normal stop; returning
// nil before it completes every subscriber; any other error fails them.
type Producer[T any] func(ctx context.Context, emit func(T)) error

// Replay is a shared, reference-counted stream that replays its latest value.
//
// The producer is started when the first subscriber arrives and cancelled when
// the last one leaves; the next subscriber starts it again. Every new
// subscriber first receives the most recent value, if any.
type Replay[T any] struct {
	name     string
	produce  Producer[T]
	equal    func(a, b T) bool
	capacity int

	mu      sync.Mutex
	subs    map[*Subscription[T]]struct{}
	last    T
	hasLast bool
	cancel  context.CancelFunc
	gen     uint64
	starts  int
}

// ReplayOption configures a Replay.
type ReplayOption[T any] func(*Replay[T])

// WithDistinct drops values equal to the latest one.
func WithDistinct[T any](equal func(a, b T) bool) ReplayOption[T] {
	return func(r *Replay[T]) { r.equal = equal }
}

// WithBuffer sets the per-subscriber buffer size.
func WithBuffer[T any](capacity int) ReplayOption[T] {
	return func(r *Replay[T]) { r.capacity = capacity }
}

// NewReplay creates a Replay named name (used as the producer goroutine label).
func NewReplay[T any](name string, produce Producer[T], opts ...ReplayOption[T]) *Replay[T] {
	r := &Replay[T]{
		name:     name,
		produce:  produce,
		capacity: DefaultBufferSize,
		subs:     make(map[*Subscription[T]]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe adds a subscriber, starting the producer if it is the first one.
// The subscription is closed when ctx is done; a nil ctx means until Close.
func (r *Replay[T]) Subscribe(ctx context.Context) *Subscription[T] {
	sub := newSubscription[T](r.capacity)
	sub.detach = func() { r.remove(sub) }

	r.mu.Lock()
	if r.hasLast {
		sub.deliver(r.last)
	}
	r.subs[sub] = struct{}{}

	var pctx context.Context
	var gen uint64
	if r.cancel == nil {
		r.gen++
		r.starts++
		gen = r.gen
		pctx, r.cancel = context.WithCancel(context.Background())
	}
	r.mu.Unlock()

	if pctx != nil {
		groutine.Go(pctx, r.name, func(ctx context.Context) {
			err := r.produce(ctx, func(v T) { r.emit(gen, v) })
			r.end(ctx, gen, err)
		})
	}

	sub.bind(ctx)
	return sub
}

// Latest returns the most recent value while the producer is running.
func (r *Replay[T]) Latest() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.hasLast
}

// Subscribers returns the number of live subscribers.
func (r *Replay[T]) Subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Starts returns how many times the producer has been started.
func (r *Replay[T]) Starts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

func (r *Replay[T]) emit(gen uint64, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen || r.cancel == nil {
		return
	}
	if r.equal != nil && r.hasLast && r.equal(r.last, v) {
		return
	}
	r.last = v
	r.hasLast = true
	for sub := range r.subs {
		sub.deliver(v)
	}
}

func (r *Replay[T]) end(ctx context.Context, gen uint64, err error) {
	r.mu.Lock()
	if gen != r.gen || r.cancel == nil {
		r.mu.Unlock()
		return
	}
	if ctx.Err() != nil && (err == nil || errors.Is(err, context.Canceled)) {
		r.mu.Unlock()
		return
	}

	subs := r.subs
	r.subs = make(map[*Subscription[T]]struct{})
	r.reset()
	r.mu.Unlock()

	for sub := range subs {
		sub.finish(err)
	}
}

func (r *Replay[T]) remove(sub *Subscription[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[sub]; !ok {
		return
	}
	delete(r.subs, sub)
	if len(r.subs) == 0 && r.cancel != nil {
		r.reset()
	}
}

// reset stops the producer and forgets the cached value. Caller holds r.mu.
func (r *Replay[T]) reset() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.gen++
	var zero T
	r.last = zero
	r.hasLast = false
}
