package stream

import (
	"context"
	"sync"
)

// DefaultBufferSize is the per-subscriber buffer used when none is given.
const DefaultBufferSize = 64

// Subscription is one consumer's view of a stream.
//
// Values arrive on C(). When the stream ends, C() is closed, Done() is closed
// and Err() reports why: nil for a normal completion or an explicit Close,
// otherwise the producer's failure.
type Subscription[T any] struct {
	ring *RingChannel[T]
	done chan struct{}

	mu     sync.Mutex
	closed bool
	err    error

	detach  func()
	stopCtx func() bool
}

func newSubscription[T any](capacity int) *Subscription[T] {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	return &Subscription[T]{
		ring: NewRingChannel[T](capacity),
		done: make(chan struct{}),
	}
}

// C returns the channel delivering values. It is closed when the stream ends.
func (s *Subscription[T]) C() <-chan T {
	return s.ring.C()
}

// Done is closed when the stream ends.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Err returns the terminal error, or nil while running or after normal completion.
func (s *Subscription[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Dropped returns how many values were overwritten because the consumer lagged.
func (s *Subscription[T]) Dropped() int64 {
	return s.ring.GetMetrics().Overwritten
}

// Close ends the subscription from the consumer side. It is idempotent and
// safe to call after the stream has already ended.
func (s *Subscription[T]) Close() {
	s.finish(nil)

	s.mu.Lock()
	detach := s.detach
	s.detach = nil
	s.mu.Unlock()

	if detach != nil {
		detach()
	}
}

// bind closes the subscription when ctx is done.
func (s *Subscription[T]) bind(ctx context.Context) {
	if ctx == nil {
		return
	}
	stop := context.AfterFunc(ctx, s.Close)
	s.mu.Lock()
	s.stopCtx = stop
	s.mu.Unlock()
}

// deliver hands v to the consumer. Returns false once the subscription is closed.
func (s *Subscription[T]) deliver(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.ring.Send(v)
	return true
}

// finish terminates the subscription with err. Only the first call has an effect.
func (s *Subscription[T]) finish(err error) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	s.err = err
	s.ring.Close()
	close(s.done)
	stop := s.stopCtx
	s.stopCtx = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	return true
}

// Collect drains sub until it ends or ctx is done and returns what it received.
func Collect[T any](ctx context.Context, sub *Subscription[T]) ([]T, error) {
	var out []T
	for {
		select {
		case v, ok := <-sub.C():
			if !ok {
				return out, sub.Err()
			}
			out = append(out, v)
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
}
