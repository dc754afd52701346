package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feed is a Producer driven from the test through its values channel.
type feed struct {
	values  chan int
	fail    chan error
	running atomic.Int32
}

func newFeed() *feed {
	return &feed{values: make(chan int, 16), fail: make(chan error, 1)}
}

func (f *feed) produce(ctx context.Context, emit func(int)) error {
	f.running.Add(1)
	defer f.running.Add(-1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-f.fail:
			return err
		case v := <-f.values:
			emit(v)
		}
	}
}

func recv[T any](t *testing.T, sub *Subscription[T]) T {
	t.Helper()
	select {
	case v, ok := <-sub.C():
		require.True(t, ok, "subscription MUST be open")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func quiet[T any](t *testing.T, sub *Subscription[T]) {
	t.Helper()
	select {
	case v, ok := <-sub.C():
		if ok {
			t.Fatalf("unexpected value %v", v)
		}
	case <-time.After(30 * time.Millisecond):
	}
}

func TestReplay_SharesOneProducer(t *testing.T) {
	f := newFeed()
	r := NewReplay[int]("test", f.produce)

	a := r.Subscribe(context.Background())
	b := r.Subscribe(context.Background())
	defer a.Close()
	defer b.Close()

	f.values <- 1
	assert.Equal(t, 1, recv(t, a))
	assert.Equal(t, 1, recv(t, b))
	assert.Equal(t, 1, r.Starts(), "producer MUST start once for concurrent subscribers")
	assert.Equal(t, 2, r.Subscribers())
}

func TestReplay_ReplaysLatestToLateSubscriber(t *testing.T) {
	f := newFeed()
	r := NewReplay[int]("test", f.produce)

	a := r.Subscribe(context.Background())
	defer a.Close()
	f.values <- 1
	f.values <- 2
	recv(t, a)
	recv(t, a)

	b := r.Subscribe(context.Background())
	defer b.Close()
	assert.Equal(t, 2, recv(t, b), "late subscriber MUST receive only the latest value")
	quiet(t, b)

	latest, ok := r.Latest()
	assert.True(t, ok)
	assert.Equal(t, 2, latest)
}

func TestReplay_DistinctDropsConsecutiveDuplicates(t *testing.T) {
	f := newFeed()
	r := NewReplay[int]("test", f.produce, WithDistinct(func(x, y int) bool { return x == y }))

	a := r.Subscribe(context.Background())
	defer a.Close()
	for _, v := range []int{1, 1, 2, 2, 1} {
		f.values <- v
	}

	assert.Equal(t, 1, recv(t, a))
	assert.Equal(t, 2, recv(t, a))
	assert.Equal(t, 1, recv(t, a))
	quiet(t, a)
}

func TestReplay_LastUnsubscribeStopsAndResets(t *testing.T) {
	f := newFeed()
	r := NewReplay[int]("test", f.produce)

	a := r.Subscribe(context.Background())
	f.values <- 7
	recv(t, a)

	a.Close()
	a.Close()
	assert.Eventually(t, func() bool { return f.running.Load() == 0 }, time.Second, time.Millisecond,
		"producer MUST stop after the last unsubscribe")
	_, ok := r.Latest()
	assert.False(t, ok, "cached value MUST be forgotten after teardown")

	b := r.Subscribe(context.Background())
	defer b.Close()
	quiet(t, b)
	assert.Equal(t, 2, r.Starts(), "next subscriber MUST restart the producer")

	f.values <- 8
	assert.Equal(t, 8, recv(t, b))
}

func TestReplay_ContextEndsSubscription(t *testing.T) {
	f := newFeed()
	r := NewReplay[int]("test", f.produce)

	ctx, cancel := context.WithCancel(context.Background())
	a := r.Subscribe(ctx)
	cancel()

	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription MUST end with its context")
	}
	assert.NoError(t, a.Err())
	assert.Eventually(t, func() bool { return r.Subscribers() == 0 }, time.Second, time.Millisecond)
}

func TestReplay_ProducerErrorFailsAllSubscribers(t *testing.T) {
	f := newFeed()
	r := NewReplay[int]("test", f.produce)

	a := r.Subscribe(context.Background())
	b := r.Subscribe(context.Background())
	boom := errors.New("boom")
	f.fail <- boom

	for _, sub := range []*Subscription[int]{a, b} {
		select {
		case <-sub.Done():
		case <-time.After(time.Second):
			t.Fatal("subscription MUST end on producer failure")
		}
		assert.ErrorIs(t, sub.Err(), boom)
		_, open := <-sub.C()
		assert.False(t, open)
	}
	assert.Equal(t, 0, r.Subscribers())

	c := r.Subscribe(context.Background())
	defer c.Close()
	assert.Equal(t, 2, r.Starts(), "failure MUST allow a fresh start")
}

func TestReplay_StaleEmitIsIgnored(t *testing.T) {
	var mu sync.Mutex
	var emits []func(int)
	r := NewReplay[int]("test", func(ctx context.Context, emit func(int)) error {
		mu.Lock()
		emits = append(emits, emit)
		mu.Unlock()
		<-ctx.Done()
		return nil
	})

	a := r.Subscribe(context.Background())
	require.Eventually(t, func() bool { mu.Lock(); defer mu.Unlock(); return len(emits) == 1 }, time.Second, time.Millisecond)
	a.Close()

	b := r.Subscribe(context.Background())
	defer b.Close()
	require.Eventually(t, func() bool { mu.Lock(); defer mu.Unlock(); return len(emits) == 2 }, time.Second, time.Millisecond)

	mu.Lock()
	stale, live := emits[0], emits[1]
	mu.Unlock()

	stale(1)
	quiet(t, b)
	live(2)
	assert.Equal(t, 2, recv(t, b))
}

func TestCollect(t *testing.T) {
	r := NewReplay[int]("test", func(ctx context.Context, emit func(int)) error {
		emit(1)
		emit(2)
		return nil
	})

	values, err := Collect(context.Background(), r.Subscribe(context.Background()))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, values)
}
