package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBroadcast_InitialValuesThenPublished(t *testing.T) {
	b := NewBroadcast[string](8)
	b.Publish("before")

	sub := b.Subscribe(context.Background(), "current")
	defer sub.Close()
	b.Publish("next")

	assert.Equal(t, "current", recv(t, sub))
	assert.Equal(t, "next", recv(t, sub))
	quiet(t, sub)
}

func TestBroadcast_ContextEndsSubscription(t *testing.T) {
	b := NewBroadcast[int](8)
	ctx, cancel := context.WithCancel(context.Background())
	sub := b.Subscribe(ctx, 1)
	assert.Equal(t, 1, recv(t, sub))

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscriber MUST complete when its context ends")
	}
	assert.NoError(t, sub.Err())
	assert.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 5*time.Millisecond,
		"ended subscriber MUST be removed")
}

func TestBroadcast_UnsubscribeAndOverflow(t *testing.T) {
	b := NewBroadcast[int](2)
	sub := b.Subscribe(nil)
	assert.Equal(t, 1, b.Len())

	for i := 0; i < 5; i++ {
		b.Publish(i)
	}
	assert.Equal(t, int64(3), sub.Dropped(), "lagging consumer MUST lose the oldest values")
	assert.Equal(t, 3, recv(t, sub))
	assert.Equal(t, 4, recv(t, sub))

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, b.Len())
	b.Publish(9)
}
