package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvOne(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for bus message")
		return nil
	}
}

func TestMemoryDeliversInPublishOrder(t *testing.T) {
	b := NewMemory()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, "trades")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "trades", []byte("first")))
	require.NoError(t, b.Publish(ctx, "trades", []byte("second")))

	assert.Equal(t, "first", string(recvOne(t, sub)))
	assert.Equal(t, "second", string(recvOne(t, sub)))
}

func TestMemoryNoBacklogForLateSubscriber(t *testing.T) {
	b := NewMemory()
	ctx := context.Background()

	require.NoError(t, b.Publish(ctx, "trades", []byte("before")))

	sub, err := b.Subscribe(ctx, "trades")
	require.NoError(t, err)

	select {
	case msg := <-sub:
		t.Fatalf("late subscriber received pre-subscription event %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryChannelsAreIsolated(t *testing.T) {
	b := NewMemory()
	ctx := context.Background()

	trades, err := b.Subscribe(ctx, "trades")
	require.NoError(t, err)
	other, err := b.Subscribe(ctx, "other")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "trades", []byte("t1")))

	assert.Equal(t, "t1", string(recvOne(t, trades)))
	select {
	case msg := <-other:
		t.Fatalf("unexpected cross-channel delivery: %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryCancelledSubscriberDoesNotBlockOthers(t *testing.T) {
	b := NewMemory()
	ctx := context.Background()

	cancelCtx, cancel := context.WithCancel(ctx)
	gone, err := b.Subscribe(cancelCtx, "trades")
	require.NoError(t, err)
	stay, err := b.Subscribe(ctx, "trades")
	require.NoError(t, err)

	cancel()
	// Wait for the cancelled subscriber's channel to close.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-gone:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Publish(ctx, "trades", []byte("still here")))
	assert.Equal(t, "still here", string(recvOne(t, stay)))
}

func TestMemorySlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := NewMemory()
	ctx := context.Background()

	slow, err := b.Subscribe(ctx, "trades")
	require.NoError(t, err)

	// Overfill the slow subscriber's buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*2; i++ {
			_ = b.Publish(ctx, "trades", []byte("x"))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// The subscriber still sees a full buffer of messages.
	assert.Equal(t, "x", string(recvOne(t, slow)))
}
