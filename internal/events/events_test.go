package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBroker(t *testing.T) {
	t.Run("DeliversToSubscribersOfThatOrder", func(t *testing.T) {
		b := NewLocalBroker()
		ctx := context.Background()

		ch, cancel, err := b.SubscribeStatus(ctx, 1)
		require.NoError(t, err)
		defer cancel()

		other, cancelOther, err := b.SubscribeStatus(ctx, 2)
		require.NoError(t, err)
		defer cancelOther()

		evt := StatusChanged{OrderID: 1, Status: "shipped", ChangedAt: time.Now()}
		require.NoError(t, b.PublishStatusChanged(ctx, evt))

		select {
		case got := <-ch:
			assert.Equal(t, evt, got)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}

		select {
		case <-other:
			t.Fatal("event leaked to another order")
		default:
		}
	})

	t.Run("CancelUnsubscribes", func(t *testing.T) {
		b := NewLocalBroker()
		ch, cancel, err := b.SubscribeStatus(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, 1, b.subscriberCount(7))

		cancel()
		cancel() // idempotent

		_, open := <-ch
		assert.False(t, open)
		assert.Equal(t, 0, b.subscriberCount(7))
		assert.NoError(t, b.PublishStatusChanged(context.Background(), StatusChanged{OrderID: 7}))
	})

	t.Run("ContextEndUnsubscribes", func(t *testing.T) {
		b := NewLocalBroker()
		ctx, cancelCtx := context.WithCancel(context.Background())
		ch, _, err := b.SubscribeStatus(ctx, 3)
		require.NoError(t, err)

		cancelCtx()

		select {
		case _, open := <-ch:
			assert.False(t, open)
		case <-time.After(time.Second):
			t.Fatal("subscription not closed")
		}
	})

	t.Run("FullBufferDoesNotBlockPublisher", func(t *testing.T) {
		b := NewLocalBroker()
		_, cancel, err := b.SubscribeStatus(context.Background(), 4)
		require.NoError(t, err)
		defer cancel()

		for i := 0; i < subscriberBuffer*3; i++ {
			require.NoError(t, b.PublishStatusChanged(context.Background(), StatusChanged{OrderID: 4}))
		}
	})
}

func TestDecodeStatusChanged(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		evt, err := decodeStatusChanged(`{"orderId":5,"status":"delivered","changedAt":"2025-01-02T03:04:05Z"}`)
		require.NoError(t, err)
		assert.Equal(t, uint(5), evt.OrderID)
		assert.Equal(t, "delivered", evt.Status)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := decodeStatusChanged(`{not json`)
		assert.Error(t, err)
	})

	t.Run("MissingOrderID", func(t *testing.T) {
		_, err := decodeStatusChanged(`{"status":"shipped"}`)
		assert.Error(t, err)
	})
}

func TestRedisBrokerChannel(t *testing.T) {
	b := &RedisBroker{prefix: "storefront:order-status"}
	assert.Equal(t, "storefront:order-status:42", b.channel(42))
}
