package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-orders/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBroker shares status changes between server instances over
// Redis pub/sub.
type RedisBroker struct {
	client *redis.Client
	prefix string
}

func NewRedisBroker(addr string) (*RedisBroker, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisBroker{client: client, prefix: "storefront:order-status"}, nil
}

func (b *RedisBroker) channel(orderID uint) string {
	return fmt.Sprintf("%s:%d", b.prefix, orderID)
}

func (b *RedisBroker) PublishStatusChanged(ctx context.Context, evt StatusChanged) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal status event: %w", err)
	}
	return b.client.Publish(ctx, b.channel(evt.OrderID), payload).Err()
}

func (b *RedisBroker) SubscribeStatus(ctx context.Context, orderID uint) (<-chan StatusChanged, func(), error) {
	pubsub := b.client.Subscribe(ctx, b.channel(orderID))
	// Receive blocks until the subscription is confirmed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan StatusChanged, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			evt, err := decodeStatusChanged(msg.Payload)
			if err != nil {
				logger.FromCtx(ctx).Warn("dropping malformed status event",
					zap.String("channel", msg.Channel),
					zap.Error(err),
				)
				continue
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()

	stop := context.AfterFunc(ctx, func() { _ = pubsub.Close() })

	return out, func() {
		stop()
		_ = pubsub.Close()
	}, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}

func decodeStatusChanged(payload string) (StatusChanged, error) {
	var evt StatusChanged
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return StatusChanged{}, err
	}
	if evt.OrderID == 0 {
		return StatusChanged{}, fmt.Errorf("status event without order id")
	}
	return evt, nil
}
