// Package events carries order status changes from the write path to
// server-push subscribers.
package events

import (
	"context"
	"time"
)

type StatusChanged struct {
	OrderID   uint      `json:"orderId"`
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changedAt"`
}

type Publisher interface {
	PublishStatusChanged(ctx context.Context, evt StatusChanged) error
}

// Subscriber delivers status changes for one order until the returned
// cancel func is called or ctx ends.
type Subscriber interface {
	SubscribeStatus(ctx context.Context, orderID uint) (<-chan StatusChanged, func(), error)
}

type Broker interface {
	Publisher
	Subscriber
}
