// Package notify delivers order confirmations outside the request path.
package notify

import (
	"context"
	"time"
)

// OrderConfirmation is the full snapshot of a freshly placed order.
type OrderConfirmation struct {
	EventID       string    `json:"eventId"`
	Email         string    `json:"email"`
	OrderID       uint      `json:"orderId"`
	UserID        uint      `json:"userId"`
	Items         []Item    `json:"items"`
	Total         float64   `json:"total"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"paymentMethod"`
	Delivery      Delivery  `json:"delivery"`
	PlacedAt      time.Time `json:"placedAt"`
}

type Item struct {
	ProductID uint    `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type Delivery struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Notes    string `json:"notes"`
}

type Notifier interface {
	SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error
}

// Recorder observes delivery outcomes; metrics.Metrics implements it.
type Recorder interface {
	NotificationResult(outcome string)
}

const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeDropped = "dropped"
)
