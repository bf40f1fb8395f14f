package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusProcessing     Status = "processing"
	StatusPackaged       Status = "packaged"
	StatusShipped        Status = "shipped"
	StatusOutForDelivery Status = "out-for-delivery"
	StatusDelivered      Status = "delivered"
)

const DefaultPaymentMethod = "cod"

// MaxAmount is the largest value the NUMERIC(12,2) money columns hold.
var MaxAmount = decimal.RequireFromString("9999999999.99")

type Order struct {
	ID            uint
	UserID        uint
	Total         decimal.Decimal
	Status        Status
	PaymentMethod string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Items         []OrderItem
	Delivery      Delivery
}

// OrderItem prices are captured at checkout and never follow later
// catalog price edits.
type OrderItem struct {
	ID        uint
	OrderID   uint
	UserID    uint
	ProductID uint
	Quantity  int
	Price     decimal.Decimal
}

type Delivery struct {
	FullName string `json:"fullName" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"required,max=32"`
	Address  string `json:"address" validate:"required,max=255"`
	City     string `json:"city" validate:"required,max=80"`
	Notes    string `json:"notes" validate:"max=500"`
}

type CartItem struct {
	ProductID uint            `json:"id" validate:"required"`
	Price     decimal.Decimal `json:"price" validate:"gte=0"`
	Quantity  int             `json:"quantity" validate:"gte=1,lte=10000"`
}

type PlaceOrderInput struct {
	UserID        uint       `json:"userId" validate:"required"`
	Cart          []CartItem `json:"cart" validate:"required,min=1,dive"`
	Delivery      Delivery   `json:"delivery"`
	PaymentMethod string     `json:"paymentMethod" validate:"max=32"`

	// Email comes from the authenticated identity, never from the body.
	Email string `json:"-"`
}

// View is the read projection returned by the query endpoints.
type View struct {
	ID            uint       `json:"id"`
	UserID        uint       `json:"userId"`
	Total         float64    `json:"total"`
	Status        Status     `json:"status"`
	Created       time.Time  `json:"created"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
	Delivery      Delivery   `json:"delivery"`
	Items         []ItemView `json:"items,omitempty"`
}

type ItemView struct {
	ProductID uint    `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}
