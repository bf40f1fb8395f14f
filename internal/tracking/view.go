// Package tracking derives the customer-facing progress view of an order
// and keeps it fresh by polling the order API.
package tracking

import (
	"time"

	"storefront-orders/internal/order"
)

// DeliveryWindow is added to the order's creation time to estimate arrival.
const DeliveryWindow = 48 * time.Hour

var progressByStatus = map[order.Status]int{
	order.StatusProcessing:     20,
	order.StatusPackaged:       40,
	order.StatusShipped:        60,
	order.StatusOutForDelivery: 80,
	order.StatusDelivered:      100,
}

var locationByStatus = map[order.Status]string{
	order.StatusProcessing:     "Warehouse",
	order.StatusPackaged:       "Packaging Center",
	order.StatusShipped:        "In Transit",
	order.StatusOutForDelivery: "Local Courier",
	order.StatusDelivered:      "Delivered",
}

var stepLabels = map[order.Status]string{
	order.StatusProcessing:     "Processing",
	order.StatusPackaged:       "Packaged",
	order.StatusShipped:        "Shipped",
	order.StatusOutForDelivery: "Out for Delivery",
	order.StatusDelivered:      "Delivered",
}

type Step struct {
	Status  order.Status `json:"status"`
	Label   string       `json:"label"`
	Done    bool         `json:"done"`
	Current bool         `json:"current"`
}

type View struct {
	OrderID           uint             `json:"orderId"`
	UserID            uint             `json:"userId"`
	Total             float64          `json:"total"`
	Status            order.Status     `json:"status"`
	PaymentMethod     string           `json:"paymentMethod,omitempty"`
	Created           time.Time        `json:"created"`
	StepIndex         int              `json:"stepIndex"`
	Steps             []Step           `json:"steps"`
	Progress          int              `json:"progress"`
	EstimatedDelivery time.Time        `json:"estimatedDelivery"`
	Location          string           `json:"location"`
	Overdue           bool             `json:"overdue"`
	Delivery          order.Delivery   `json:"delivery"`
	Items             []order.ItemView `json:"items,omitempty"`
}

// Derive computes the view from scratch on every call; nothing carries
// over from earlier polls.
func Derive(v order.View, now time.Time) View {
	status := order.Normalize(string(v.Status))
	idx := status.Index()

	steps := make([]Step, 0, len(stepLabels))
	for i, s := range order.CanonicalStatuses() {
		steps = append(steps, Step{
			Status:  s,
			Label:   stepLabels[s],
			Done:    i <= idx,
			Current: i == idx,
		})
	}

	eta := v.Created.Add(DeliveryWindow)

	return View{
		OrderID:           v.ID,
		UserID:            v.UserID,
		Total:             v.Total,
		Status:            status,
		PaymentMethod:     v.PaymentMethod,
		Created:           v.Created,
		StepIndex:         idx,
		Steps:             steps,
		Progress:          progressByStatus[status],
		EstimatedDelivery: eta,
		Location:          locationByStatus[status],
		Overdue:           status != order.StatusDelivered && now.After(eta),
		Delivery:          v.Delivery,
		Items:             v.Items,
	}
}
