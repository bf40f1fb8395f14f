package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// MailNotifier posts confirmations to an HTTP mail-sending service.
type MailNotifier struct {
	client *resty.Client
	from   string
}

type mailRequest struct {
	From    string            `json:"from"`
	To      string            `json:"to"`
	Subject string            `json:"subject"`
	Text    string            `json:"text"`
	Order   OrderConfirmation `json:"order"`
}

func NewMailNotifier(baseURL, apiKey, from string) *MailNotifier {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(15*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	return &MailNotifier{client: client, from: from}
}

func (m *MailNotifier) SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error {
	if msg.Email == "" {
		return fmt.Errorf("order %d: no recipient address", msg.OrderID)
	}

	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(mailRequest{
			From:    m.from,
			To:      msg.Email,
			Subject: fmt.Sprintf("Order #%d confirmed", msg.OrderID),
			Text:    confirmationText(msg),
			Order:   msg,
		}).
		Post("/send")
	if err != nil {
		return fmt.Errorf("mail request failed: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("mail service responded %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	return nil
}

func confirmationText(msg OrderConfirmation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Hi %s,\n\n", msg.Delivery.FullName)
	fmt.Fprintf(&b, "Thanks for your order #%d. Current status: %s.\n\n", msg.OrderID, msg.Status)
	for _, it := range msg.Items {
		fmt.Fprintf(&b, "  product %d  x%d  @ %.2f\n", it.ProductID, it.Quantity, it.Price)
	}
	fmt.Fprintf(&b, "\nTotal: %.2f\nPayment: %s\n", msg.Total, msg.PaymentMethod)
	fmt.Fprintf(&b, "Deliver to: %s, %s (%s)\n", msg.Delivery.Address, msg.Delivery.City, msg.Delivery.Phone)

	return b.String()
}
