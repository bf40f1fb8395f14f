package notify

import (
	"context"

	"storefront-orders/internal/logger"

	"go.uber.org/zap"
)

// LogNotifier only records the confirmation; used when no mail service
// or broker is configured.
type LogNotifier struct{}

func (LogNotifier) SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error {
	logger.FromCtx(ctx).Info("order confirmation (log only)",
		zap.Uint("order_id", msg.OrderID),
		zap.String("email", msg.Email),
		zap.Float64("total", msg.Total),
	)
	return nil
}
