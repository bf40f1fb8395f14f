package utils

import (
	"fmt"
	"time"
)

// InvoiceNumber derives a stable invoice number from the order, so
// re-rendering the same order always yields the same number.
func InvoiceNumber(orderID uint, created time.Time) string {
	return fmt.Sprintf("INV-%s-%06d", created.UTC().Format("20060102"), orderID)
}
