package tracking

import (
	"fmt"
	"io"
	"strings"

	"storefront-orders/internal/utils"
)

const (
	MethodCOD          = "cod"
	MethodBankTransfer = "bank_transfer"
	MethodCard         = "card"
	MethodEWallet      = "ewallet"
)

var paymentInstructions = map[string][]string{
	MethodCOD: {
		"Prepare {{amount}} in cash for the courier",
		"Pay the courier directly when the parcel arrives",
		"Keep the courier receipt for your records",
	},
	MethodBankTransfer: {
		"Transfer {{amount}} quoting invoice {{invoice}}",
		"Processing starts once the transfer clears",
	},
	MethodCard: {
		"{{amount}} was charged to your card at checkout",
	},
	MethodEWallet: {
		"Approve the {{amount}} payment request in your wallet app",
	},
}

// PaymentInstructions returns the steps for method with placeholders filled in.
func PaymentInstructions(method string, vars map[string]string) []string {
	steps, ok := paymentInstructions[strings.ToLower(strings.TrimSpace(method))]
	if !ok {
		steps = []string{"Follow the payment instructions sent with your confirmation email"}
	}

	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	r := strings.NewReplacer(pairs...)

	out := make([]string, 0, len(steps))
	for _, s := range steps {
		out = append(out, r.Replace(s))
	}
	return out
}

// RenderInvoice writes a plain-text invoice for the view. It only formats
// what the view already holds.
func RenderInvoice(w io.Writer, v View) error {
	invoiceNo := utils.InvoiceNumber(v.OrderID, v.Created)
	amount := fmt.Sprintf("%.2f", v.Total)

	var b strings.Builder
	fmt.Fprintf(&b, "INVOICE %s\n", invoiceNo)
	b.WriteString(strings.Repeat("=", 40) + "\n")
	fmt.Fprintf(&b, "Order ID:           %d\n", v.OrderID)
	fmt.Fprintf(&b, "User ID:            %d\n", v.UserID)
	fmt.Fprintf(&b, "Total:              %s\n", amount)
	fmt.Fprintf(&b, "Status:             %s\n", v.Status)
	fmt.Fprintf(&b, "Created:            %s\n", v.Created.UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "Estimated Delivery: %s\n", v.EstimatedDelivery.UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "Current Location:   %s\n", v.Location)

	if len(v.Items) > 0 {
		b.WriteString("\nItems\n")
		for _, it := range v.Items {
			fmt.Fprintf(&b, "  #%d  x%d  @ %.2f = %.2f\n", it.ProductID, it.Quantity, it.Price, it.Price*float64(it.Quantity))
		}
	}

	b.WriteString("\nDeliver To\n")
	fmt.Fprintf(&b, "  Name:    %s\n", v.Delivery.FullName)
	fmt.Fprintf(&b, "  Phone:   %s\n", v.Delivery.Phone)
	fmt.Fprintf(&b, "  Address: %s\n", v.Delivery.Address)
	fmt.Fprintf(&b, "  City:    %s\n", v.Delivery.City)
	if v.Delivery.Notes != "" {
		fmt.Fprintf(&b, "  Notes:   %s\n", v.Delivery.Notes)
	}

	if v.PaymentMethod != "" {
		fmt.Fprintf(&b, "\nPayment (%s)\n", v.PaymentMethod)
		steps := PaymentInstructions(v.PaymentMethod, map[string]string{
			"amount":  amount,
			"invoice": invoiceNo,
		})
		for i, s := range steps {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, s)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
