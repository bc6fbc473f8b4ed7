package webhook

import (
	"fmt"
	"strings"
	"time"

	"github.com/southsidewear/storefront/internal/domain"
)

const (
	// EmailSubject is the subject of the operator email.
	EmailSubject = "New approved order — South Side"

	timestampLayout = "2006-01-02 15:04:05"
)

// Summary is the human-readable record of an approved order.
type Summary struct {
	PaymentID  string
	OrderID    string
	Payer      domain.Payer
	Shipping   domain.ShippingInfo
	Items      []domain.LineItem
	ApprovedAt time.Time
}

// Format renders the summary as it is written to the order log and emailed.
func (s Summary) Format() string {
	var b strings.Builder

	b.WriteString("New APPROVED order!\n\n")
	fmt.Fprintf(&b, "Payment ID: %s\n", s.PaymentID)
	if s.OrderID != "" {
		fmt.Fprintf(&b, "Local order: %s\n", s.OrderID)
	}
	fmt.Fprintf(&b, "MP buyer: %s\n", s.Payer.FullName())
	fmt.Fprintf(&b, "MP email: %s\n", s.Payer.Email)
	if s.Shipping.Email != "" && s.Shipping.Email != s.Payer.Email {
		fmt.Fprintf(&b, "Form email: %s\n", s.Shipping.Email)
	}

	b.WriteString("\nShipping address:\n")
	if s.Shipping.Name != "" {
		fmt.Fprintf(&b, "%s\n", s.Shipping.Name)
	}
	if s.Shipping.Address != "" {
		fmt.Fprintf(&b, "%s\n", s.Shipping.Address)
	}
	if s.Shipping.City != "" || s.Shipping.PostalCode != "" {
		fmt.Fprintf(&b, "%s (CP %s)\n", s.Shipping.City, s.Shipping.PostalCode)
	}
	fmt.Fprintf(&b, "Tel: %s\n\n", s.Shipping.Phone)

	b.WriteString("Items purchased:\n")
	for _, item := range s.Items {
		fmt.Fprintf(&b, "- %s x%d — $%d\n", item.Title, item.Quantity, item.UnitPrice)
	}

	fmt.Fprintf(&b, "\nDate: %s\n", s.ApprovedAt.Format(timestampLayout))
	return b.String()
}
