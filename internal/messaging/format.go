package messaging

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/fish-storefront/internal/domain/cart"
	"github.com/xenking/fish-storefront/internal/domain/catalog"
	"github.com/xenking/fish-storefront/internal/domain/forms"
)

// Order is everything an order message needs.
type Order struct {
	Customer    forms.CheckoutForm
	Lines       []cart.Line
	Total       decimal.Decimal
	TotalItems  decimal.Decimal
	TotalWeight decimal.Decimal
}

// FormatPrice renders an amount in rupees.
func FormatPrice(v decimal.Decimal) string {
	return "₹" + v.String()
}

// DeliveryTimeText maps a delivery window value to its label. Unknown values
// are the morning window.
func DeliveryTimeText(v string) string {
	switch v {
	case forms.DeliveryAfternoon:
		return "Afternoon (12 PM - 4 PM)"
	case forms.DeliveryEvening:
		return "Evening (4 PM - 8 PM)"
	default:
		return "Morning (9 AM - 12 PM)"
	}
}

var subjects = map[string]string{
	"inquiry":   "General Inquiry",
	"order":     "Order Related",
	"feedback":  "Feedback",
	"complaint": "Complaint",
	"other":     "Other",
}

// SubjectText maps a contact subject value to its label. Unknown values are
// a general inquiry.
func SubjectText(v string) string {
	if s, ok := subjects[v]; ok {
		return s
	}
	return subjects["inquiry"]
}

// OrderMessage renders an order for the shop owner.
func OrderMessage(o Order) string {
	var b strings.Builder
	b.WriteString("🐟 *New Fish Order* 🐟\n\n")

	b.WriteString("*Customer Details:*\n")
	b.WriteString("Name: " + o.Customer.Name + "\n")
	b.WriteString("Phone: " + o.Customer.Phone + "\n")
	b.WriteString("Address: " + o.Customer.Address + "\n")
	b.WriteString("Preferred Delivery: " + DeliveryTimeText(o.Customer.DeliveryTime) + "\n\n")

	b.WriteString("*Order Details:*\n")
	for _, l := range o.Lines {
		b.WriteString(l.Name + " - " + l.Quantity.String() + " kg (" + FormatPrice(l.Subtotal()) + ")\n")
	}

	b.WriteString("\n*Order Summary:*\n")
	b.WriteString("Total Items: " + o.TotalItems.String() + "\n")
	b.WriteString("Total Weight: " + o.TotalWeight.String() + " kg\n")
	b.WriteString("*Total Amount: " + FormatPrice(o.Total) + "*\n")

	if o.Customer.Instructions != "" {
		b.WriteString("\n*Special Instructions:*\n" + o.Customer.Instructions + "\n")
	}

	b.WriteString("\nPlease confirm availability and delivery details.")
	return b.String()
}

// ContactMessage renders a contact form submission.
func ContactMessage(f forms.ContactForm) string {
	var b strings.Builder
	b.WriteString("📞 *Contact Form Submission* 📞\n\n")
	b.WriteString("*Customer Details:*\n")
	b.WriteString("Name: " + f.Name + "\n")
	b.WriteString("Phone: " + f.Phone + "\n")
	if f.Email != "" {
		b.WriteString("Email: " + f.Email + "\n")
	}
	b.WriteString("Subject: " + SubjectText(f.Subject) + "\n\n")
	b.WriteString("*Message:*\n" + f.Message + "\n\n")
	b.WriteString("Please respond at your earliest convenience.")
	return b.String()
}

// BuyNowMessage renders a single-item purchase request.
func BuyNowMessage(it catalog.Item, qty decimal.Decimal) string {
	return "Hello! I want to buy " + it.Name + " - " + qty.String() + " kg for " +
		FormatPrice(it.UnitPrice.Mul(qty)) + ". Please confirm availability and delivery details."
}
