package handler

import (
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/fish-storefront/internal/domain/cart"
	"github.com/xenking/fish-storefront/internal/domain/catalog"
	"github.com/xenking/fish-storefront/internal/domain/checkout"
	"github.com/xenking/fish-storefront/internal/domain/forms"
	"github.com/xenking/fish-storefront/internal/messaging"
	"github.com/xenking/fish-storefront/internal/storefront"
)

func (h *Handler) encodeItem(e *jx.Encoder, it catalog.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int(it.ID)
	e.FieldStart("name")
	e.Str(it.Name)
	e.FieldStart("description")
	e.Str(it.Description)
	e.FieldStart("price")
	catalog.EncodeDecimal(e, it.UnitPrice)
	e.FieldStart("priceText")
	e.Str(messaging.FormatPrice(it.UnitPrice))
	e.FieldStart("image")
	e.Str(h.imageURL(it.ImageRef))
	e.ObjEnd()
}

func (h *Handler) encodeItems(e *jx.Encoder, items []catalog.Item) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range items {
		h.encodeItem(e, it)
	}
	e.ArrEnd()
	e.FieldStart("count")
	e.Int(len(items))
	e.ObjEnd()
}

// encodeLines writes lines with their subtotals, under "items".
func (h *Handler) encodeLines(e *jx.Encoder, lines []cart.Line) {
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range lines {
		e.ObjStart()
		e.FieldStart("id")
		e.Int(l.ItemID)
		e.FieldStart("name")
		e.Str(l.Name)
		e.FieldStart("price")
		catalog.EncodeDecimal(e, l.UnitPrice)
		e.FieldStart("image")
		e.Str(h.imageURL(l.ImageRef))
		e.FieldStart("quantity")
		catalog.EncodeDecimal(e, l.Quantity)
		e.FieldStart("subtotal")
		catalog.EncodeDecimal(e, l.Subtotal())
		e.ObjEnd()
	}
	e.ArrEnd()
}

func (h *Handler) encodeCart(e *jx.Encoder, m *cart.Manager) {
	lines := m.Lines()
	total, items := cart.Totals(lines)

	e.ObjStart()
	h.encodeLines(e, lines)
	e.FieldStart("total")
	catalog.EncodeDecimal(e, total)
	e.FieldStart("totalText")
	e.Str(messaging.FormatPrice(total))
	e.FieldStart("totalItems")
	catalog.EncodeDecimal(e, items)
	e.FieldStart("totalWeight")
	catalog.EncodeDecimal(e, items)
	e.FieldStart("empty")
	e.Bool(len(lines) == 0)
	e.ObjEnd()
}

func (h *Handler) encodeSnapshot(e *jx.Encoder, s checkout.Snapshot, info *forms.CustomerInfo) {
	e.ObjStart()
	h.encodeLines(e, s.Lines)
	e.FieldStart("total")
	catalog.EncodeDecimal(e, s.Total)
	e.FieldStart("totalText")
	e.Str(messaging.FormatPrice(s.Total))
	e.FieldStart("totalItems")
	catalog.EncodeDecimal(e, s.TotalItems)
	e.FieldStart("totalWeight")
	catalog.EncodeDecimal(e, s.TotalWeight)
	e.FieldStart("timestamp")
	e.Int64(s.CreatedAt.UnixMilli())
	if info != nil {
		e.FieldStart("customerInfo")
		encodeCustomerInfo(e, *info)
	}
	e.ObjEnd()
}

func encodeCustomerInfo(e *jx.Encoder, c forms.CustomerInfo) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("phone")
	e.Str(c.Phone)
	e.FieldStart("address")
	e.Str(c.Address)
	e.ObjEnd()
}

func encodeCheckoutForm(e *jx.Encoder, f forms.CheckoutForm) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(f.Name)
	e.FieldStart("phone")
	e.Str(f.Phone)
	e.FieldStart("address")
	e.Str(f.Address)
	e.FieldStart("deliveryTime")
	e.Str(f.DeliveryTime)
	e.FieldStart("instructions")
	e.Str(f.Instructions)
	e.ObjEnd()
}

func encodeContactForm(e *jx.Encoder, f forms.ContactForm) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(f.Name)
	e.FieldStart("phone")
	e.Str(f.Phone)
	e.FieldStart("email")
	e.Str(f.Email)
	e.FieldStart("subject")
	e.Str(f.Subject)
	e.FieldStart("message")
	e.Str(f.Message)
	e.ObjEnd()
}

// encodeSent is the reply to any action that handed a message to the
// bridge.
func encodeSent(e *jx.Encoder, message, link string, redirect checkout.View) {
	e.ObjStart()
	e.FieldStart("message")
	e.Str(message)
	e.FieldStart("link")
	e.Str(link)
	if redirect != "" {
		e.FieldStart("redirect")
		e.Str(string(redirect))
	}
	e.ObjEnd()
}

func encodeStatus(e *jx.Encoder, s storefront.Status) {
	e.ObjStart()
	e.FieldStart("open")
	e.Bool(s.Open)
	e.FieldStart("label")
	e.Str(s.Label)
	e.FieldStart("estimatedDelivery")
	e.Str(s.EstimatedDelivery.Format(time.RFC3339))
	e.FieldStart("deliveryDate")
	e.Str(s.DeliveryDate)
	e.ObjEnd()
}
