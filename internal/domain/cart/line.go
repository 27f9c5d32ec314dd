package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/fish-storefront/internal/domain/catalog"
)

// Line is one cart entry. Name, UnitPrice and ImageRef are copied from the
// catalog when the line is created and do not follow later catalog changes.
type Line struct {
	ItemID    int
	Name      string
	UnitPrice decimal.Decimal
	ImageRef  string
	Quantity  decimal.Decimal
}

// Subtotal is Quantity × UnitPrice.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(l.Quantity)
}

func newLine(it catalog.Item, qty decimal.Decimal) Line {
	return Line{
		ItemID:    it.ID,
		Name:      it.Name,
		UnitPrice: it.UnitPrice,
		ImageRef:  it.ImageRef,
		Quantity:  qty,
	}
}

// Totals sums lines. Items and weight are the same quantity dimension: both
// are the sum of line quantities.
func Totals(lines []Line) (total, items decimal.Decimal) {
	total, items = decimal.Zero, decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
		items = items.Add(l.Quantity)
	}
	return total, items
}

// EncodeLines writes lines as the persisted JSON array
// [{"id","name","price","image","quantity"}].
func EncodeLines(e *jx.Encoder, lines []Line) {
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
		e.Str(l.ImageRef)
		e.FieldStart("quantity")
		catalog.EncodeDecimal(e, l.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
}

// MarshalLines returns the persisted JSON form of lines.
func MarshalLines(lines []Line) []byte {
	var e jx.Encoder
	EncodeLines(&e, lines)
	return e.Bytes()
}

// DecodeLines reads the persisted JSON array. A document that breaks a cart
// invariant (non-positive id or quantity, repeated id) is rejected as a
// whole.
func DecodeLines(d *jx.Decoder) ([]Line, error) {
	lines := []Line{}
	seen := make(map[int]struct{})
	err := d.Arr(func(d *jx.Decoder) error {
		var l Line
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				l.ItemID, err = d.Int()
			case "name":
				l.Name, err = d.Str()
			case "price":
				l.UnitPrice, err = catalog.DecodeDecimal(d)
			case "image":
				l.ImageRef, err = d.Str()
			case "quantity":
				l.Quantity, err = catalog.DecodeDecimal(d)
			default:
				err = d.Skip()
			}
			if err != nil {
				return errors.Wrapf(err, "field %q", key)
			}
			return nil
		}); err != nil {
			return err
		}
		if l.ItemID <= 0 {
			return errors.Errorf("line id must be positive, got %d", l.ItemID)
		}
		if !l.Quantity.IsPositive() {
			return errors.Errorf("line %d: quantity must be positive, got %s", l.ItemID, l.Quantity)
		}
		if _, dup := seen[l.ItemID]; dup {
			return errors.Errorf("line %d appears twice", l.ItemID)
		}
		seen[l.ItemID] = struct{}{}
		lines = append(lines, l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// UnmarshalLines parses the persisted JSON form of a cart.
func UnmarshalLines(data []byte) ([]Line, error) {
	return DecodeLines(jx.DecodeBytes(data))
}
