package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Decode parses a JSON array of {"id","name","price","image","description"}
// objects. Unknown fields are skipped.
func Decode(data []byte) ([]Item, error) {
	var items []Item
	d := jx.DecodeBytes(data)
	if err := d.Arr(func(d *jx.Decoder) error {
		var it Item
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				it.ID, err = d.Int()
			case "name":
				it.Name, err = d.Str()
			case "description":
				it.Description, err = d.Str()
			case "image":
				it.ImageRef, err = d.Str()
			case "price":
				it.UnitPrice, err = DecodeDecimal(d)
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
		items = append(items, it)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	return items, nil
}

// DecodeDecimal reads a JSON number, or a string holding a number, as a
// decimal without going through float64.
func DecodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Decimal{}, errors.Errorf("expected number, got %s", d.Next())
	}
}

// EncodeDecimal writes v as a bare JSON number.
func EncodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.String()))
}

// JSONSource serves items decoded from a JSON document, such as the
// catalog embedded in the binary.
type JSONSource []byte

// List implements Source.
func (s JSONSource) List(context.Context) ([]Item, error) {
	return Decode(s)
}
