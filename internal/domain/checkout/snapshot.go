package checkout

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/fish-storefront/internal/domain/cart"
	"github.com/xenking/fish-storefront/internal/domain/catalog"
)

// Snapshot is a copy of the cart and its totals taken when the shopper
// proceeds to checkout.
type Snapshot struct {
	Lines       []cart.Line
	Total       decimal.Decimal
	TotalItems  decimal.Decimal
	TotalWeight decimal.Decimal
	CreatedAt   time.Time
}

// Expired reports whether the snapshot is older than ttl at now.
func (s Snapshot) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.CreatedAt) > ttl
}

// Encode writes the persisted form
// {"items","total","totalItems","totalWeight","timestamp"}, with timestamp
// in Unix milliseconds.
func (s Snapshot) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("items")
	cart.EncodeLines(e, s.Lines)
	e.FieldStart("total")
	catalog.EncodeDecimal(e, s.Total)
	e.FieldStart("totalItems")
	catalog.EncodeDecimal(e, s.TotalItems)
	e.FieldStart("totalWeight")
	catalog.EncodeDecimal(e, s.TotalWeight)
	e.FieldStart("timestamp")
	e.Int64(s.CreatedAt.UnixMilli())
	e.ObjEnd()
}

// Decode reads the persisted form.
func (s *Snapshot) Decode(d *jx.Decoder) error {
	var hasTimestamp bool
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "items":
			s.Lines, err = cart.DecodeLines(d)
		case "total":
			s.Total, err = catalog.DecodeDecimal(d)
		case "totalItems":
			s.TotalItems, err = catalog.DecodeDecimal(d)
		case "totalWeight":
			s.TotalWeight, err = catalog.DecodeDecimal(d)
		case "timestamp":
			var ms int64
			ms, err = d.Int64()
			s.CreatedAt = time.UnixMilli(ms)
			hasTimestamp = true
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !hasTimestamp {
		return errors.New("snapshot has no timestamp")
	}
	return nil
}

// Marshal returns the persisted form.
func (s Snapshot) Marshal() []byte {
	var e jx.Encoder
	s.Encode(&e)
	return e.Bytes()
}

// Unmarshal parses the persisted form.
func Unmarshal(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := s.Decode(jx.DecodeBytes(data)); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
