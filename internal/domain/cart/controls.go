package cart

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/fish-storefront/internal/storage"
)

// Step is the amount the cart page's +/- buttons change a line by, and the
// smallest quantity the minus button leaves behind.
var Step = decimal.RequireFromString("0.5")

// Increase adds Step to the line for id. It reports false if id is not in
// the cart.
func Increase(ctx context.Context, m *Manager, id int) (bool, error) {
	l, ok := m.Line(id)
	if !ok {
		return false, nil
	}
	return true, m.UpdateQuantity(ctx, id, l.Quantity.Add(Step))
}

// Decrease subtracts Step from the line for id but never below Step, so it
// never removes the line. It reports false if id is not in the cart.
func Decrease(ctx context.Context, m *Manager, id int) (bool, error) {
	l, ok := m.Line(id)
	if !ok {
		return false, nil
	}
	return true, m.UpdateQuantity(ctx, id, decimal.Max(Step, l.Quantity.Sub(Step)))
}

// ParseQuantity parses user-entered quantity text. Anything that is not a
// number greater than zero is ErrInvalidQuantity.
func ParseQuantity(raw string) (decimal.Decimal, error) {
	q, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !q.IsPositive() {
		return decimal.Decimal{}, ErrInvalidQuantity
	}
	return q, nil
}

// SetFromInput overwrites the quantity of the line for id with a parsed user
// value. Invalid input leaves the cart unchanged.
func SetFromInput(ctx context.Context, m *Manager, id int, raw string) error {
	q, err := ParseQuantity(raw)
	if err != nil {
		return err
	}
	return m.UpdateQuantity(ctx, id, q)
}

// SaveForLater moves every line to the saved-for-later slot and clears the
// cart. It reports false when the cart is already empty.
func SaveForLater(ctx context.Context, m *Manager) (bool, error) {
	lines := m.Lines()
	if len(lines) == 0 {
		return false, nil
	}
	if err := m.store.Set(ctx, storage.KeySavedForLater, MarshalLines(lines)); err != nil {
		return false, errors.Wrap(err, "save for later")
	}
	if err := m.Clear(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// HasSaved reports whether a saved-for-later slot exists.
func HasSaved(ctx context.Context, m *Manager) bool {
	_, err := m.store.Get(ctx, storage.KeySavedForLater)
	return err == nil
}

// RestoreSaved re-adds every saved line through AddItem, so the current
// catalog price applies and items no longer sold are skipped. The saved
// slot is removed afterwards. It returns how many lines were restored.
func RestoreSaved(ctx context.Context, m *Manager) (int, error) {
	data, err := m.store.Get(ctx, storage.KeySavedForLater)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "load saved items")
	}

	saved, err := UnmarshalLines(data)
	if err != nil {
		saved = nil
	}

	restored := 0
	for _, l := range saved {
		ok, err := m.AddItem(ctx, l.ItemID, l.Quantity)
		if err != nil {
			return restored, err
		}
		if ok {
			restored++
		}
	}
	if err := m.store.Delete(ctx, storage.KeySavedForLater); err != nil {
		return restored, errors.Wrap(err, "delete saved items")
	}
	return restored, nil
}
