// Package cart owns the authoritative list of cart lines for one shopper
// session.
//
// A Manager is constructed by rehydrating from storage, mutated only through
// its methods, and writes the whole cart back to storage after every
// mutation. Every registered CountSurface is told the new item count after
// construction and after each save.
package cart

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/fish-storefront/internal/domain/catalog"
	"github.com/xenking/fish-storefront/internal/storage"
)

// ErrInvalidQuantity is returned when an add would store a non-positive
// quantity. The cart is left unchanged.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

// DefaultQuantity is the amount added when the caller does not choose one.
var DefaultQuantity = decimal.NewFromInt(1)

// CountSurface displays the cart's total item count. A Manager may publish to
// any number of surfaces.
type CountSurface interface {
	ShowCount(count decimal.Decimal)
}

// CountSurfaceFunc adapts a function to CountSurface.
type CountSurfaceFunc func(count decimal.Decimal)

// ShowCount implements CountSurface.
func (f CountSurfaceFunc) ShowCount(count decimal.Decimal) { f(count) }

// Option configures a Manager.
type Option func(*Manager)

// WithSurfaces registers count surfaces. Nil surfaces are ignored.
func WithSurfaces(surfaces ...CountSurface) Option {
	return func(m *Manager) {
		for _, s := range surfaces {
			if s != nil {
				m.surfaces = append(m.surfaces, s)
			}
		}
	}
}

// Manager is the single source of truth for a session's cart.
type Manager struct {
	store    storage.Store
	catalog  *catalog.Catalog
	surfaces []CountSurface

	mu    sync.Mutex
	lines []Line
}

// Open rehydrates the cart persisted in store. A missing, unreadable or
// malformed value yields an empty cart; this is never reported as an error.
func Open(ctx context.Context, store storage.Store, cat *catalog.Catalog, opts ...Option) *Manager {
	m := &Manager{store: store, catalog: cat}
	for _, o := range opts {
		o(m)
	}
	m.lines = m.load(ctx)
	m.publish()
	return m
}

func (m *Manager) load(ctx context.Context) []Line {
	lg := zctx.From(ctx)

	data, err := m.store.Get(ctx, storage.KeyCart)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			lg.Warn("Cart load failed, starting empty", zap.Error(err))
		}
		return []Line{}
	}
	lines, err := UnmarshalLines(data)
	if err != nil {
		lg.Debug("Discarding malformed cart", zap.Error(err))
		return []Line{}
	}
	return lines
}

// Reload replaces the in-memory cart with the persisted one. It picks up
// writes made by other holders of the same storage key and reports whether
// the cart changed.
func (m *Manager) Reload(ctx context.Context) bool {
	lines := m.load(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	changed := !slices.EqualFunc(m.lines, lines, lineEqual)
	m.lines = lines
	m.publishLocked()
	return changed
}

// AddItem adds qty of the catalog item id. An id the catalog does not know
// reports false without error. If the item is already in the cart its
// quantity is increased, otherwise a new line is appended.
func (m *Manager) AddItem(ctx context.Context, id int, qty decimal.Decimal) (bool, error) {
	it, ok := m.catalog.Get(id)
	if !ok {
		return false, nil
	}
	if !qty.IsPositive() {
		return false, ErrInvalidQuantity
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := slices.Clone(m.lines)
	if i := indexOf(next, id); i >= 0 {
		next[i].Quantity = next[i].Quantity.Add(qty)
	} else {
		next = append(next, newLine(it, qty))
	}
	if err := m.saveLocked(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveItem deletes the line for id if present.
func (m *Manager) RemoveItem(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.saveLocked(ctx, without(m.lines, id))
}

// UpdateQuantity overwrites the quantity of the line for id. A quantity of
// zero or less removes the line. Ids not in the cart are ignored.
func (m *Manager) UpdateQuantity(ctx context.Context, id int, qty decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := indexOf(m.lines, id)
	if i < 0 {
		return nil
	}
	if !qty.IsPositive() {
		return m.saveLocked(ctx, without(m.lines, id))
	}
	next := slices.Clone(m.lines)
	next[i].Quantity = qty
	return m.saveLocked(ctx, next)
}

// Clear empties the cart.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.saveLocked(ctx, []Line{})
}

// Lines returns a copy of the cart lines in insertion order.
func (m *Manager) Lines() []Line {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.lines)
}

// Line returns the line for id.
func (m *Manager) Line(id int) (Line, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := indexOf(m.lines, id); i >= 0 {
		return m.lines[i], true
	}
	return Line{}, false
}

// IsEmpty reports whether the cart has no lines.
func (m *Manager) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lines) == 0
}

// Total is the sum of quantity × unit price over all lines, using each
// line's own price.
func (m *Manager) Total() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()

	total, _ := Totals(m.lines)
	return total
}

// TotalItems is the sum of line quantities.
func (m *Manager) TotalItems() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, items := Totals(m.lines)
	return items
}

// TotalWeight is the sum of line quantities in kg. It is identical to
// TotalItems.
func (m *Manager) TotalWeight() decimal.Decimal {
	return m.TotalItems()
}

func indexOf(lines []Line, id int) int {
	return slices.IndexFunc(lines, func(l Line) bool { return l.ItemID == id })
}

// without returns a copy of lines minus the line for id.
func without(lines []Line, id int) []Line {
	return slices.DeleteFunc(slices.Clone(lines), func(l Line) bool { return l.ItemID == id })
}

// saveLocked persists next and only then makes it the in-memory cart, so a
// failed write leaves the manager as it was.
func (m *Manager) saveLocked(ctx context.Context, next []Line) error {
	if err := m.store.Set(ctx, storage.KeyCart, MarshalLines(next)); err != nil {
		return errors.Wrap(err, "save cart")
	}
	m.lines = next
	m.publishLocked()
	return nil
}

func (m *Manager) publish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishLocked()
}

func (m *Manager) publishLocked() {
	_, count := Totals(m.lines)
	for _, s := range m.surfaces {
		s.ShowCount(count)
	}
}

func lineEqual(a, b Line) bool {
	return a.ItemID == b.ItemID &&
		a.Name == b.Name &&
		a.ImageRef == b.ImageRef &&
		a.UnitPrice.Equal(b.UnitPrice) &&
		a.Quantity.Equal(b.Quantity)
}
