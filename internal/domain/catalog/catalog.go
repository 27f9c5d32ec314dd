// Package catalog holds the fixed set of sellable items.
//
// A Catalog is built once at startup and never mutated afterwards, so it is
// safe to share between every page controller without locking.
package catalog

import (
	"context"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// FeaturedCount is the number of items shown on the home page.
const FeaturedCount = 6

// Item is a sellable catalog entry. UnitPrice is in whole currency units per kg.
type Item struct {
	ID          int
	Name        string
	Description string
	UnitPrice   decimal.Decimal
	ImageRef    string
}

// Source loads catalog items from an external system.
type Source interface {
	List(ctx context.Context) ([]Item, error)
}

// SortOrder selects the ordering used by Catalog.Sorted.
type SortOrder string

const (
	SortByCatalog SortOrder = ""
	SortByName    SortOrder = "name"
	SortPriceLow  SortOrder = "price-low"
	SortPriceHigh SortOrder = "price-high"
)

// Catalog is an immutable, id-indexed list of items in catalog order.
type Catalog struct {
	items []Item
	byID  map[int]int
}

// New validates items and freezes them into a Catalog. Ids must be positive
// and unique, prices strictly positive.
func New(items []Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]Item, len(items)),
		byID:  make(map[int]int, len(items)),
	}
	copy(c.items, items)

	for i, it := range c.items {
		if it.ID <= 0 {
			return nil, errors.Errorf("item %q: id must be positive, got %d", it.Name, it.ID)
		}
		if !it.UnitPrice.IsPositive() {
			return nil, errors.Errorf("item %d: price must be positive, got %s", it.ID, it.UnitPrice)
		}
		if _, dup := c.byID[it.ID]; dup {
			return nil, errors.Errorf("duplicate item id %d", it.ID)
		}
		c.byID[it.ID] = i
	}
	return c, nil
}

// Load reads every item from src and freezes them.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	items, err := src.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list catalog items")
	}
	return New(items)
}

// Get returns the item with the given id.
func (c *Catalog) Get(id int) (Item, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// Len reports the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// List returns a copy of all items in catalog order.
func (c *Catalog) List() []Item {
	return slices.Clone(c.items)
}

// Featured returns the first FeaturedCount items.
func (c *Catalog) Featured() []Item {
	n := min(FeaturedCount, len(c.items))
	return slices.Clone(c.items[:n])
}

// Sorted returns a copy of the items in the requested order. Unknown orders
// keep catalog order. Name ordering uses locale-aware collation so that
// non-Latin names sort the way shoppers expect.
func (c *Catalog) Sorted(order SortOrder) []Item {
	out := c.List()
	switch order {
	case SortByName:
		col := collate.New(language.Und)
		slices.SortStableFunc(out, func(a, b Item) int {
			return col.CompareString(a.Name, b.Name)
		})
	case SortPriceLow:
		slices.SortStableFunc(out, func(a, b Item) int {
			return a.UnitPrice.Cmp(b.UnitPrice)
		})
	case SortPriceHigh:
		slices.SortStableFunc(out, func(a, b Item) int {
			return b.UnitPrice.Cmp(a.UnitPrice)
		})
	}
	return out
}

// Search returns the items whose name or description contains term,
// ignoring case. An empty term matches everything.
func (c *Catalog) Search(term string) []Item {
	return Filter(c.List(), term)
}

// Filter keeps the items of list that match term, preserving order.
func Filter(list []Item, term string) []Item {
	term = strings.TrimSpace(term)
	if term == "" {
		return list
	}
	fold := cases.Fold()
	needle := fold.String(term)

	out := list[:0:0]
	for _, it := range list {
		if strings.Contains(fold.String(it.Name), needle) || strings.Contains(fold.String(it.Description), needle) {
			out = append(out, it)
		}
	}
	return out
}
