package cart

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/fish-storefront/internal/domain/catalog"
	"github.com/xenking/fish-storefront/internal/storage"
	"github.com/xenking/fish-storefront/internal/storage/memory"
)

// --- Mock implementations ---

type failingStore struct {
	storage.Store
	setErr error
	getErr error
}

func (s *failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.Store.Get(ctx, key)
}

func (s *failingStore) Set(ctx context.Context, key string, value []byte) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.Store.Set(ctx, key, value)
}

type recordingSurface struct {
	counts []decimal.Decimal
}

func (r *recordingSurface) ShowCount(count decimal.Decimal) {
	r.counts = append(r.counts, count)
}

func (r *recordingSurface) last() decimal.Decimal {
	if len(r.counts) == 0 {
		return decimal.NewFromInt(-1)
	}
	return r.counts[len(r.counts)-1]
}

// --- Helpers ---

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestCatalog(t testing.TB, prices map[int]string) *catalog.Catalog {
	t.Helper()
	items := make([]catalog.Item, 0, len(prices))
	for id := 1; id <= 20; id++ {
		p, ok := prices[id]
		if !ok {
			continue
		}
		items = append(items, catalog.Item{
			ID:        id,
			Name:      "fish-" + strconv.Itoa(id),
			UnitPrice: dec(p),
			ImageRef:  "images/x.jpg",
		})
	}
	c, err := catalog.New(items)
	require.NoError(t, err)
	return c
}

func defaultCatalog(t testing.TB) *catalog.Catalog {
	return newTestCatalog(t, map[int]string{1: "200", 3: "500", 7: "450"})
}

func requireDecEqual(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	if !dec(want).Equal(got) {
		require.Fail(t, fmt.Sprintf("want %s, got %s", want, got), msgAndArgs...)
	}
}

// --- Tests ---

func TestOpen_EmptyStore(t *testing.T) {
	surface := &recordingSurface{}
	m := Open(context.Background(), memory.New(), defaultCatalog(t), WithSurfaces(surface, nil))

	assert.True(t, m.IsEmpty())
	requireDecEqual(t, "0", m.Total())
	require.Len(t, surface.counts, 1, "construction publishes the count")
	requireDecEqual(t, "0", surface.last())
}

func TestOpen_MalformedStorageIsEmpty(t *testing.T) {
	ctx := context.Background()
	for name, raw := range map[string]string{
		"garbage":       `not json`,
		"object":        `{"id":1}`,
		"zero quantity": `[{"id":1,"name":"a","price":1,"image":"","quantity":0}]`,
		"duplicate id":  `[{"id":1,"quantity":1,"price":1},{"id":1,"quantity":2,"price":1}]`,
	} {
		t.Run(name, func(t *testing.T) {
			store := memory.New()
			require.NoError(t, store.Set(ctx, storage.KeyCart, []byte(raw)))

			m := Open(ctx, store, defaultCatalog(t))
			assert.True(t, m.IsEmpty())
		})
	}
}

func TestOpen_StorageErrorIsEmpty(t *testing.T) {
	store := &failingStore{Store: memory.New(), getErr: errors.New("unreachable")}
	m := Open(context.Background(), store, defaultCatalog(t))
	assert.True(t, m.IsEmpty())
}

func TestAddItem_MergesSameID(t *testing.T) {
	ctx := context.Background()
	m := Open(ctx, memory.New(), defaultCatalog(t))

	ok, err := m.AddItem(ctx, 3, dec("2"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.AddItem(ctx, 3, dec("1"))
	require.NoError(t, err)
	require.True(t, ok)

	lines := m.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].ItemID)
	requireDecEqual(t, "3", lines[0].Quantity)
	requireDecEqual(t, "1500", m.Total())
}

func TestAddItem_UnknownID(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	m := Open(ctx, store, defaultCatalog(t))

	ok, err := m.AddItem(ctx, 99, DefaultQuantity)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, m.IsEmpty())
	assert.Zero(t, store.Len(), "nothing persisted for a failed add")
}

func TestAddItem_NonPositiveQuantity(t *testing.T) {
	ctx := context.Background()
	m := Open(ctx, memory.New(), defaultCatalog(t))

	_, err := m.AddItem(ctx, 3, dec("2"))
	require.NoError(t, err)

	ok, err := m.AddItem(ctx, 3, dec("-5"))
	require.ErrorIs(t, err, ErrInvalidQuantity)
	assert.False(t, ok)

	l, _ := m.Line(3)
	requireDecEqual(t, "2", l.Quantity)
}

func TestAddItem_KeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	m := Open(ctx, memory.New(), defaultCatalog(t))

	for _, id := range []int{7, 1, 3, 1} {
		_, err := m.AddItem(ctx, id, DefaultQuantity)
		require.NoError(t, err)
	}

	var got []int
	for _, l := range m.Lines() {
		got = append(got, l.ItemID)
	}
	assert.Equal(t, []int{7, 1, 3}, got)
}

func TestUpdateQuantity(t *testing.T) {
	ctx := context.Background()
	m := Open(ctx, memory.New(), defaultCatalog(t))
	_, err := m.AddItem(ctx, 7, DefaultQuantity)
	require.NoError(t, err)

	require.NoError(t, m.UpdateQuantity(ctx, 7, dec("2.5")))
	l, ok := m.Line(7)
	require.True(t, ok)
	requireDecEqual(t, "2.5", l.Quantity)

	require.NoError(t, m.UpdateQuantity(ctx, 1, dec("4")), "ids not in cart are ignored")
	_, ok = m.Line(1)
	assert.False(t, ok)

	require.NoError(t, m.UpdateQuantity(ctx, 7, dec("-5")))
	assert.True(t, m.IsEmpty())
	requireDecEqual(t, "0", m.TotalItems())
}

func TestUpdateQuantity_ZeroRemoves(t *testing.T) {
	ctx := context.Background()
	m := Open(ctx, memory.New(), defaultCatalog(t))
	_, _ = m.AddItem(ctx, 1, DefaultQuantity)
	_, _ = m.AddItem(ctx, 3, DefaultQuantity)

	require.NoError(t, m.UpdateQuantity(ctx, 1, decimal.Zero))

	_, ok := m.Line(1)
	assert.False(t, ok)
	assert.Len(t, m.Lines(), 1)
}

func TestRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	m := Open(ctx, memory.New(), defaultCatalog(t))
	_, _ = m.AddItem(ctx, 1, DefaultQuantity)
	_, _ = m.AddItem(ctx, 3, DefaultQuantity)

	require.NoError(t, m.RemoveItem(ctx, 42), "removing an absent id is a no-op")
	assert.Len(t, m.Lines(), 2)

	require.NoError(t, m.RemoveItem(ctx, 1))
	assert.Len(t, m.Lines(), 1)

	require.NoError(t, m.Clear(ctx))
	assert.True(t, m.IsEmpty())
}

func TestTotals_UseSnapshotPrice(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	m := Open(ctx, store, newTestCatalog(t, map[int]string{3: "500"}))
	_, err := m.AddItem(ctx, 3, dec("2"))
	require.NoError(t, err)

	// The catalog price changes between page loads.
	repriced := newTestCatalog(t, map[int]string{3: "900"})
	reopened := Open(ctx, store, repriced)
	requireDecEqual(t, "1000", reopened.Total())

	_, err = reopened.AddItem(ctx, 3, dec("1"))
	require.NoError(t, err)
	requireDecEqual(t, "1500", reopened.Total(), "existing line keeps its add-time price")
}

func TestTotalItemsEqualsTotalWeight(t *testing.T) {
	ctx := context.Background()
	m := Open(ctx, memory.New(), defaultCatalog(t))
	_, _ = m.AddItem(ctx, 1, dec("1.5"))
	_, _ = m.AddItem(ctx, 7, dec("0.3"))

	requireDecEqual(t, "1.8", m.TotalItems())
	assert.True(t, m.TotalItems().Equal(m.TotalWeight()))
	requireDecEqual(t, "435", m.Total())
}

func TestPersistReloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cat := defaultCatalog(t)

	m := Open(ctx, store, cat)
	_, _ = m.AddItem(ctx, 7, dec("1.2"))
	_, _ = m.AddItem(ctx, 1, dec("3"))
	_, _ = m.AddItem(ctx, 3, dec("0.1"))
	require.NoError(t, m.UpdateQuantity(ctx, 1, dec("2.7")))

	reopened := Open(ctx, store, cat)
	assert.True(t, slices.EqualFunc(m.Lines(), reopened.Lines(), lineEqual))
	assert.True(t, m.Total().Equal(reopened.Total()))
	assert.True(t, m.TotalItems().Equal(reopened.TotalItems()))
}

func TestSurfacesFanOut(t *testing.T) {
	ctx := context.Background()
	nav, footer := &recordingSurface{}, &recordingSurface{}
	m := Open(ctx, memory.New(), defaultCatalog(t), WithSurfaces(nav, footer))

	_, _ = m.AddItem(ctx, 1, dec("2"))
	_, _ = m.AddItem(ctx, 3, dec("0.5"))
	require.NoError(t, m.RemoveItem(ctx, 1))

	for _, s := range []*recordingSurface{nav, footer} {
		require.Len(t, s.counts, 4)
		requireDecEqual(t, "0.5", s.last())
	}
}

func TestSaveFailureIsReported(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: memory.New(), setErr: errors.New("quota exceeded")}
	surface := &recordingSurface{}
	m := Open(ctx, store, defaultCatalog(t), WithSurfaces(surface))

	ok, err := m.AddItem(ctx, 1, DefaultQuantity)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "save cart")
	assert.Len(t, surface.counts, 1, "count not republished when save fails")
	assert.True(t, m.IsEmpty(), "failed add is not kept in memory")
}

func TestSaveFailureKeepsPreviousLines(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: memory.New()}
	m := Open(ctx, store, defaultCatalog(t))
	_, err := m.AddItem(ctx, 1, dec("2"))
	require.NoError(t, err)
	_, err = m.AddItem(ctx, 3, dec("1"))
	require.NoError(t, err)
	before := m.Lines()

	store.setErr = errors.New("quota exceeded")
	_, err = m.AddItem(ctx, 1, dec("1"))
	require.Error(t, err)
	_, err = m.AddItem(ctx, 7, dec("1"))
	require.Error(t, err)
	require.Error(t, m.UpdateQuantity(ctx, 3, dec("4")))
	require.Error(t, m.UpdateQuantity(ctx, 3, decimal.Zero))
	require.Error(t, m.RemoveItem(ctx, 1))
	require.Error(t, m.Clear(ctx))

	assert.True(t, slices.EqualFunc(before, m.Lines(), lineEqual))
	requireDecEqual(t, "900", m.Total())
}

func TestRandomSequencesKeepLinesUnique(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t, map[int]string{1: "200", 2: "350", 3: "500", 4: "120", 7: "450"})
	quantities := []string{"-1", "0", "0.1", "0.5", "1", "2.5"}
	rng := rand.New(rand.NewPCG(42, 7))

	for run := range 20 {
		store := memory.New()
		m := Open(ctx, store, cat)
		for step := range 200 {
			id := 1 + rng.IntN(8)
			qty := dec(quantities[rng.IntN(len(quantities))])
			switch rng.IntN(4) {
			case 0, 1:
				_, err := m.AddItem(ctx, id, qty)
				if err != nil {
					require.ErrorIs(t, err, ErrInvalidQuantity)
				}
			case 2:
				require.NoError(t, m.UpdateQuantity(ctx, id, qty))
			case 3:
				require.NoError(t, m.RemoveItem(ctx, id))
			}

			seen := make(map[int]bool)
			for _, l := range m.Lines() {
				require.False(t, seen[l.ItemID], "run %d step %d: line %d repeated", run, step, l.ItemID)
				seen[l.ItemID] = true
				require.True(t, l.Quantity.IsPositive(), "run %d step %d: line %d has quantity %s", run, step, l.ItemID, l.Quantity)
			}
		}
		reopened := Open(ctx, store, cat)
		require.True(t, slices.EqualFunc(m.Lines(), reopened.Lines(), lineEqual), "run %d: reload differs", run)
	}
}

func TestReload_PicksUpOtherWriter(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cat := defaultCatalog(t)

	tabA := Open(ctx, store, cat)
	tabB := Open(ctx, store, cat)

	_, err := tabB.AddItem(ctx, 7, DefaultQuantity)
	require.NoError(t, err)
	assert.True(t, tabA.IsEmpty(), "no push between holders")

	assert.True(t, tabA.Reload(ctx))
	assert.Len(t, tabA.Lines(), 1)
	assert.False(t, tabA.Reload(ctx), "second reload sees no change")
}

func TestLastWriterWins(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cat := defaultCatalog(t)

	tabA := Open(ctx, store, cat)
	tabB := Open(ctx, store, cat)

	_, _ = tabA.AddItem(ctx, 1, DefaultQuantity)
	_, _ = tabB.AddItem(ctx, 3, DefaultQuantity)

	final := Open(ctx, store, cat)
	require.Len(t, final.Lines(), 1)
	assert.Equal(t, 3, final.Lines()[0].ItemID)
}
