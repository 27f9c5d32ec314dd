package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/fish-storefront/internal/storage/memory"
)

func TestIncreaseDecrease(t *testing.T) {
	ctx := context.Background()
	m := Open(ctx, memory.New(), defaultCatalog(t))
	_, err := m.AddItem(ctx, 1, DefaultQuantity)
	require.NoError(t, err)

	ok, err := Increase(ctx, m, 1)
	require.NoError(t, err)
	require.True(t, ok)
	l, _ := m.Line(1)
	requireDecEqual(t, "1.5", l.Quantity)

	for range 5 {
		_, err = Decrease(ctx, m, 1)
		require.NoError(t, err)
	}
	l, ok = m.Line(1)
	require.True(t, ok, "decrease never removes the line")
	requireDecEqual(t, "0.5", l.Quantity)

	ok, err = Increase(ctx, m, 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetFromInput(t *testing.T) {
	ctx := context.Background()
	m := Open(ctx, memory.New(), defaultCatalog(t))
	_, _ = m.AddItem(ctx, 7, DefaultQuantity)

	require.NoError(t, SetFromInput(ctx, m, 7, " 2.3 "))
	l, _ := m.Line(7)
	requireDecEqual(t, "2.3", l.Quantity)

	for _, raw := range []string{"0", "-1", "", "abc"} {
		require.ErrorIs(t, SetFromInput(ctx, m, 7, raw), ErrInvalidQuantity, "input %q", raw)
	}
	l, _ = m.Line(7)
	requireDecEqual(t, "2.3", l.Quantity)
}

func TestSaveForLaterAndRestore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	m := Open(ctx, store, defaultCatalog(t))

	ok, err := SaveForLater(ctx, m)
	require.NoError(t, err)
	assert.False(t, ok, "nothing to save")

	_, _ = m.AddItem(ctx, 1, dec("2"))
	_, _ = m.AddItem(ctx, 3, dec("0.5"))

	ok, err = SaveForLater(ctx, m)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, m.IsEmpty())
	assert.True(t, HasSaved(ctx, m))

	_, _ = m.AddItem(ctx, 1, dec("1"))

	n, err := RestoreSaved(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, HasSaved(ctx, m))

	l, _ := m.Line(1)
	requireDecEqual(t, "3", l.Quantity)
	requireDecEqual(t, "850", m.Total())

	n, err = RestoreSaved(ctx, m)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRestoreSaved_SkipsDiscontinuedItems(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	m := Open(ctx, store, defaultCatalog(t))
	_, _ = m.AddItem(ctx, 7, dec("1"))
	_, _ = m.AddItem(ctx, 3, dec("1"))
	_, err := SaveForLater(ctx, m)
	require.NoError(t, err)

	reopened := Open(ctx, store, newTestCatalog(t, map[int]string{3: "520"}))
	n, err := RestoreSaved(ctx, reopened)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	requireDecEqual(t, "520", reopened.Total(), "restored lines take the current price")
}

func TestParseQuantity(t *testing.T) {
	q, err := ParseQuantity("0.1")
	require.NoError(t, err)
	requireDecEqual(t, "0.1", q)

	_, err = ParseQuantity("1e")
	require.ErrorIs(t, err, ErrInvalidQuantity)
}
