package checkout

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/fish-storefront/internal/domain/cart"
	"github.com/xenking/fish-storefront/internal/domain/catalog"
	"github.com/xenking/fish-storefront/internal/domain/forms"
	"github.com/xenking/fish-storefront/internal/messaging"
	"github.com/xenking/fish-storefront/internal/storage"
	"github.com/xenking/fish-storefront/internal/storage/memory"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type recordingOpener struct {
	links []string
	err   error
}

func (o *recordingOpener) Open(_ context.Context, link string) error {
	if o.err != nil {
		return o.err
	}
	o.links = append(o.links, link)
	return nil
}

type fixture struct {
	store  *memory.Store
	sess   Session
	svc    *Service
	clock  *clock
	opener *recordingOpener
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.New([]catalog.Item{
		{ID: 3, Name: "Vanjaram", UnitPrice: decimal.NewFromInt(500)},
		{ID: 7, Name: "Sankara", UnitPrice: decimal.NewFromInt(450)},
	})
	require.NoError(t, err)

	store := memory.New()
	c := &clock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	opener := &recordingOpener{}
	return &fixture{
		store:  store,
		sess:   Session{Store: store, Cart: cart.Open(context.Background(), store, cat)},
		svc:    NewService(messaging.NewBridge("wa.me", "123", opener), WithClock(c.now)),
		clock:  c,
		opener: opener,
	}
}

func (f *fixture) add(t *testing.T, id int, qty string) {
	t.Helper()
	ok, err := f.sess.Cart.AddItem(context.Background(), id, decimal.RequireFromString(qty))
	require.NoError(t, err)
	require.True(t, ok)
}

func validForm() forms.CheckoutForm {
	return forms.CheckoutForm{
		Name:         "Priya",
		Phone:        "9876543210",
		Address:      "12 Beach Road",
		DeliveryTime: forms.DeliveryEvening,
	}
}

func TestBegin_EmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Begin(context.Background(), f.sess)
	require.ErrorIs(t, err, ErrEmptyCart)

	_, err = f.store.Get(context.Background(), storage.KeyCheckout)
	require.ErrorIs(t, err, storage.ErrNotFound, "no snapshot created")
}

func TestBeginLoad(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, 3, "2")
	f.add(t, 7, "0.5")

	snap, err := f.svc.Begin(ctx, f.sess)
	require.NoError(t, err)
	assert.True(t, snap.Total.Equal(decimal.NewFromInt(1225)))
	assert.True(t, snap.TotalItems.Equal(decimal.RequireFromString("2.5")))
	assert.True(t, snap.TotalWeight.Equal(snap.TotalItems))

	// Later cart edits do not leak into the snapshot.
	require.NoError(t, f.sess.Cart.Clear(ctx))

	loaded, err := f.svc.Load(ctx, f.store)
	require.NoError(t, err)
	require.Len(t, loaded.Lines, 2)
	assert.Equal(t, 3, loaded.Lines[0].ItemID)
	assert.True(t, loaded.Total.Equal(snap.Total))
	assert.Equal(t, snap.CreatedAt.UnixMilli(), loaded.CreatedAt.UnixMilli())
}

func TestLoad_Expiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, 3, "1")
	_, err := f.svc.Begin(ctx, f.sess)
	require.NoError(t, err)

	f.clock.advance(24 * time.Hour)
	_, err = f.svc.Load(ctx, f.store)
	require.NoError(t, err, "exactly 24h is still valid")

	f.clock.advance(time.Millisecond)
	_, err = f.svc.Load(ctx, f.store)
	require.ErrorIs(t, err, ErrNoSnapshot)

	_, err = f.store.Get(ctx, storage.KeyCheckout)
	require.ErrorIs(t, err, storage.ErrNotFound, "expired snapshot is deleted")
}

func TestLoad_CustomTTL(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.svc = NewService(messaging.NewBridge("", "", nil), WithClock(f.clock.now), WithTTL(time.Hour))
	f.add(t, 3, "1")
	_, err := f.svc.Begin(ctx, f.sess)
	require.NoError(t, err)

	f.clock.advance(2 * time.Hour)
	_, err = f.svc.Load(ctx, f.store)
	require.ErrorIs(t, err, ErrNoSnapshot)
}

func TestLoad_Absent(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Load(context.Background(), f.store)
	require.ErrorIs(t, err, ErrNoSnapshot)
}

func TestLoad_Malformed(t *testing.T) {
	ctx := context.Background()
	for name, raw := range map[string]string{
		"garbage":      `{{`,
		"no timestamp": `{"items":[{"id":3,"quantity":1,"price":500}],"total":500}`,
		"empty items":  `{"items":[],"total":0,"timestamp":1709287200000}`,
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.store.Set(ctx, storage.KeyCheckout, []byte(raw)))

			_, err := f.svc.Load(ctx, f.store)
			require.ErrorIs(t, err, ErrNoSnapshot)
		})
	}
}

func TestPlaceOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, 3, "1.5")
	_, err := f.svc.Begin(ctx, f.sess)
	require.NoError(t, err)
	require.NoError(t, forms.SaveDraft(ctx, f.store, storage.KeyCheckoutForm, forms.CheckoutForm{Name: "Pri"}))

	form := validForm()
	form.Name = "  Priya  "
	receipt, err := f.svc.PlaceOrder(ctx, f.sess, form)
	require.NoError(t, err)

	assert.Equal(t, ViewShop, receipt.Redirect)
	assert.Contains(t, receipt.Message, "Name: Priya\n")
	assert.Contains(t, receipt.Message, "Vanjaram - 1.5 kg (₹750)")
	assert.Contains(t, receipt.Message, "Preferred Delivery: Evening (4 PM - 8 PM)")
	require.Equal(t, []string{receipt.Link}, f.opener.links)

	u, err := url.Parse(receipt.Link)
	require.NoError(t, err)
	assert.Equal(t, "/123", u.Path)
	assert.Equal(t, receipt.Message, u.Query().Get("text"))

	assert.True(t, f.sess.Cart.IsEmpty())
	for _, key := range []string{storage.KeyCheckout, storage.KeyCheckoutForm} {
		_, err = f.store.Get(ctx, key)
		require.ErrorIs(t, err, storage.ErrNotFound, key)
	}

	info, ok := CustomerInfo(ctx, f.store)
	require.True(t, ok)
	assert.Equal(t, forms.CustomerInfo{Name: "Priya", Phone: "9876543210", Address: "12 Beach Road"}, info)

	_, err = f.svc.PlaceOrder(ctx, f.sess, validForm())
	require.ErrorIs(t, err, ErrNoSnapshot, "snapshot is consumed")
}

func TestPlaceOrder_ValidationLeavesStateAlone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, 7, "1")
	_, err := f.svc.Begin(ctx, f.sess)
	require.NoError(t, err)

	form := validForm()
	form.Phone = "12345"
	_, err = f.svc.PlaceOrder(ctx, f.sess, form)

	var ve *forms.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, forms.MsgPhone, ve.Message)

	assert.Empty(t, f.opener.links, "nothing sent")
	assert.False(t, f.sess.Cart.IsEmpty())
	_, err = f.svc.Load(ctx, f.store)
	require.NoError(t, err)
	_, ok := CustomerInfo(ctx, f.store)
	assert.False(t, ok)
}

func TestPlaceOrder_BridgeFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, 7, "1")
	_, err := f.svc.Begin(ctx, f.sess)
	require.NoError(t, err)

	f.opener.err = errors.New("blocked")
	_, err = f.svc.PlaceOrder(ctx, f.sess, validForm())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "blocked"))
	assert.False(t, f.sess.Cart.IsEmpty())
}

func TestSnapshotCodec(t *testing.T) {
	snap := Snapshot{
		Lines: []cart.Line{
			{ItemID: 3, Name: "Vanjaram", UnitPrice: decimal.NewFromInt(500), ImageRef: "images/3.jpg", Quantity: decimal.RequireFromString("0.3")},
		},
		Total:       decimal.NewFromInt(150),
		TotalItems:  decimal.RequireFromString("0.3"),
		TotalWeight: decimal.RequireFromString("0.3"),
		CreatedAt:   time.UnixMilli(1709287200123),
	}
	data := snap.Marshal()
	assert.JSONEq(t, `{
		"items":[{"id":3,"name":"Vanjaram","price":500,"image":"images/3.jpg","quantity":0.3}],
		"total":150,"totalItems":0.3,"totalWeight":0.3,"timestamp":1709287200123
	}`, string(data))

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(snap.CreatedAt))
	assert.True(t, got.Total.Equal(snap.Total))
	require.Len(t, got.Lines, 1)
	assert.True(t, got.Lines[0].Quantity.Equal(snap.Lines[0].Quantity))
}
