// Package checkout implements the checkout snapshot lifecycle and order
// submission.
//
// A snapshot is absent until the shopper proceeds with a non-empty cart,
// pending until an order is placed or it outlives its TTL, and is deleted
// in both cases.
package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/fish-storefront/internal/domain/cart"
	"github.com/xenking/fish-storefront/internal/domain/forms"
	"github.com/xenking/fish-storefront/internal/messaging"
	"github.com/xenking/fish-storefront/internal/storage"
)

var (
	// ErrEmptyCart is returned when proceeding to checkout with nothing in
	// the cart. No snapshot is created.
	ErrEmptyCart = errors.New("your cart is empty")
	// ErrNoSnapshot is returned when there is no usable snapshot: it was
	// never created, has expired, or cannot be read. The shopper belongs
	// back on the cart view.
	ErrNoSnapshot = errors.New("no items to checkout")
)

// DefaultTTL is how long a snapshot stays usable.
const DefaultTTL = 24 * time.Hour

// View names a page the shopper is sent to.
type View string

// Named transitions.
const (
	ViewCart View = "cart"
	ViewShop View = "shop"
)

// Session is one shopper's storage namespace and cart.
type Session struct {
	Store storage.Store
	Cart  *cart.Manager
}

// Receipt describes a placed order.
type Receipt struct {
	Message  string
	Link     string
	Redirect View
}

// Service runs checkout for any session.
type Service struct {
	bridge *messaging.Bridge
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a Service that hands orders to bridge.
func NewService(bridge *messaging.Bridge, opts ...Option) *Service {
	s := &Service{bridge: bridge, ttl: DefaultTTL, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Begin captures the cart into a new snapshot, replacing any previous one.
func (s *Service) Begin(ctx context.Context, sess Session) (Snapshot, error) {
	lines := sess.Cart.Lines()
	if len(lines) == 0 {
		return Snapshot{}, ErrEmptyCart
	}
	total, items := cart.Totals(lines)
	snap := Snapshot{
		Lines:       lines,
		Total:       total,
		TotalItems:  items,
		TotalWeight: items,
		CreatedAt:   s.now(),
	}
	if err := sess.Store.Set(ctx, storage.KeyCheckout, snap.Marshal()); err != nil {
		return Snapshot{}, errors.Wrap(err, "save snapshot")
	}
	return snap, nil
}

// Load returns the pending snapshot. Expired and malformed snapshots are
// deleted and reported as ErrNoSnapshot, the same as a missing one.
func (s *Service) Load(ctx context.Context, store storage.Store) (Snapshot, error) {
	lg := zctx.From(ctx)

	data, err := store.Get(ctx, storage.KeyCheckout)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Snapshot{}, ErrNoSnapshot
		}
		return Snapshot{}, errors.Wrap(err, "load snapshot")
	}

	snap, err := Unmarshal(data)
	switch {
	case err != nil:
		lg.Debug("Discarding malformed snapshot", zap.Error(err))
	case snap.Expired(s.now(), s.ttl):
		lg.Debug("Discarding expired snapshot", zap.Time("created_at", snap.CreatedAt))
	case len(snap.Lines) == 0:
		return Snapshot{}, ErrNoSnapshot
	default:
		return snap, nil
	}

	if err := store.Delete(ctx, storage.KeyCheckout); err != nil {
		lg.Warn("Delete stale snapshot", zap.Error(err))
	}
	return Snapshot{}, ErrNoSnapshot
}

// PlaceOrder validates the form, hands the order message to the bridge and
// then clears the cart, the snapshot and the form draft. Nothing is sent or
// cleared when validation fails.
func (s *Service) PlaceOrder(ctx context.Context, sess Session, form forms.CheckoutForm) (Receipt, error) {
	snap, err := s.Load(ctx, sess.Store)
	if err != nil {
		return Receipt{}, err
	}

	form = form.Normalize()
	if err := forms.Validate(form); err != nil {
		return Receipt{}, err
	}

	if err := forms.SaveDraft(ctx, sess.Store, storage.KeyCustomerInfo, form.CustomerInfo()); err != nil {
		return Receipt{}, errors.Wrap(err, "save customer info")
	}

	msg := messaging.OrderMessage(messaging.Order{
		Customer:    form,
		Lines:       snap.Lines,
		Total:       snap.Total,
		TotalItems:  snap.TotalItems,
		TotalWeight: snap.TotalWeight,
	})
	link, err := s.bridge.Send(ctx, msg)
	if err != nil {
		return Receipt{}, errors.Wrap(err, "send order")
	}

	if err := sess.Cart.Clear(ctx); err != nil {
		return Receipt{}, errors.Wrap(err, "clear cart")
	}
	for _, key := range []string{storage.KeyCheckout, storage.KeyCheckoutForm} {
		if err := sess.Store.Delete(ctx, key); err != nil {
			return Receipt{}, errors.Wrapf(err, "delete %s", key)
		}
	}

	zctx.From(ctx).Info("Order placed",
		zap.Int("lines", len(snap.Lines)),
		zap.String("total", snap.Total.String()),
	)
	return Receipt{Message: msg, Link: link, Redirect: ViewShop}, nil
}

// CustomerInfo returns the details remembered from the last order.
func CustomerInfo(ctx context.Context, store storage.Store) (forms.CustomerInfo, bool) {
	return forms.LoadDraft[forms.CustomerInfo](ctx, store, storage.KeyCustomerInfo)
}
