// Package handler serves the storefront pages as a JSON API.
//
// Every request works on the shopper's own storage namespace, selected by
// the session cookie, and opens a fresh cart.Manager over it. The manager is
// the only thing that writes the cart.
package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/fish-storefront/internal/domain/cart"
	"github.com/xenking/fish-storefront/internal/domain/catalog"
	"github.com/xenking/fish-storefront/internal/domain/checkout"
	"github.com/xenking/fish-storefront/internal/domain/contact"
	"github.com/xenking/fish-storefront/internal/messaging"
	"github.com/xenking/fish-storefront/internal/storage"
	"github.com/xenking/fish-storefront/internal/storefront"
	"github.com/xenking/fish-storefront/internal/view"
	"github.com/xenking/fish-storefront/pkg/httpmiddleware"
)

// HeaderCartCount carries the cart item count on every API response.
const HeaderCartCount = "X-Cart-Count"

// Config holds non-dependency settings.
type Config struct {
	// ImageBaseURL is prepended to relative image paths. Empty keeps them
	// as stored.
	ImageBaseURL string
	// KeyPrefix namespaces all session keys in the store.
	KeyPrefix string
	// PollInterval is how often an open cart stream re-reads storage.
	PollInterval time.Duration
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Store    storage.Store
	Catalog  *catalog.Catalog
	Checkout *checkout.Service
	Contact  *contact.Service
	Bridge   *messaging.Bridge
	Hours    *storefront.Hours
	Hub      *view.Hub
	Meter    metric.MeterProvider
	Now      func() time.Time
}

// Handler implements the storefront API.
type Handler struct {
	cfg      Config
	store    storage.Store
	catalog  *catalog.Catalog
	checkout *checkout.Service
	contact  *contact.Service
	bridge   *messaging.Bridge
	hours    *storefront.Hours
	hub      *view.Hub
	now      func() time.Time

	mutations metric.Int64Counter
}

// New returns a Handler. Optional dependencies (Hub, Meter, Now) get
// defaults.
func New(cfg Config, deps Deps) (*Handler, error) {
	if deps.Hub == nil {
		deps.Hub = view.NewHub()
	}
	if deps.Meter == nil {
		deps.Meter = noop.NewMeterProvider()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "fish"
	}

	mutations, err := deps.Meter.Meter("github.com/xenking/fish-storefront/internal/handler").
		Int64Counter("storefront.cart.mutations",
			metric.WithDescription("Cart writes made through the API"),
		)
	if err != nil {
		return nil, errors.Wrap(err, "create cart mutation counter")
	}

	return &Handler{
		cfg:       cfg,
		store:     deps.Store,
		catalog:   deps.Catalog,
		checkout:  deps.Checkout,
		contact:   deps.Contact,
		bridge:    deps.Bridge,
		hours:     deps.Hours,
		hub:       deps.Hub,
		now:       deps.Now,
		mutations: mutations,
	}, nil
}

// Routes returns the API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Use(h.publishCount)
			r.Get("/", h.listCatalog)
			r.Get("/featured", h.featured)
			r.Get("/{id}", h.getItem)
			r.Post("/{id}/buy-now", h.buyNow)
		})
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.getCart)
			r.Delete("/", h.clearCart)
			r.Get("/stream", h.streamCart)
			r.Post("/save-for-later", h.saveForLater)
			r.Post("/restore-saved", h.restoreSaved)
			r.Post("/items", h.addItem)
			r.Put("/items/{id}", h.updateItem)
			r.Delete("/items/{id}", h.removeItem)
			r.Post("/items/{id}/input", h.setItemFromInput)
			r.Post("/items/{id}/increase", h.increaseItem)
			r.Post("/items/{id}/decrease", h.decreaseItem)
		})
		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", h.getCheckout)
			r.Post("/", h.beginCheckout)
			r.Post("/order", h.placeOrder)
			r.Get("/draft", h.getCheckoutDraft)
			r.Put("/draft", h.putCheckoutDraft)
		})
		r.Get("/customer-info", h.customerInfo)
		r.Route("/contact", func(r chi.Router) {
			r.Post("/", h.submitContact)
			r.Get("/draft", h.getContactDraft)
			r.Put("/draft", h.putContactDraft)
		})
		r.With(h.publishCount).Get("/store/status", h.storeStatus)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// session is one request's view of the shopper.
type session struct {
	id    string
	store storage.Store
	cart  *cart.Manager
}

func (s session) checkout() checkout.Session {
	return checkout.Session{Store: s.store, Cart: s.cart}
}

// openSession scopes storage to the request's session and rehydrates the
// cart. The cart count is published to the response header, and every
// later write is counted and wakes the session's open streams.
func (h *Handler) openSession(w http.ResponseWriter, r *http.Request) session {
	ctx := r.Context()
	id, store := h.scope(r)

	header := cart.CountSurfaceFunc(func(count decimal.Decimal) {
		w.Header().Set(HeaderCartCount, count.String())
	})
	m := cart.Open(ctx, store, h.catalog, cart.WithSurfaces(header, h.changeSurface(ctx, id)))
	return session{id: id, store: store, cart: m}
}

// publishCount sets the cart count header for routes that only read the
// catalog or the shop itself.
func (h *Handler) publishCount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.openSession(w, r)
		next.ServeHTTP(w, r)
	})
}

// scope returns the request's session id and its storage namespace.
func (h *Handler) scope(r *http.Request) (string, storage.Store) {
	id := httpmiddleware.SessionFromContext(r.Context())
	return id, storage.Scoped(h.store, h.cfg.KeyPrefix, id)
}

// changeSurface skips the publish made while opening the cart and reacts to
// every one after it, each of which follows a successful save.
func (h *Handler) changeSurface(ctx context.Context, id string) cart.CountSurface {
	opened := false
	return cart.CountSurfaceFunc(func(decimal.Decimal) {
		if !opened {
			opened = true
			return
		}
		h.mutations.Add(ctx, 1)
		h.hub.Notify(id)
	})
}

func (h *Handler) imageURL(ref string) string {
	if h.cfg.ImageBaseURL == "" || ref == "" || isAbsoluteURL(ref) {
		return ref
	}
	return strings.TrimRight(h.cfg.ImageBaseURL, "/") + "/" + strings.TrimLeft(ref, "/")
}

func isAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "//")
}
