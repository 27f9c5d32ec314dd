package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/fish-storefront/internal/domain/cart"
	"github.com/xenking/fish-storefront/internal/domain/catalog"
	"github.com/xenking/fish-storefront/internal/messaging"
)

func (h *Handler) listCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items := catalog.Filter(h.catalog.Sorted(catalog.SortOrder(q.Get("sort"))), q.Get("q"))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeItems(e, items) })
}

func (h *Handler) featured(w http.ResponseWriter, _ *http.Request) {
	items := h.catalog.Featured()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeItems(e, items) })
}

func (h *Handler) lookupItem(r *http.Request) (catalog.Item, error) {
	id, err := itemID(r)
	if err != nil {
		return catalog.Item{}, err
	}
	it, ok := h.catalog.Get(id)
	if !ok {
		return catalog.Item{}, errUnknownItem
	}
	return it, nil
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	it, err := h.lookupItem(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeItem(e, it) })
}

// buyNow builds the single-item purchase message. The cart is not touched.
func (h *Handler) buyNow(w http.ResponseWriter, r *http.Request) {
	it, err := h.lookupItem(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	qty, err := decodeQuantity(w, r, cart.DefaultQuantity)
	if err != nil {
		fail(w, r, err)
		return
	}
	if !qty.IsPositive() {
		fail(w, r, cart.ErrInvalidQuantity)
		return
	}

	msg := messaging.BuyNowMessage(it, qty)
	link, err := h.bridge.Send(r.Context(), msg)
	if err != nil {
		fail(w, r, errors.Wrap(err, "buy now"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSent(e, msg, link, "") })
}

// decodeQuantity reads {"quantity": n} where n may be a number or a numeric
// string. A missing field yields def.
func decodeQuantity(w http.ResponseWriter, r *http.Request, def decimal.Decimal) (decimal.Decimal, error) {
	qty := def
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		v, err := catalog.DecodeDecimal(d)
		if err != nil {
			return errors.Wrap(err, "quantity")
		}
		qty = v
		return nil
	})
	return qty, err
}
