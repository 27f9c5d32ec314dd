package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/fish-storefront/internal/domain/checkout"
	"github.com/xenking/fish-storefront/internal/domain/forms"
	"github.com/xenking/fish-storefront/internal/storage"
)

// beginCheckout snapshots the cart. The client moves to the checkout page
// on success.
func (h *Handler) beginCheckout(w http.ResponseWriter, r *http.Request) {
	s := h.openSession(w, r)
	snap, err := h.checkout.Begin(r.Context(), s.checkout())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { h.encodeSnapshot(e, snap, nil) })
}

// getCheckout renders the checkout page: the pending snapshot and the
// details remembered from the last order.
func (h *Handler) getCheckout(w http.ResponseWriter, r *http.Request) {
	s := h.openSession(w, r)
	snap, err := h.checkout.Load(r.Context(), s.store)
	if err != nil {
		fail(w, r, err)
		return
	}
	var info *forms.CustomerInfo
	if c, ok := checkout.CustomerInfo(r.Context(), s.store); ok {
		info = &c
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeSnapshot(e, snap, info) })
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	s := h.openSession(w, r)
	form, err := decodeCheckoutForm(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	receipt, err := h.checkout.PlaceOrder(r.Context(), s.checkout(), form)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSent(e, receipt.Message, receipt.Link, receipt.Redirect)
	})
}

func (h *Handler) getCheckoutDraft(w http.ResponseWriter, r *http.Request) {
	s := h.openSession(w, r)
	draft, ok := forms.LoadDraft[forms.CheckoutForm](r.Context(), s.store, storage.KeyCheckoutForm)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCheckoutForm(e, draft) })
}

// putCheckoutDraft stores the form as typed so far. Drafts are not
// validated.
func (h *Handler) putCheckoutDraft(w http.ResponseWriter, r *http.Request) {
	s := h.openSession(w, r)
	form, err := decodeCheckoutForm(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := forms.SaveDraft(r.Context(), s.store, storage.KeyCheckoutForm, form); err != nil {
		fail(w, r, errors.Wrap(err, "save checkout draft"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) customerInfo(w http.ResponseWriter, r *http.Request) {
	s := h.openSession(w, r)
	info, ok := checkout.CustomerInfo(r.Context(), s.store)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCustomerInfo(e, info) })
}

func decodeCheckoutForm(w http.ResponseWriter, r *http.Request) (forms.CheckoutForm, error) {
	var f forms.CheckoutForm
	err := decodeObject(w, r, stringFields(map[string]*string{
		"name":         &f.Name,
		"phone":        &f.Phone,
		"address":      &f.Address,
		"deliveryTime": &f.DeliveryTime,
		"instructions": &f.Instructions,
	}))
	return f, err
}

// stringFields decodes the named string fields into their targets. Other
// fields are skipped, and null leaves a target empty.
func stringFields(targets map[string]*string) func(d *jx.Decoder, key string) error {
	return func(d *jx.Decoder, key string) error {
		dst, ok := targets[key]
		if !ok {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		v, err := d.Str()
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		*dst = v
		return nil
	}
}
