package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/fish-storefront/internal/domain/cart"
	"github.com/xenking/fish-storefront/internal/domain/catalog"
)

func (h *Handler) replyCart(w http.ResponseWriter, status int, m *cart.Manager) {
	writeJSON(w, status, func(e *jx.Encoder) { h.encodeCart(e, m) })
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	s := h.openSession(w, r)
	h.replyCart(w, http.StatusOK, s.cart)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	s := h.openSession(w, r)
	if !s.cart.IsEmpty() {
		if err := s.cart.Clear(r.Context()); err != nil {
			fail(w, r, err)
			return
		}
	}
	h.replyCart(w, http.StatusOK, s.cart)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	s := h.openSession(w, r)
	var (
		id  int
		qty = cart.DefaultQuantity
	)
	if err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			id, err = d.Int()
		case "quantity":
			qty, err = catalog.DecodeDecimal(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	}); err != nil {
		fail(w, r, err)
		return
	}

	ok, err := s.cart.AddItem(r.Context(), id, qty)
	if err != nil {
		fail(w, r, err)
		return
	}
	if !ok {
		fail(w, r, errUnknownItem)
		return
	}
	h.replyCart(w, http.StatusOK, s.cart)
}

// updateItem overwrites a line quantity. Zero or less removes the line.
func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	s := h.openSession(w, r)
	id, err := itemID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	qty, err := decodeQuantity(w, r, decimal.Zero)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := s.cart.UpdateQuantity(r.Context(), id, qty); err != nil {
		fail(w, r, err)
		return
	}
	h.replyCart(w, http.StatusOK, s.cart)
}

// setItemFromInput applies the raw text of the quantity box.
func (h *Handler) setItemFromInput(w http.ResponseWriter, r *http.Request) {
	s := h.openSession(w, r)
	id, err := itemID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var raw string
	if err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		if key != "value" {
			return d.Skip()
		}
		// The box may be posted as a number or as its text.
		switch d.Next() {
		case jx.Number:
			n, err := d.Num()
			raw = n.String()
			return err
		default:
			v, err := d.Str()
			raw = v
			return err
		}
	}); err != nil {
		fail(w, r, err)
		return
	}

	if err := cart.SetFromInput(r.Context(), s.cart, id, raw); err != nil {
		fail(w, r, err)
		return
	}
	h.replyCart(w, http.StatusOK, s.cart)
}

func (h *Handler) increaseItem(w http.ResponseWriter, r *http.Request) {
	h.stepItem(w, r, cart.Increase)
}

func (h *Handler) decreaseItem(w http.ResponseWriter, r *http.Request) {
	h.stepItem(w, r, cart.Decrease)
}

func (h *Handler) stepItem(w http.ResponseWriter, r *http.Request, step func(context.Context, *cart.Manager, int) (bool, error)) {
	s := h.openSession(w, r)
	id, err := itemID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok, err := step(r.Context(), s.cart, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	if !ok {
		fail(w, r, errUnknownItem)
		return
	}
	h.replyCart(w, http.StatusOK, s.cart)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	s := h.openSession(w, r)
	id, err := itemID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := s.cart.RemoveItem(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	h.replyCart(w, http.StatusOK, s.cart)
}

func (h *Handler) saveForLater(w http.ResponseWriter, r *http.Request) {
	s := h.openSession(w, r)
	saved, err := cart.SaveForLater(r.Context(), s.cart)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("saved")
		e.Bool(saved)
		e.FieldStart("cart")
		h.encodeCart(e, s.cart)
		e.ObjEnd()
	})
}

func (h *Handler) restoreSaved(w http.ResponseWriter, r *http.Request) {
	s := h.openSession(w, r)
	n, err := cart.RestoreSaved(r.Context(), s.cart)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("restored")
		e.Int(n)
		e.FieldStart("cart")
		h.encodeCart(e, s.cart)
		e.ObjEnd()
	})
}
