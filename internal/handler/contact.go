package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/fish-storefront/internal/domain/contact"
	"github.com/xenking/fish-storefront/internal/domain/forms"
)

func (h *Handler) submitContact(w http.ResponseWriter, r *http.Request) {
	s := h.openSession(w, r)
	form, err := decodeContactForm(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	receipt, err := h.contact.Submit(r.Context(), s.store, form)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSent(e, receipt.Message, receipt.Link, "") })
}

func (h *Handler) getContactDraft(w http.ResponseWriter, r *http.Request) {
	s := h.openSession(w, r)
	draft, ok := contact.LoadDraft(r.Context(), s.store)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeContactForm(e, draft) })
}

func (h *Handler) putContactDraft(w http.ResponseWriter, r *http.Request) {
	s := h.openSession(w, r)
	form, err := decodeContactForm(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := contact.SaveDraft(r.Context(), s.store, form); err != nil {
		fail(w, r, errors.Wrap(err, "save contact draft"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) storeStatus(w http.ResponseWriter, _ *http.Request) {
	status := h.hours.Status(h.now())
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeStatus(e, status) })
}

func decodeContactForm(w http.ResponseWriter, r *http.Request) (forms.ContactForm, error) {
	var f forms.ContactForm
	err := decodeObject(w, r, stringFields(map[string]*string{
		"name":    &f.Name,
		"phone":   &f.Phone,
		"email":   &f.Email,
		"subject": &f.Subject,
		"message": &f.Message,
	}))
	return f, err
}
