// Package contact handles contact form submissions.
package contact

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/fish-storefront/internal/domain/forms"
	"github.com/xenking/fish-storefront/internal/messaging"
	"github.com/xenking/fish-storefront/internal/storage"
)

// Receipt describes a sent contact message.
type Receipt struct {
	Message string
	Link    string
}

// Service sends contact messages through a bridge.
type Service struct {
	bridge *messaging.Bridge
}

// NewService returns a Service.
func NewService(bridge *messaging.Bridge) *Service {
	return &Service{bridge: bridge}
}

// Submit validates the form, sends it and removes the saved draft.
func (s *Service) Submit(ctx context.Context, store storage.Store, form forms.ContactForm) (Receipt, error) {
	form = form.Normalize()
	if err := forms.Validate(form); err != nil {
		return Receipt{}, err
	}

	msg := messaging.ContactMessage(form)
	link, err := s.bridge.Send(ctx, msg)
	if err != nil {
		return Receipt{}, errors.Wrap(err, "send contact message")
	}

	if err := store.Delete(ctx, storage.KeyContactForm); err != nil {
		return Receipt{}, errors.Wrap(err, "delete contact draft")
	}

	zctx.From(ctx).Info("Contact message sent", zap.String("subject", messaging.SubjectText(form.Subject)))
	return Receipt{Message: msg, Link: link}, nil
}

// SaveDraft stores a partially filled form.
func SaveDraft(ctx context.Context, store storage.Store, form forms.ContactForm) error {
	return forms.SaveDraft(ctx, store, storage.KeyContactForm, form)
}

// LoadDraft returns the saved draft, if any.
func LoadDraft(ctx context.Context, store storage.Store) (forms.ContactForm, bool) {
	return forms.LoadDraft[forms.ContactForm](ctx, store, storage.KeyContactForm)
}
