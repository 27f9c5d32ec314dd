package forms

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"

	"github.com/xenking/fish-storefront/internal/storage"
)

// SaveDraft stores v under key as JSON.
func SaveDraft[T any](ctx context.Context, store storage.Store, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal draft")
	}
	if err := store.Set(ctx, key, data); err != nil {
		return errors.Wrapf(err, "save draft %q", key)
	}
	return nil
}

// LoadDraft reads a draft saved by SaveDraft. A missing or malformed draft
// reports false; drafts are a convenience and never fail the caller.
func LoadDraft[T any](ctx context.Context, store storage.Store, key string) (T, bool) {
	var v T
	data, err := store.Get(ctx, key)
	if err != nil {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return zero, false
	}
	return v, true
}
