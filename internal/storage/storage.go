// Package storage defines the durable key/value contract backing a shopper
// session, along with the fixed key layout every page controller shares.
package storage

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned by Store.Get when no value exists for the key.
var ErrNotFound = errors.New("storage: key not found")

// Keys of the session storage layout. Values are JSON text.
const (
	KeyCart          = "cart"
	KeyCheckout      = "checkoutData"
	KeyCustomerInfo  = "customerInfo"
	KeyCheckoutForm  = "checkoutFormData"
	KeyContactForm   = "contactFormData"
	KeySavedForLater = "savedForLater"
)

// Store is a durable string-keyed blob store. Implementations must be safe
// for concurrent use; there is no cross-key transaction and the last Set
// for a key wins.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Pinger is implemented by backends that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Scoped returns a Store that prefixes every key with prefix and session,
// giving each session its own namespace inside a shared backend.
func Scoped(s Store, prefix, session string) Store {
	return &scoped{store: s, prefix: buildKey(prefix, session)}
}

type scoped struct {
	store  Store
	prefix string
}

func (s *scoped) Get(ctx context.Context, key string) ([]byte, error) {
	return s.store.Get(ctx, s.key(key))
}

func (s *scoped) Set(ctx context.Context, key string, value []byte) error {
	return s.store.Set(ctx, s.key(key), value)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.store.Delete(ctx, s.key(key))
}

func (s *scoped) key(k string) string {
	return buildKey(s.prefix, k)
}

func buildKey(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		clean = append(clean, part)
	}
	return strings.Join(clean, ":")
}
