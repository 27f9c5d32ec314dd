// Package messaging renders order and contact summaries and hands them to an
// external chat application through a deep link.
package messaging

import (
	"context"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Defaults for the chat deep link.
const (
	DefaultHost      = "wa.me"
	DefaultRecipient = "9629864883"
)

// Opener delivers a deep link to the shopper, e.g. by redirecting the
// browser. The bridge never reads a response back.
type Opener interface {
	Open(ctx context.Context, link string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, link string) error

// Open implements Opener.
func (f OpenerFunc) Open(ctx context.Context, link string) error { return f(ctx, link) }

// Bridge builds deep links of the form https://<host>/<recipient>?text=<msg>.
type Bridge struct {
	host      string
	recipient string
	opener    Opener
}

// NewBridge returns a Bridge. Empty host or recipient fall back to the
// defaults; opener may be nil.
func NewBridge(host, recipient string, opener Opener) *Bridge {
	if host == "" {
		host = DefaultHost
	}
	if recipient == "" {
		recipient = DefaultRecipient
	}
	return &Bridge{host: host, recipient: recipient, opener: opener}
}

// Link returns the deep link for text without sending it.
func (b *Bridge) Link(text string) string {
	return "https://" + b.host + "/" + b.recipient + "?text=" + EncodeComponent(text)
}

// Send builds the deep link for text and passes it to the opener, if any.
// The link is returned so callers can hand it to a client themselves.
func (b *Bridge) Send(ctx context.Context, text string) (string, error) {
	link := b.Link(text)
	zctx.From(ctx).Debug("Messaging handoff",
		zap.String("recipient", b.recipient),
		zap.Int("length", len(text)),
	)
	if b.opener == nil {
		return link, nil
	}
	if err := b.opener.Open(ctx, link); err != nil {
		return "", errors.Wrap(err, "open deep link")
	}
	return link, nil
}

// EncodeComponent percent-encodes s so that only A-Z a-z 0-9 and
// -_.!~*'() are left as is.
func EncodeComponent(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	return componentUnescaper.Replace(escaped)
}

// url.QueryEscape escapes these, encodeURIComponent does not.
var componentUnescaper = strings.NewReplacer(
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)
