package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/fish-storefront/internal/domain/cart"
	"github.com/xenking/fish-storefront/internal/view"
)

// streamCart is the open cart view. It re-reads the session cart every
// poll interval, and right away after a write through this process, and
// pushes a "cart" event whenever the cart differs from the last one sent.
// The first event is sent on connect.
func (h *Handler) streamCart(w http.ResponseWriter, r *http.Request) {
	// No surfaces: reloads are not writes and must not wake other streams.
	id, store := h.scope(r)
	m := cart.Open(r.Context(), store, h.catalog)
	rc := http.NewResponseController(w)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	lg := zctx.From(ctx)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set(HeaderCartCount, m.TotalItems().String())
	w.WriteHeader(http.StatusOK)

	first := true
	poller := view.NewPoller(h.cfg.PollInterval, func(ctx context.Context) {
		if changed := m.Reload(ctx); !changed && !first {
			return
		}
		first = false

		var e jx.Encoder
		h.encodeCart(&e, m)
		if err := writeEvent(w, "cart", e.Bytes()); err != nil {
			lg.Debug("Cart stream closed", zap.Error(err))
			cancel()
			return
		}
		if err := rc.Flush(); err != nil {
			lg.Debug("Cart stream flush", zap.Error(err))
			cancel()
		}
	})

	unwatch := h.hub.Watch(id, poller)
	defer unwatch()
	poller.Run(ctx)
}

func writeEvent(w http.ResponseWriter, event string, data []byte) error {
	buf := make([]byte, 0, len(event)+len(data)+16)
	buf = append(buf, "event: "...)
	buf = append(buf, event...)
	buf = append(buf, "\ndata: "...)
	buf = append(buf, data...)
	buf = append(buf, "\n\n"...)
	_, err := w.Write(buf)
	return err
}
