package httpmiddleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionConfig configures the session cookie.
type SessionConfig struct {
	// Cookie is the cookie name. Defaults to "fish_session".
	Cookie string
	// MaxAge is the cookie lifetime. Defaults to 30 days.
	MaxAge time.Duration
	// Secure marks the cookie HTTPS-only.
	Secure bool
}

type sessionKey struct{}

type sessionInfo struct {
	id     string
	issued bool
}

// SessionFromContext returns the session id set by Session, or "".
func SessionFromContext(ctx context.Context) string {
	info, _ := ctx.Value(sessionKey{}).(sessionInfo)
	return info.id
}

// SessionIssued reports whether the session was created by this request,
// i.e. the client did not present a valid cookie.
func SessionIssued(ctx context.Context) bool {
	info, _ := ctx.Value(sessionKey{}).(sessionInfo)
	return info.issued
}

// WithSession stores an established session id in ctx.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionInfo{id: id})
}

// Session gives every visitor a stable id, kept in a cookie. It plays the
// role of a browser profile: all persisted shopper state is keyed by it.
// Cookies that are not UUIDs are replaced.
func Session(cfg SessionConfig) Middleware {
	if cfg.Cookie == "" {
		cfg.Cookie = "fish_session"
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 30 * 24 * time.Hour
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(cfg.Cookie); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}
			issued := id == ""
			if issued {
				id = uuid.NewString()
			}
			// Refresh on every response so active sessions do not expire.
			http.SetCookie(w, &http.Cookie{
				Name:     cfg.Cookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(cfg.MaxAge.Seconds()),
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})

			ctx := context.WithValue(r.Context(), sessionKey{}, sessionInfo{id: id, issued: issued})
			ctx = zctx.With(ctx, zap.String("session", id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
