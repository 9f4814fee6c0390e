package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smartdot/storefront-backend/pkg/logger"
)

const (
	DefaultCartSessionHeader = "X-Cart-Session"
	DefaultCartSessionCookie = "smartdot_cart_session"
)

// CartSessionOptions controls where the cart session id travels.
type CartSessionOptions struct {
	Header       string
	Cookie       string
	CookieMaxAge time.Duration
	Secure       bool
}

// CartSession resolves the guest cart session from the configured header or
// cookie, issuing a fresh UUID when neither carries a valid one. The resolved
// id is echoed on the response so clients without cookies can keep it.
func CartSession(opts CartSessionOptions, logg *logger.Logger) func(http.Handler) http.Handler {
	if opts.Header == "" {
		opts.Header = DefaultCartSessionHeader
	}
	if opts.Cookie == "" {
		opts.Cookie = DefaultCartSessionCookie
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, fromCookie := readCartSession(r, opts)
			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			if !fromCookie {
				cookie := &http.Cookie{
					Name:     opts.Cookie,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				}
				if opts.CookieMaxAge > 0 {
					cookie.MaxAge = int(opts.CookieMaxAge.Seconds())
				}
				http.SetCookie(w, cookie)
			}
			w.Header().Set(opts.Header, sessionID)

			ctx := WithCartSession(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithCartSession(ctx, sessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func readCartSession(r *http.Request, opts CartSessionOptions) (string, bool) {
	if id := normalizeSessionID(r.Header.Get(opts.Header)); id != "" {
		return id, false
	}
	if cookie, err := r.Cookie(opts.Cookie); err == nil {
		if id := normalizeSessionID(cookie.Value); id != "" {
			return id, true
		}
	}
	return "", false
}

func normalizeSessionID(raw string) string {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return ""
	}
	return id.String()
}
