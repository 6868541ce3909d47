package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/groenvelt/storefront-bff/pkg/logger"
)

const (
	cartSessionCookie = "sf_cart_session"
	cartSessionHeader = "X-Cart-Session"
)

// CartSession guarantees every request carries a cart session id. SPA
// clients send the header; plain browsers fall back to the cookie; a
// first visit gets a fresh id either way.
func CartSession(logg *logger.Logger, cookieTTL time.Duration, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.Header.Get(cartSessionHeader)
			if sessionID == "" {
				if cookie, err := r.Cookie(cartSessionCookie); err == nil {
					sessionID = cookie.Value
				}
			}
			if _, err := uuid.Parse(sessionID); err != nil {
				sessionID = uuid.NewString()
			}

			http.SetCookie(w, &http.Cookie{
				Name:     cartSessionCookie,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   int(cookieTTL.Seconds()),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
			w.Header().Set(cartSessionHeader, sessionID)

			ctx := WithCartSession(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithCartSession(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
