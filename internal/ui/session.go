package ui

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/me/rtodash/internal/app"
	"github.com/me/rtodash/internal/guard"
)

const (
	// ClientCookieName identifies the browser. It carries no credentials;
	// the auth token stays in server-side client storage.
	ClientCookieName = "rtodash_client"
	// ClientCookieDuration is the client cookie lifetime.
	ClientCookieDuration = 365 * 24 * time.Hour
)

type contextKey string

const appContextKey contextKey = "app"

// AppFromContext returns the client's App stored by ClientMiddleware.
func AppFromContext(ctx context.Context) *app.App {
	a, _ := ctx.Value(appContextKey).(*app.App)
	return a
}

// ClientMiddleware resolves the browser's App, issuing a client cookie on
// first visit, and attaches a navigation slot for the 401 hook.
func (ui *UI) ClientMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := clientIDFromRequest(r)
		if id == "" {
			id = uuid.NewString()
			SetClientCookie(w, id, ui.secure)
		}

		a, err := ui.apps.Get(r.Context(), id)
		if err != nil {
			ui.logger.Error("client lookup failed", "error", err)
			http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
			return
		}

		ctx, _ := guard.WithSlot(r.Context())
		ctx = context.WithValue(ctx, appContextKey, a)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIDFromRequest(r *http.Request) string {
	c, err := r.Cookie(ClientCookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

// SetClientCookie sets the client cookie on the response.
func SetClientCookie(w http.ResponseWriter, id string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     ClientCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(ClientCookieDuration),
	})
}
