package ui

import (
	"context"
	"net/http"

	"github.com/me/rtodash/internal/guard"
)

// Guard protects a route group with the rule for kind. The first request of
// a client triggers the start-up verification; if it has not finished
// within the verify wait, a loading page is served instead of the route.
func (ui *UI) Guard(kind guard.Kind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a := AppFromContext(r.Context())
			if a == nil {
				http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), ui.verifyWait)
			snap := a.Auth.Init(ctx, r.URL.Path)
			cancel()

			d := guard.Decide(kind, snap, ui.routes, r.URL.RequestURI())
			switch d.Outcome {
			case guard.Loading:
				ui.renderLoading(w, r)
			case guard.Redirect:
				http.Redirect(w, r, d.Target, http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
