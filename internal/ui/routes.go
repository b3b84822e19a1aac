package ui

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/me/rtodash/internal/guard"
)

// RegisterRoutes registers all UI routes on the given router.
func (ui *UI) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(ui.ClientMiddleware)

		// Public-only routes.
		r.Group(func(r chi.Router) {
			r.Use(ui.Guard(guard.Public))
			r.Get("/login", ui.HandleLogin)
			r.Post("/login", ui.HandleLoginPost)
			r.Get("/register", ui.HandleRegister)
			r.Post("/register", ui.HandleRegisterPost)
		})

		// Protected routes.
		r.Group(func(r chi.Router) {
			r.Use(ui.Guard(guard.Authenticated))

			r.Get("/", ui.HandleDashboard)
			r.Get("/logout", ui.HandleLogout)
			r.Post("/theme", ui.HandleTheme)

			r.Route("/wallet", func(r chi.Router) {
				r.Get("/", ui.HandleWallet)
				r.Post("/refresh", ui.HandleWalletRefresh)
				r.Post("/confirm", ui.HandleWalletConfirm)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", ui.HandleNotifications)
				r.Post("/read-all", ui.HandleNotificationsReadAll)
				r.Post("/clear", ui.HandleNotificationsClear)
			})

			r.Get("/chat", ui.HandleChat)
			r.Post("/chat", ui.HandleChatPost)
		})

		// Admin routes.
		r.Group(func(r chi.Router) {
			r.Use(ui.Guard(guard.Admin))
			r.Get("/admin", ui.HandleAdmin)
		})
	})
}

// StaticHandler serves the embedded stylesheet and scripts under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}
