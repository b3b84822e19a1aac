package ui

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/me/rtodash/internal/app"
	"github.com/me/rtodash/internal/guard"
	"github.com/me/rtodash/pkg/model"
)

// UI handles the web user interface.
type UI struct {
	apps       *app.Manager
	logger     *slog.Logger
	routes     guard.Routes
	validate   *validator.Validate
	startTime  time.Time
	secure     bool          // Use secure cookies (HTTPS)
	verifyWait time.Duration // how long a request waits for start-up verification
}

// Config holds UI configuration.
type Config struct {
	Secure     bool // Use secure cookies for HTTPS
	Routes     guard.Routes
	VerifyWait time.Duration
}

// New creates a new UI handler.
func New(apps *app.Manager, logger *slog.Logger, cfg Config) *UI {
	if cfg.Routes == (guard.Routes{}) {
		cfg.Routes = guard.DefaultRoutes
	}
	if cfg.VerifyWait <= 0 {
		cfg.VerifyWait = 3 * time.Second
	}
	return &UI{
		apps:       apps,
		logger:     logger.With("component", "ui"),
		routes:     cfg.Routes,
		validate:   newValidator(),
		startTime:  time.Now(),
		secure:     cfg.Secure,
		verifyWait: cfg.VerifyWait,
	}
}

// HandleLogin renders the login page.
func (ui *UI) HandleLogin(w http.ResponseWriter, r *http.Request) {
	data := ui.pageData(r, "Login - RTO Reminders")
	data["Next"] = r.URL.Query().Get("next")
	data["Form"] = model.LoginRequest{}
	ui.render(w, r, "login", data)
}

// HandleLoginPost processes the login form.
func (ui *UI) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	a := AppFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, ui.routes.Login, http.StatusSeeOther)
		return
	}

	req := model.LoginRequest{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	next := r.FormValue("next")

	if errs := ui.check(req); errs != nil {
		data := ui.pageData(r, "Login - RTO Reminders")
		data["Form"] = model.LoginRequest{Email: req.Email}
		data["Errors"] = errs
		data["Next"] = next
		ui.renderStatus(w, r, http.StatusUnprocessableEntity, "login", data)
		return
	}

	res := a.Auth.Login(r.Context(), req.Email, req.Password)
	if !res.Success {
		data := ui.pageData(r, "Login - RTO Reminders")
		data["Form"] = model.LoginRequest{Email: req.Email}
		data["Next"] = next
		ui.renderStatus(w, r, http.StatusUnauthorized, "login", data)
		return
	}

	ui.redirect(w, r, ui.afterAuth(next))
}

// HandleRegister renders the registration page.
func (ui *UI) HandleRegister(w http.ResponseWriter, r *http.Request) {
	data := ui.pageData(r, "Register - RTO Reminders")
	data["Form"] = model.RegisterRequest{}
	ui.render(w, r, "register", data)
}

// HandleRegisterPost processes the registration form.
func (ui *UI) HandleRegisterPost(w http.ResponseWriter, r *http.Request) {
	a := AppFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}

	req := model.RegisterRequest{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Email:       strings.TrimSpace(r.FormValue("email")),
		Mobile:      strings.TrimSpace(r.FormValue("mobile")),
		Password:    r.FormValue("password"),
		CompanyName: strings.TrimSpace(r.FormValue("company_name")),
	}
	echo := req
	echo.Password = ""

	if errs := ui.check(req); errs != nil {
		data := ui.pageData(r, "Register - RTO Reminders")
		data["Form"] = echo
		data["Errors"] = errs
		ui.renderStatus(w, r, http.StatusUnprocessableEntity, "register", data)
		return
	}

	res := a.Auth.Register(r.Context(), req)
	if !res.Success {
		data := ui.pageData(r, "Register - RTO Reminders")
		data["Form"] = echo
		ui.renderStatus(w, r, http.StatusBadRequest, "register", data)
		return
	}

	ui.redirect(w, r, ui.routes.Dashboard)
}

// HandleLogout ends the session and redirects to login.
func (ui *UI) HandleLogout(w http.ResponseWriter, r *http.Request) {
	a := AppFromContext(r.Context())
	a.Auth.Logout(r.Context())
	http.Redirect(w, r, ui.routes.Login, http.StatusSeeOther)
}

// HandleTheme toggles the stored theme and returns to the referring page.
func (ui *UI) HandleTheme(w http.ResponseWriter, r *http.Request) {
	a := AppFromContext(r.Context())
	a.ToggleTheme(r.Context())

	back := ui.routes.Dashboard
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Host == r.Host && guard.SafeNext(ref.RequestURI()) {
		back = ref.RequestURI()
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// HandleDashboard renders the main dashboard.
func (ui *UI) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	a := AppFromContext(r.Context())
	items := a.Notifications.Items()
	if len(items) > 5 {
		items = items[:5]
	}

	data := ui.pageData(r, "Dashboard - RTO Reminders")
	data["Notifications"] = items
	data["PerMessageCost"] = ""
	if u := a.Auth.Snapshot().User; u != nil && !u.Settings.PerMessageCost.IsZero() {
		data["PerMessageCost"] = u.Settings.PerMessageCost.StringFixed(2)
	}
	ui.render(w, r, "dashboard", data)
}

// HandleWallet renders the wallet page.
func (ui *UI) HandleWallet(w http.ResponseWriter, r *http.Request) {
	a := AppFromContext(r.Context())
	data := ui.pageData(r, "Wallet - RTO Reminders")
	data["BalanceDisplay"] = a.Wallet.Display()
	data["Topup"] = a.Wallet.TopupSettings()
	ui.render(w, r, "wallet", data)
}

// HandleWalletRefresh re-fetches the balance.
func (ui *UI) HandleWalletRefresh(w http.ResponseWriter, r *http.Request) {
	a := AppFromContext(r.Context())
	if err := a.Wallet.RefreshBalance(r.Context()); err != nil && !model.IsUnauthorized(err) {
		a.Toasts.Error("Could not refresh your balance. Please try again.")
	}
	ui.redirect(w, r, "/wallet")
}

// HandleWalletConfirm verifies a completed gateway payment.
func (ui *UI) HandleWalletConfirm(w http.ResponseWriter, r *http.Request) {
	a := AppFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		ui.redirect(w, r, "/wallet")
		return
	}
	orderID := strings.TrimSpace(r.FormValue("order_id"))
	if orderID == "" {
		a.Toasts.Error("Order ID is required")
		ui.redirect(w, r, "/wallet")
		return
	}
	if _, err := a.Wallet.ConfirmPayment(r.Context(), orderID); err != nil {
		ui.logger.Debug("confirm payment failed", "order_id", orderID, "error", err)
	}
	ui.redirect(w, r, "/wallet")
}

// HandleNotifications reloads and renders the notification panel.
func (ui *UI) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	a := AppFromContext(r.Context())
	if err := a.Notifications.Fetch(r.Context(), a.Auth.Snapshot()); err != nil {
		ui.logger.Debug("notifications fetch failed", "error", err)
	}
	data := ui.pageData(r, "Notifications - RTO Reminders")
	data["Notifications"] = a.Notifications.Items()
	ui.render(w, r, "notifications", data)
}

// HandleNotificationsReadAll marks every notification read.
func (ui *UI) HandleNotificationsReadAll(w http.ResponseWriter, r *http.Request) {
	a := AppFromContext(r.Context())
	_ = a.Notifications.MarkAllRead(r.Context())
	ui.redirect(w, r, "/notifications")
}

// HandleNotificationsClear deletes every notification.
func (ui *UI) HandleNotificationsClear(w http.ResponseWriter, r *http.Request) {
	a := AppFromContext(r.Context())
	_ = a.Notifications.ClearAll(r.Context())
	ui.redirect(w, r, "/notifications")
}

// HandleChat renders the chatbot transcript.
func (ui *UI) HandleChat(w http.ResponseWriter, r *http.Request) {
	a := AppFromContext(r.Context())
	data := ui.pageData(r, "Support - RTO Reminders")
	data["Transcript"] = a.Chat.Transcript()
	ui.render(w, r, "chat", data)
}

// HandleChatPost sends a chatbot message.
func (ui *UI) HandleChatPost(w http.ResponseWriter, r *http.Request) {
	a := AppFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		ui.redirect(w, r, "/chat")
		return
	}
	if _, err := a.Chat.Send(r.Context(), r.FormValue("message")); err != nil {
		ui.logger.Debug("chat send failed", "error", err)
	}
	ui.redirect(w, r, "/chat")
}

// HandleAdmin renders the admin overview.
func (ui *UI) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	data := ui.pageData(r, "Admin - RTO Reminders")
	data["ActiveClients"] = ui.apps.Len()
	data["Uptime"] = time.Since(ui.startTime).Round(time.Second).String()
	ui.render(w, r, "admin", data)
}

// pageData collects what every page shows: identity, balance, unread count,
// theme and pending toasts.
func (ui *UI) pageData(r *http.Request, title string) map[string]any {
	a := AppFromContext(r.Context())
	snap := a.Auth.Snapshot()
	return map[string]any{
		"Title":   title,
		"User":    snap.User,
		"IsAdmin": snap.IsAdmin(),
		"Balance": a.Wallet.Balance(),
		"Unread":  a.Notifications.UnreadCount(),
		"Theme":   a.Theme(r.Context()),
		"Toasts":  a.Toasts.Drain(),
		"Errors":  map[string]string{},
	}
}

// afterAuth picks where to go after login: the ?next= page if it is local.
func (ui *UI) afterAuth(next string) string {
	if guard.SafeNext(next) && next != ui.routes.Login {
		return next
	}
	return ui.routes.Dashboard
}

// navigated answers a forced navigation (the 401 hook) if one was requested
// while serving r.
func (ui *UI) navigated(w http.ResponseWriter, r *http.Request) bool {
	slot := guard.SlotFromContext(r.Context())
	if slot == nil {
		return false
	}
	target, ok := slot.Target()
	if !ok {
		return false
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
	return true
}

// redirect sends the client to target unless a forced navigation wins.
func (ui *UI) redirect(w http.ResponseWriter, r *http.Request, target string) {
	if ui.navigated(w, r) {
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (ui *UI) render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	ui.renderStatus(w, r, http.StatusOK, name, data)
}

func (ui *UI) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	if ui.navigated(w, r) {
		return
	}
	var buf bytes.Buffer
	if err := renderTemplate(&buf, name, data); err != nil {
		ui.logger.Error("template render failed", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderLoading serves the spinner page shown while verification runs. It
// contains no protected content and reloads itself.
func (ui *UI) renderLoading(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	data := map[string]any{
		"Title":   "Loading - RTO Reminders",
		"Loading": true,
		"Theme":   AppFromContext(r.Context()).Theme(r.Context()),
	}
	if err := renderTemplate(&buf, "loading", data); err != nil {
		ui.logger.Error("template render failed", "template", "loading", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// check validates a form and returns messages keyed by form field name.
func (ui *UI) check(form any) map[string]string {
	err := ui.validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}
