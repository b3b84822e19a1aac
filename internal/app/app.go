// Package app wires one client's session, API client, coordinators and
// toasts into a single unit. The dashboard holds one App per browser; the CLI
// holds exactly one.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/me/rtodash/internal/apiclient"
	"github.com/me/rtodash/internal/auth"
	"github.com/me/rtodash/internal/guard"
	"github.com/me/rtodash/internal/metrics"
	"github.com/me/rtodash/internal/notify"
	"github.com/me/rtodash/internal/session"
	"github.com/me/rtodash/internal/store"
	"github.com/me/rtodash/internal/toast"
	"github.com/me/rtodash/internal/wallet"
)

// Theme values stored under store.KeyTheme.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Options are shared by every App a process creates.
type Options struct {
	APIBaseURL          string
	Routes              guard.Routes
	Navigator           guard.Navigator
	Metrics             *metrics.Metrics
	HTTPClient          *http.Client
	LowBalanceThreshold decimal.Decimal
	ChatLimit           int
	ToastLimit          int
	Logger              *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Routes == (guard.Routes{}) {
		o.Routes = guard.DefaultRoutes
	}
	if o.Navigator == nil {
		o.Navigator = guard.ContextNavigator{}
	}
	if o.LowBalanceThreshold.IsZero() {
		o.LowBalanceThreshold = notify.DefaultLowBalanceThreshold
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// App is everything one client needs.
type App struct {
	ID            string
	Session       *session.Store
	API           *apiclient.Client
	Auth          *auth.Coordinator
	Wallet        *wallet.Coordinator
	Notifications *notify.Panel
	Chat          *notify.Chat
	Toasts        *toast.Queue

	kv       store.KV
	logger   *slog.Logger
	lastSeen atomic.Int64
}

// New builds an App over the client's durable storage.
func New(id string, kv store.KV, opts Options) *App {
	opts = opts.withDefaults()
	logger := opts.Logger.With("client_id", id)

	a := &App{
		ID:     id,
		kv:     kv,
		logger: logger,
		Toasts: toast.NewQueue(opts.ToastLimit),
	}
	a.Session = session.New(kv, logger)

	// The single place a 401 is handled: whatever call received it, the
	// session ends and the client is sent to the login page.
	onUnauthorized := apiclient.UnauthorizedHook(func(ctx context.Context) {
		opts.Metrics.IncUnauthorized()
		a.Session.ClearToken(ctx)
		a.Auth.HandleUnauthorized(ctx)
		opts.Navigator.Navigate(ctx, opts.Routes.Login)
	})

	clientOpts := []apiclient.Option{
		apiclient.WithResponseHook(onUnauthorized),
		apiclient.WithMetrics(opts.Metrics),
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, apiclient.WithHTTPClient(opts.HTTPClient))
	}
	a.API = apiclient.New(opts.APIBaseURL, a.Session, logger, clientOpts...)

	a.Auth = auth.New(a.API, a.Session, logger, auth.Config{
		LoginPath: opts.Routes.Login,
		Toasts:    a.Toasts,
		Metrics:   opts.Metrics,
	})
	a.Wallet = wallet.New(a.API, a.Auth, logger, a.Toasts, opts.Metrics)
	a.Notifications = notify.NewPanel(a.API, a.Wallet, logger, a.Toasts, opts.Metrics,
		notify.WithThreshold(opts.LowBalanceThreshold))
	a.Chat = notify.NewChat(a.API, logger, opts.ChatLimit)

	a.Auth.Subscribe(a.onIdentity)
	a.touch(time.Now())
	return a
}

// onIdentity runs the wallet and notification reloads side by side; neither
// depends on the other.
func (a *App) onIdentity(ctx context.Context, snap auth.Snapshot) {
	var g errgroup.Group
	g.Go(func() error {
		a.Wallet.OnIdentity(ctx, snap)
		return nil
	})
	g.Go(func() error {
		a.Notifications.OnIdentity(ctx, snap)
		return nil
	})
	_ = g.Wait()

	if !snap.Authenticated() {
		a.Chat.Reset()
	}
}

// Theme returns the stored theme preference, light by default.
func (a *App) Theme(ctx context.Context) string {
	v, ok, err := a.kv.Get(ctx, store.KeyTheme)
	if err != nil {
		a.logger.Warn("read theme failed", "error", err)
		return ThemeLight
	}
	if !ok || (v != ThemeLight && v != ThemeDark) {
		return ThemeLight
	}
	return v
}

// ToggleTheme flips and stores the theme preference.
func (a *App) ToggleTheme(ctx context.Context) string {
	next := ThemeDark
	if a.Theme(ctx) == ThemeDark {
		next = ThemeLight
	}
	if err := a.kv.Set(ctx, store.KeyTheme, next); err != nil {
		a.logger.Warn("store theme failed", "error", err)
	}
	return next
}

func (a *App) touch(now time.Time) {
	a.lastSeen.Store(now.UnixNano())
}

// LastSeen is when the App last served a request.
func (a *App) LastSeen() time.Time {
	return time.Unix(0, a.lastSeen.Load())
}
