// Package notify holds the notification panel: the server's alerts for the
// current agent plus a locally computed low-balance warning, and the support
// chatbot transcript.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/me/rtodash/internal/auth"
	"github.com/me/rtodash/internal/metrics"
	"github.com/me/rtodash/internal/toast"
	"github.com/me/rtodash/pkg/model"
)

// LowBalanceID is the id of the synthetic low-balance entry. Server entries
// never carry it.
const LowBalanceID = "low-balance-warning"

// DefaultLowBalanceThreshold is the balance below which the warning shows.
var DefaultLowBalanceThreshold = decimal.NewFromInt(50)

// API is the subset of the reminder API the panel calls.
type API interface {
	Notifications(ctx context.Context) ([]model.ServerNotification, error)
	MarkAllNotificationsRead(ctx context.Context) error
	ClearAllNotifications(ctx context.Context) error
}

// Balance is the wallet as seen by the panel.
type Balance interface {
	Amount() decimal.Decimal
	Known() bool
}

// Option configures a Panel.
type Option func(*Panel)

// WithThreshold overrides the low-balance threshold.
func WithThreshold(d decimal.Decimal) Option {
	return func(p *Panel) { p.threshold = d }
}

// WithClock overrides the clock used for relative timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Panel) { p.now = now }
}

// Panel is the merged notification list for one agent.
type Panel struct {
	api       API
	wallet    Balance
	toasts    toast.Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
	threshold decimal.Decimal
	now       func() time.Time

	mu        sync.Mutex
	items     []model.Notification // server entries only
	owner     string               // display name the list was loaded for
	warnRead  bool
	warnGone  bool
	lastKey   string
	lastEpoch uint64
}

// NewPanel creates an empty panel.
func NewPanel(api API, wallet Balance, logger *slog.Logger, toasts toast.Notifier, m *metrics.Metrics, opts ...Option) *Panel {
	if toasts == nil {
		toasts = toast.Discard{}
	}
	p := &Panel{
		api:       api,
		wallet:    wallet,
		toasts:    toasts,
		metrics:   m,
		logger:    logger.With("component", "notify"),
		threshold: DefaultLowBalanceThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fetch reloads the list for snap's identity. It does nothing until the auth
// check has finished and the agent's name is known. The list is rebuilt from
// scratch; a failure other than unauthorized leaves only the low-balance
// entry, never entries from an earlier load.
func (p *Panel) Fetch(ctx context.Context, snap auth.Snapshot) error {
	if !snap.AuthChecked || snap.User == nil || snap.User.Name == "" {
		p.metrics.IncNotificationLoad("skipped")
		return nil
	}

	list, err := p.api.Notifications(ctx)
	if err != nil {
		p.mu.Lock()
		if p.staleLocked(snap) {
			p.mu.Unlock()
			p.metrics.IncNotificationLoad("stale")
			return nil
		}
		p.items = nil
		p.resetWarningLocked()
		if model.IsUnauthorized(err) {
			p.owner = ""
			p.metrics.IncNotificationLoad("unauthorized")
		} else {
			p.owner = snap.User.Name
			p.metrics.IncNotificationLoad("failed")
			p.logger.Warn("fetch notifications failed", "error", err)
		}
		p.mu.Unlock()
		return err
	}

	now := p.now()
	items := make([]model.Notification, 0, len(list))
	for _, n := range list {
		items = append(items, convert(n, now))
	}

	p.mu.Lock()
	if p.staleLocked(snap) {
		p.mu.Unlock()
		p.logger.Debug("dropping notifications for previous identity")
		p.metrics.IncNotificationLoad("stale")
		return nil
	}
	p.items = items
	p.owner = snap.User.Name
	p.resetWarningLocked()
	p.mu.Unlock()
	p.metrics.IncNotificationLoad("ok")
	return nil
}

// staleLocked reports whether the identity changed while a fetch for snap
// was in flight. Before the first OnIdentity there is nothing to compare.
func (p *Panel) staleLocked(snap auth.Snapshot) bool {
	return p.lastKey != "" && p.lastKey != snap.IdentityKey()
}

func (p *Panel) resetWarningLocked() {
	p.warnRead = false
	p.warnGone = false
}

// Items is the list to render, low-balance warning first when it applies.
func (p *Panel) Items() []model.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]model.Notification, 0, len(p.items)+1)
	if w, ok := p.warningLocked(); ok {
		out = append(out, w)
	}
	return append(out, p.items...)
}

func (p *Panel) warningLocked() (model.Notification, bool) {
	if p.owner == "" || p.warnGone || !p.wallet.Known() {
		return model.Notification{}, false
	}
	amount := p.wallet.Amount()
	if !amount.LessThan(p.threshold) {
		return model.Notification{}, false
	}
	return model.Notification{
		ID:    LowBalanceID,
		Title: "Low Wallet Balance",
		Message: fmt.Sprintf("Your wallet balance is ₹%s. Recharge soon so your reminders keep going out.",
			amount.StringFixed(2)),
		Timestamp: "Just now",
		Read:      p.warnRead,
		Type:      model.NotificationWarning,
	}, true
}

// UnreadCount counts unread entries in Items.
func (p *Panel) UnreadCount() int {
	n := 0
	for _, it := range p.Items() {
		if !it.Read {
			n++
		}
	}
	return n
}

// MarkAllRead marks everything read on the server, then locally.
func (p *Panel) MarkAllRead(ctx context.Context) error {
	if err := p.api.MarkAllNotificationsRead(ctx); err != nil {
		p.logger.Warn("mark all read failed", "error", err)
		p.toasts.Error(model.UserMessage(err))
		return fmt.Errorf("mark all notifications read: %w", err)
	}

	p.mu.Lock()
	for i := range p.items {
		p.items[i].Read = true
	}
	p.warnRead = true
	p.mu.Unlock()
	return nil
}

// ClearAll deletes everything on the server, then empties the local list.
// The low-balance warning stays hidden until the next load.
func (p *Panel) ClearAll(ctx context.Context) error {
	if err := p.api.ClearAllNotifications(ctx); err != nil {
		p.logger.Warn("clear notifications failed", "error", err)
		p.toasts.Error(model.UserMessage(err))
		return fmt.Errorf("clear notifications: %w", err)
	}

	p.mu.Lock()
	p.items = nil
	p.warnGone = true
	p.mu.Unlock()
	p.toasts.Success("All notifications cleared")
	return nil
}

// OnIdentity reloads when identity presence or readiness changes. Any list
// from a previous identity is dropped before the reload.
func (p *Panel) OnIdentity(ctx context.Context, snap auth.Snapshot) {
	p.mu.Lock()
	if snap.Epoch < p.lastEpoch {
		p.mu.Unlock()
		return
	}
	p.lastEpoch = snap.Epoch
	key := snap.IdentityKey()
	if key == p.lastKey {
		p.mu.Unlock()
		return
	}
	p.lastKey = key
	p.items = nil
	p.owner = ""
	p.resetWarningLocked()
	p.mu.Unlock()

	_ = p.Fetch(ctx, snap)
}

func convert(n model.ServerNotification, now time.Time) model.Notification {
	id := string(n.ID)
	if id == LowBalanceID {
		id = "server-" + id
	}
	return model.Notification{
		ID:        id,
		Title:     n.Title,
		Message:   n.Message,
		Timestamp: FormatTimestamp(n.CreatedAt, now),
		Read:      n.IsRead,
		Type:      model.ParseNotificationType(n.Type),
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// FormatTimestamp renders a server date relative to now ("3 hours ago").
// Values that do not parse are shown as sent.
func FormatTimestamp(raw string, now time.Time) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			if now.Sub(t) < time.Minute && now.Sub(t) > -time.Minute {
				return "Just now"
			}
			return humanize.RelTime(t, now, "ago", "from now")
		}
	}
	return raw
}
