// Package wallet keeps the current agent's balance. It is the only writer of
// the balance; readers use Balance and Amount.
package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/me/rtodash/internal/auth"
	"github.com/me/rtodash/internal/metrics"
	"github.com/me/rtodash/internal/toast"
	"github.com/me/rtodash/pkg/model"
)

// API is the subset of the reminder API the wallet calls.
type API interface {
	Balance(ctx context.Context) (*model.BalanceInfo, error)
	VerifyPayment(ctx context.Context, orderID string) (*model.PaymentVerification, error)
}

// Identity supplies the current auth snapshot.
type Identity interface {
	Snapshot() auth.Snapshot
}

// Coordinator is a read-through cache of the wallet balance.
type Coordinator struct {
	api      API
	identity Identity
	toasts   toast.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu        sync.Mutex
	balance   decimal.Decimal
	known     bool
	topup     model.TopupSettings
	lastKey   string
	lastEpoch uint64
}

// New creates a wallet with a zero balance.
func New(api API, identity Identity, logger *slog.Logger, toasts toast.Notifier, m *metrics.Metrics) *Coordinator {
	if toasts == nil {
		toasts = toast.Discard{}
	}
	return &Coordinator{
		api:      api,
		identity: identity,
		toasts:   toasts,
		metrics:  m,
		logger:   logger.With("component", "wallet"),
	}
}

// Balance is the balance formatted to exactly two decimals.
func (c *Coordinator) Balance() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance.StringFixed(2)
}

// Amount is the balance as a number.
func (c *Coordinator) Amount() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance
}

// Known reports whether the balance came from the server (or a confirmed
// payment) rather than being the zero placeholder.
func (c *Coordinator) Known() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.known
}

// Display formats the balance with a currency sign and thousands separators.
func (c *Coordinator) Display() string {
	return FormatINR(c.Amount())
}

// TopupSettings returns the recharge options from the last fetch.
func (c *Coordinator) TopupSettings() model.TopupSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topup
}

// FetchBalance loads the balance for the current identity. Without an
// identity the balance resets to zero and no call is made. An unauthorized
// failure also resets it; any other failure keeps the last value.
func (c *Coordinator) FetchBalance(ctx context.Context) error {
	return c.fetch(ctx, c.identity.Snapshot())
}

// RefreshBalance re-runs FetchBalance after a balance-affecting action.
func (c *Coordinator) RefreshBalance(ctx context.Context) error {
	return c.FetchBalance(ctx)
}

func (c *Coordinator) fetch(ctx context.Context, snap auth.Snapshot) error {
	if snap.User == nil {
		c.reset()
		c.metrics.IncWalletFetch("skipped")
		return nil
	}

	info, err := c.api.Balance(ctx)
	if err != nil {
		if model.IsUnauthorized(err) {
			c.reset()
			c.metrics.IncWalletFetch("unauthorized")
			return err
		}
		c.metrics.IncWalletFetch("failed")
		c.logger.Warn("fetch balance failed", "error", err)
		return err
	}

	// The identity may have changed while the call was in flight.
	if cur := c.identity.Snapshot(); cur.IdentityKey() != snap.IdentityKey() {
		c.logger.Debug("dropping balance for previous identity")
		return nil
	}

	c.mu.Lock()
	c.balance = info.Balance
	c.topup = info.Settings
	c.known = true
	c.mu.Unlock()
	c.metrics.IncWalletFetch("ok")
	return nil
}

func (c *Coordinator) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balance = decimal.Zero
	c.topup = model.TopupSettings{}
	c.known = false
}

// SetWalletBalance overwrites the balance with a server-confirmed amount
// without waiting for the next fetch.
func (c *Coordinator) SetWalletBalance(amount decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balance = amount
	c.known = true
}

// ConfirmPayment verifies a gateway order with the API and, once paid,
// applies the balance the server reports.
func (c *Coordinator) ConfirmPayment(ctx context.Context, orderID string) (*model.PaymentVerification, error) {
	if orderID == "" {
		return nil, fmt.Errorf("confirm payment: order id is required")
	}
	v, err := c.api.VerifyPayment(ctx, orderID)
	if err != nil {
		c.logger.Warn("payment verification failed", "order_id", orderID, "error", err)
		c.toasts.Error(model.UserMessage(err))
		return nil, fmt.Errorf("confirm payment %s: %w", orderID, err)
	}
	if !v.Paid() {
		c.toasts.Info("Payment is " + v.Status + ". Your balance will update once it completes.")
		return v, nil
	}

	c.SetWalletBalance(v.Balance)
	c.logger.Info("payment confirmed", "order_id", orderID, "amount", v.Amount.StringFixed(2))
	c.toasts.Success("Payment successful! " + FormatINR(v.Amount) + " added to your wallet.")
	return v, nil
}

// OnIdentity re-fetches when identity presence or readiness changes. It is
// meant to be subscribed to the auth coordinator.
func (c *Coordinator) OnIdentity(ctx context.Context, snap auth.Snapshot) {
	c.mu.Lock()
	if snap.Epoch < c.lastEpoch {
		c.mu.Unlock()
		return
	}
	c.lastEpoch = snap.Epoch
	key := snap.IdentityKey()
	if key == c.lastKey {
		c.mu.Unlock()
		return
	}
	c.lastKey = key
	c.mu.Unlock()

	_ = c.fetch(ctx, snap)
}

// FormatINR renders an amount as rupees, e.g. ₹1,234.50.
func FormatINR(d decimal.Decimal) string {
	return "₹" + humanize.FormatFloat("#,###.##", d.Round(2).InexactFloat64())
}
