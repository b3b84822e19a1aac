package wallet

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/me/rtodash/internal/auth"
	"github.com/me/rtodash/internal/logging"
	"github.com/me/rtodash/internal/toast"
	"github.com/me/rtodash/pkg/model"
)

type fakeIdentity struct{ snap auth.Snapshot }

func (f *fakeIdentity) Snapshot() auth.Snapshot { return f.snap }

type fakeAPI struct {
	calls  atomic.Int32
	info   *model.BalanceInfo
	err    error
	verify *model.PaymentVerification
	onCall func()
}

func (f *fakeAPI) Balance(context.Context) (*model.BalanceInfo, error) {
	f.calls.Add(1)
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

func (f *fakeAPI) VerifyPayment(_ context.Context, orderID string) (*model.PaymentVerification, error) {
	if f.err != nil {
		return nil, f.err
	}
	v := *f.verify
	v.OrderID = orderID
	return &v, nil
}

var ravi = &model.Agent{ID: "a_1", Name: "Ravi", Email: "ravi@example.com", Role: model.RoleAgent}

func authed(epoch uint64) auth.Snapshot {
	return auth.Snapshot{State: auth.StateAuthenticated, User: ravi, AuthChecked: true, Epoch: epoch}
}

func anonymous(epoch uint64) auth.Snapshot {
	return auth.Snapshot{State: auth.StateAnonymous, AuthChecked: true, Epoch: epoch}
}

func balanceInfo(s string) *model.BalanceInfo {
	return &model.BalanceInfo{
		Balance:  decimal.RequireFromString(s),
		Settings: model.TopupSettings{MinTopupAmount: decimal.NewFromInt(100)},
	}
}

func newWallet(api *fakeAPI, id *fakeIdentity) (*Coordinator, *toast.Queue) {
	q := toast.NewQueue(10)
	return New(api, id, logging.Discard(), q, nil), q
}

func TestFetchBalance_NoIdentity(t *testing.T) {
	api := &fakeAPI{info: balanceInfo("999")}
	id := &fakeIdentity{snap: anonymous(1)}
	w, _ := newWallet(api, id)

	w.SetWalletBalance(decimal.RequireFromString("77.7"))
	require.NoError(t, w.FetchBalance(context.Background()))

	assert.Equal(t, "0.00", w.Balance())
	assert.False(t, w.Known())
	assert.Zero(t, api.calls.Load())
}

func TestFetchBalance_FormatsTwoDecimals(t *testing.T) {
	api := &fakeAPI{info: balanceInfo("120.5")}
	w, _ := newWallet(api, &fakeIdentity{snap: authed(1)})

	require.NoError(t, w.FetchBalance(context.Background()))
	assert.Equal(t, "120.50", w.Balance())
	assert.True(t, w.Known())
	assert.Equal(t, "100", w.TopupSettings().MinTopupAmount.String())
}

func TestFetchBalance_UnauthorizedResets(t *testing.T) {
	api := &fakeAPI{info: balanceInfo("300")}
	w, _ := newWallet(api, &fakeIdentity{snap: authed(1)})
	ctx := context.Background()
	require.NoError(t, w.FetchBalance(ctx))

	api.err = &model.APIError{Status: http.StatusUnauthorized, Message: "Token expired"}
	err := w.FetchBalance(ctx)
	require.Error(t, err)
	assert.Equal(t, "0.00", w.Balance())
}

func TestFetchBalance_TransientFailureKeepsValue(t *testing.T) {
	api := &fakeAPI{info: balanceInfo("300")}
	w, _ := newWallet(api, &fakeIdentity{snap: authed(1)})
	ctx := context.Background()
	require.NoError(t, w.FetchBalance(ctx))

	api.err = errors.New("dial tcp: connection refused")
	require.Error(t, w.FetchBalance(ctx))
	assert.Equal(t, "300.00", w.Balance())

	api.err = &model.APIError{Status: http.StatusBadGateway}
	require.Error(t, w.FetchBalance(ctx))
	assert.Equal(t, "300.00", w.Balance())
}

func TestFetchBalance_DropsResultForPreviousIdentity(t *testing.T) {
	id := &fakeIdentity{snap: authed(1)}
	api := &fakeAPI{info: balanceInfo("300")}
	api.onCall = func() { id.snap = anonymous(2) }
	w, _ := newWallet(api, id)

	require.NoError(t, w.FetchBalance(context.Background()))
	assert.Equal(t, "0.00", w.Balance())
}

func TestSetWalletBalance(t *testing.T) {
	w, _ := newWallet(&fakeAPI{}, &fakeIdentity{snap: authed(1)})
	w.SetWalletBalance(decimal.RequireFromString("123.4"))
	assert.Equal(t, "123.40", w.Balance())
	assert.True(t, w.Known())
}

func TestOnIdentity_KeyedOnReadiness(t *testing.T) {
	api := &fakeAPI{info: balanceInfo("80")}
	w, _ := newWallet(api, &fakeIdentity{})
	ctx := context.Background()

	w.OnIdentity(ctx, auth.Snapshot{Loading: true})
	assert.Zero(t, api.calls.Load())

	w.OnIdentity(ctx, authed(1))
	assert.Equal(t, int32(1), api.calls.Load())
	assert.Equal(t, "80.00", w.Balance())

	// same identity, new epoch (e.g. profile refresh): no re-fetch
	w.OnIdentity(ctx, authed(2))
	assert.Equal(t, int32(1), api.calls.Load())

	// stale snapshot delivered late: ignored
	w.OnIdentity(ctx, anonymous(1))
	assert.Equal(t, "80.00", w.Balance())

	w.OnIdentity(ctx, anonymous(3))
	assert.Equal(t, "0.00", w.Balance())
	assert.Equal(t, int32(1), api.calls.Load())
}

func TestConfirmPayment(t *testing.T) {
	api := &fakeAPI{verify: &model.PaymentVerification{
		Status:  "PAID",
		Amount:  decimal.NewFromInt(500),
		Balance: decimal.RequireFromString("1750.5"),
	}}
	w, q := newWallet(api, &fakeIdentity{snap: authed(1)})

	v, err := w.ConfirmPayment(context.Background(), "order_42")
	require.NoError(t, err)
	assert.Equal(t, "order_42", v.OrderID)
	assert.Equal(t, "1750.50", w.Balance())
	assert.Equal(t, "₹1,750.50", w.Display())

	toasts := q.Drain()
	require.Len(t, toasts, 1)
	assert.Equal(t, "Payment successful! ₹500.00 added to your wallet.", toasts[0].Message)
}

func TestConfirmPayment_PendingLeavesBalance(t *testing.T) {
	api := &fakeAPI{verify: &model.PaymentVerification{Status: "ACTIVE", Balance: decimal.NewFromInt(9999)}}
	w, _ := newWallet(api, &fakeIdentity{snap: authed(1)})
	w.SetWalletBalance(decimal.NewFromInt(10))

	_, err := w.ConfirmPayment(context.Background(), "order_43")
	require.NoError(t, err)
	assert.Equal(t, "10.00", w.Balance())
}

func TestConfirmPayment_Failure(t *testing.T) {
	api := &fakeAPI{err: &model.APIError{Status: http.StatusNotFound, Message: "Order not found"}}
	w, q := newWallet(api, &fakeIdentity{snap: authed(1)})

	_, err := w.ConfirmPayment(context.Background(), "nope")
	require.Error(t, err)
	toasts := q.Drain()
	require.Len(t, toasts, 1)
	assert.Equal(t, "Order not found", toasts[0].Message)

	_, err = w.ConfirmPayment(context.Background(), "")
	assert.Error(t, err)
}

func TestFormatINR(t *testing.T) {
	assert.Equal(t, "₹0.00", FormatINR(decimal.Zero))
	assert.Equal(t, "₹49.90", FormatINR(decimal.RequireFromString("49.9")))
	assert.Equal(t, "₹1,234,567.00", FormatINR(decimal.NewFromInt(1234567)))
}
