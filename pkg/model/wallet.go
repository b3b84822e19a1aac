package model

import "github.com/shopspring/decimal"

// TopupSettings are the recharge options offered alongside the balance.
type TopupSettings struct {
	TopupAmounts   []decimal.Decimal `json:"topup_amounts"`
	MinTopupAmount decimal.Decimal   `json:"min_topup_amount"`
}

// BalanceInfo is the payload of GET /pay/balance.
type BalanceInfo struct {
	Balance  decimal.Decimal `json:"balance"`
	Settings TopupSettings   `json:"settings"`
}

// PaymentVerification is the payload of POST /pay/verify.
type PaymentVerification struct {
	OrderID string          `json:"order_id"`
	Status  string          `json:"status"`
	Amount  decimal.Decimal `json:"amount"`
	Balance decimal.Decimal `json:"balance"`
}

// Paid reports whether the gateway confirmed the order.
func (p *PaymentVerification) Paid() bool {
	return p.Status == "PAID" || p.Status == "paid" || p.Status == "success"
}
