package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Canonical event types. The network emits both dotted and underscored
// forms; NormalizeEventType folds them together before comparison.
const (
	EventIncomingPaymentCompleted = "incoming.payment.completed"
	EventWalletAddressCreated     = "wallet.address.created"
	EventOutgoingPaymentCompleted = "outgoing.payment.completed"
	EventOutgoingPaymentFailed    = "outgoing.payment.failed"
)

// NormalizeEventType maps underscored type strings onto the dotted form,
// e.g. "incoming_payment_completed" -> "incoming.payment.completed".
func NormalizeEventType(t string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(t)), "_", ".")
}

// RecognizedEventType reports whether the type is one this core processes
// or at least understands. Unrecognized types are stored but not posted.
func RecognizedEventType(t string) bool {
	switch NormalizeEventType(t) {
	case EventIncomingPaymentCompleted,
		EventWalletAddressCreated,
		EventOutgoingPaymentCompleted,
		EventOutgoingPaymentFailed:
		return true
	}
	return false
}

// WebhookEnvelope is the wire format of an inbound notification.
type WebhookEnvelope struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Data      WebhookData `json:"data"`
	CreatedAt string      `json:"createdAt,omitempty"`
}

// WebhookData is the payment-specific body of an envelope.
type WebhookData struct {
	ID              string         `json:"id"`
	WalletAddressID string         `json:"walletAddressId"`
	IncomingAmount  *WireAmount    `json:"incomingAmount,omitempty"`
	ReceivedAmount  *WireAmount    `json:"receivedAmount,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// WireAmount is the network's integer-scaled amount representation:
// value "5000" with assetScale 2 is 50.00 units of assetCode.
type WireAmount struct {
	Value      string `json:"value"`
	AssetCode  string `json:"assetCode"`
	AssetScale int32  `json:"assetScale"`
}

// Decimal converts the scaled integer value to a decimal amount.
func (a *WireAmount) Decimal() (decimal.Decimal, error) {
	v, err := decimal.NewFromString(a.Value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad amount value %q", ErrValidation, a.Value)
	}
	return v.Shift(-a.AssetScale), nil
}

// NewWireAmount renders a decimal amount at the given scale, rounding to
// the scale's precision.
func NewWireAmount(d decimal.Decimal, assetCode string, assetScale int32) WireAmount {
	return WireAmount{
		Value:      d.Shift(assetScale).Round(0).String(),
		AssetCode:  assetCode,
		AssetScale: assetScale,
	}
}

// Amount picks the authoritative amount for an incoming payment: the
// received amount when present, otherwise the incoming amount.
func (d *WebhookData) Amount() *WireAmount {
	if d.ReceivedAmount != nil {
		return d.ReceivedAmount
	}
	return d.IncomingAmount
}
