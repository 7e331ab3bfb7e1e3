package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeEventType(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"incoming.payment.completed", "incoming.payment.completed"},
		{"incoming_payment_completed", "incoming.payment.completed"},
		{"  Outgoing_Payment_Failed ", "outgoing.payment.failed"},
		{"wallet_address.created", "wallet.address.created"},
	}
	for _, c := range cases {
		if got := NormalizeEventType(c.in); got != c.want {
			t.Errorf("NormalizeEventType(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRecognizedEventType(t *testing.T) {
	if !RecognizedEventType("incoming_payment_completed") {
		t.Fatal("underscored incoming payment not recognized")
	}
	if RecognizedEventType("account.profile.updated") {
		t.Fatal("unknown type recognized")
	}
}

func TestWireAmountDecimal(t *testing.T) {
	a := WireAmount{Value: "5000", AssetCode: "USD", AssetScale: 2}
	d, err := a.Decimal()
	if err != nil {
		t.Fatal(err)
	}
	if !d.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("decimal = %s, want 50.00", d)
	}

	bad := WireAmount{Value: "not-a-number"}
	if _, err := bad.Decimal(); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestNewWireAmount(t *testing.T) {
	a := NewWireAmount(decimal.RequireFromString("13925.00"), "PKR", 2)
	if a.Value != "1392500" || a.AssetCode != "PKR" || a.AssetScale != 2 {
		t.Fatalf("wire amount = %+v", a)
	}
}

func TestWebhookDataAmountPreference(t *testing.T) {
	incoming := &WireAmount{Value: "100"}
	received := &WireAmount{Value: "99"}

	d := &WebhookData{IncomingAmount: incoming, ReceivedAmount: received}
	if d.Amount() != received {
		t.Fatal("receivedAmount should win when present")
	}

	d = &WebhookData{IncomingAmount: incoming}
	if d.Amount() != incoming {
		t.Fatal("incomingAmount should be used when receivedAmount absent")
	}
}
