package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/paycore/internal/domain"
)

// EventStore is the durable, idempotent webhook event store.
type EventStore interface {
	IngestEvent(ctx context.Context, ev *domain.WebhookEvent) error
	MarkEventProcessed(ctx context.Context, id string) error
	MarkEventError(ctx context.Context, id, msg string) error
	GetEvent(ctx context.Context, id string) (*domain.WebhookEvent, error)
}

// Ledger is the account ledger consumed by this core.
type Ledger interface {
	GetAccountByWalletID(ctx context.Context, walletID string) (*domain.Account, error)
	GetTransactionByReference(ctx context.Context, ref string) (*domain.Transaction, error)
	PostProvisionalCredit(ctx context.Context, accountID int64, amount decimal.Decimal, currency string, conv *domain.Conversion, ref string) (*domain.Transaction, error)
	FinalizeTransaction(ctx context.Context, txID int64) (*domain.Transaction, error)
	ReverseTransaction(ctx context.Context, txID int64, ref string) (*domain.Transaction, error)
}

// PendingStore persists pending payments and enforces the terminal-state
// guard on decisions.
type PendingStore interface {
	CreatePendingPayment(ctx context.Context, p *domain.PendingPayment) error
	GetPendingPayment(ctx context.Context, id int64) (*domain.PendingPayment, error)
	DecidePendingPayment(ctx context.Context, id int64, status, reviewer, notes string) (*domain.PendingPayment, error)
	RevertDecision(ctx context.Context, id int64) error
	SetReversalOutcome(ctx context.Context, id int64, patch domain.ReversalPatch) error
}

// AuditSink is the append-only decision record. Write failures never abort
// the surrounding operation.
type AuditSink interface {
	Record(ctx context.Context, action, resourceType, resourceID, actor string, details map[string]any) error
}

// ReversalClient pushes funds back to an external wallet address over the
// payment network's three-leg protocol. It returns the outgoing payment id.
type ReversalClient interface {
	Reverse(ctx context.Context, req domain.ReversalRequest) (string, error)
}

// Mirror is the optional bounded recent-events mirror.
type Mirror interface {
	Push(ctx context.Context, eventID string) error
}

// Thresholds hold per-currency auto-approval limits.
type Thresholds struct {
	PerCurrency map[string]decimal.Decimal
	Default     decimal.Decimal
}

func (t Thresholds) For(currency string) decimal.Decimal {
	if v, ok := t.PerCurrency[currency]; ok {
		return v
	}
	return t.Default
}
