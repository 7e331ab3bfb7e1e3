package service

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/punchamoorthee/paycore/internal/domain"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paycore_decisions_total",
		Help: "Pending payment decisions by kind",
	}, []string{"decision"})

	reversalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paycore_reversals_total",
		Help: "Reversal attempts by outcome",
	}, []string{"status"})
)

// Orchestrator executes terminal decisions on pending payments: approve
// finalizes the provisional credit; reject unwinds it and attempts to
// return funds to the sender.
type Orchestrator struct {
	ledger    Ledger
	pending   PendingStore
	audit     AuditSink
	reversals ReversalClient

	// fallbackWallet, when configured, receives reversals whose sender
	// wallet cannot be resolved from event metadata. Empty disables the
	// fallback and such rejections degrade to NO_SENDER_INFO.
	fallbackWallet string

	log *zap.Logger
}

func NewOrchestrator(ledger Ledger, pending PendingStore, audit AuditSink, reversals ReversalClient, fallbackWallet string, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		ledger:         ledger,
		pending:        pending,
		audit:          audit,
		reversals:      reversals,
		fallbackWallet: fallbackWallet,
		log:            log,
	}
}

// Approve finalizes the provisional credit and marks the payment APPROVED.
func (o *Orchestrator) Approve(ctx context.Context, id int64, reviewer, notes string) (*domain.PendingPayment, error) {
	p, err := o.pending.DecidePendingPayment(ctx, id, domain.PaymentStatusApproved, reviewer, notes)
	if err != nil {
		return nil, err
	}

	if _, err := o.ledger.FinalizeTransaction(ctx, p.TransactionID); err != nil {
		o.log.Error("finalize after approval failed",
			zap.Int64("payment_id", id),
			zap.Int64("transaction_id", p.TransactionID),
			zap.Error(err))
		o.revertDecision(ctx, id)
		return nil, fmt.Errorf("approve payment %d: %w", id, err)
	}

	decisionsTotal.WithLabelValues("approve").Inc()
	o.recordAudit(ctx, "payment.approved", p, reviewer, map[string]any{
		"transaction_id": p.TransactionID,
		"amount":         p.Amount.String(),
		"currency":       p.Currency,
		"notes":          notes,
	})
	return p, nil
}

// Reject unwinds the provisional credit and attempts a best-effort reversal
// to the sender. The rejection itself is never blocked by a reversal
// failure: the ledger correction always lands, the external leg is recorded
// as COMPLETED, FAILED, or NO_SENDER_INFO.
func (o *Orchestrator) Reject(ctx context.Context, id int64, reviewer, notes string) (*domain.PendingPayment, error) {
	p, err := o.pending.DecidePendingPayment(ctx, id, domain.PaymentStatusRejected, reviewer, notes)
	if err != nil {
		return nil, err
	}

	debit, err := o.ledger.ReverseTransaction(ctx, p.TransactionID, "reversal:"+p.EventID)
	if err != nil {
		o.log.Error("compensating debit failed",
			zap.Int64("payment_id", id),
			zap.Int64("transaction_id", p.TransactionID),
			zap.Error(err))
		o.revertDecision(ctx, id)
		return nil, fmt.Errorf("reject payment %d: %w", id, err)
	}
	decisionsTotal.WithLabelValues("reject").Inc()

	patch := o.attemptReversal(ctx, p)
	if err := o.pending.SetReversalOutcome(ctx, id, patch); err != nil {
		o.log.Error("recording reversal outcome failed",
			zap.Int64("payment_id", id), zap.Error(err))
	}
	p.ReversalStatus = patch.Status
	p.ReversalPaymentID = patch.PaymentID
	p.ReversalError = patch.Error
	reversalsTotal.WithLabelValues(patch.Status).Inc()

	details := map[string]any{
		"transaction_id":       p.TransactionID,
		"debit_transaction_id": debit.ID,
		"amount":               p.Amount.String(),
		"currency":             p.Currency,
		"reversal_status":      patch.Status,
		"notes":                notes,
	}
	if patch.PaymentID != nil {
		details["reversal_payment_id"] = *patch.PaymentID
	}
	if patch.Error != nil {
		details["reversal_error"] = *patch.Error
	}
	o.recordAudit(ctx, "payment.rejected", p, reviewer, details)
	return p, nil
}

// revertDecision puts a payment back to PENDING when the decision's ledger
// work failed, so a retry is not refused as already decided. The CAS in
// DecidePendingPayment held the terminal status for the whole attempt, so
// no concurrent decision can have slipped in meanwhile.
func (o *Orchestrator) revertDecision(ctx context.Context, id int64) {
	if err := o.pending.RevertDecision(ctx, id); err != nil {
		o.log.Error("decision revert failed",
			zap.Int64("payment_id", id), zap.Error(err))
	}
}

// attemptReversal runs the external three-leg reversal. Sender resolution:
// metadata-derived wallet, then the configured fallback wallet, then give
// up with NO_SENDER_INFO.
func (o *Orchestrator) attemptReversal(ctx context.Context, p *domain.PendingPayment) domain.ReversalPatch {
	wallet := ""
	if p.SenderWallet != nil {
		wallet = *p.SenderWallet
	}
	if wallet == "" {
		wallet = o.fallbackWallet
	}
	if wallet == "" {
		o.log.Warn("no sender wallet for reversal",
			zap.Int64("payment_id", p.ID),
			zap.String("event_id", p.EventID))
		return domain.ReversalPatch{Status: domain.ReversalNoSenderInfo}
	}

	// Return what the sender actually sent when a conversion occurred.
	amount := p.Amount
	currency := p.Currency
	if p.OriginalAmount != nil && p.OriginalCurrency != nil {
		amount = *p.OriginalAmount
		currency = *p.OriginalCurrency
	}

	paymentID, err := o.reversals.Reverse(ctx, domain.ReversalRequest{
		WalletAddress: wallet,
		Amount:        amount,
		Currency:      currency,
		EventID:       p.EventID,
		Reason:        "compliance-rejection",
	})
	if err != nil {
		msg := err.Error()
		o.log.Error("reversal payment failed",
			zap.Int64("payment_id", p.ID),
			zap.String("wallet", wallet),
			zap.Error(err))
		return domain.ReversalPatch{Status: domain.ReversalFailed, Error: &msg}
	}

	return domain.ReversalPatch{Status: domain.ReversalCompleted, PaymentID: &paymentID}
}

// recordAudit is best-effort: a failed audit write is logged, never
// propagated, because the ledger work is already committed.
func (o *Orchestrator) recordAudit(ctx context.Context, action string, p *domain.PendingPayment, actor string, details map[string]any) {
	if err := o.audit.Record(ctx, action, "pending_payment", fmt.Sprintf("%d", p.ID), actor, details); err != nil {
		o.log.Error("audit write failed",
			zap.String("action", action),
			zap.Int64("payment_id", p.ID),
			zap.Error(err))
	}
}
