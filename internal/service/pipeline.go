package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/punchamoorthee/paycore/internal/domain"
)

var (
	eventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paycore_webhook_events_total",
		Help: "Webhook events by type and processing outcome",
	}, []string{"type", "outcome"})

	autoDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paycore_auto_decisions_total",
		Help: "Automatic screening decisions",
	}, []string{"decision"})
)

// Result is the typed outcome of one webhook delivery, one field per
// pipeline step, so failures are observable instead of merely logged.
type Result struct {
	EventID      string                 `json:"event_id"`
	Duplicate    bool                   `json:"duplicate"`
	Posted       bool                   `json:"posted"`
	Payment      *domain.PendingPayment `json:"payment,omitempty"`
	Screening    *domain.MatchResult    `json:"screening,omitempty"`
	AutoApproved bool                   `json:"auto_approved"`
}

// Pipeline handles one webhook delivery end to end: dedupe, provisional
// posting, screening, and auto-decision.
type Pipeline struct {
	events     EventStore
	ledger     Ledger
	pending    PendingStore
	screener   *Screener
	rates      *Normalizer
	orch       *Orchestrator
	mirror     Mirror
	thresholds Thresholds
	log        *zap.Logger
}

func NewPipeline(events EventStore, ledger Ledger, pending PendingStore, screener *Screener, rates *Normalizer, orch *Orchestrator, mirror Mirror, thresholds Thresholds, log *zap.Logger) *Pipeline {
	return &Pipeline{
		events:     events,
		ledger:     ledger,
		pending:    pending,
		screener:   screener,
		rates:      rates,
		orch:       orch,
		mirror:     mirror,
		thresholds: thresholds,
		log:        log,
	}
}

// HandleWebhook ingests one delivery. Duplicate deliveries short-circuit
// after the dedupe check; every downstream step runs at most once per
// event id.
func (p *Pipeline) HandleWebhook(ctx context.Context, body []byte) (*Result, error) {
	var env domain.WebhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed envelope: %v", domain.ErrValidation, err)
	}
	if env.ID == "" || env.Type == "" {
		return nil, fmt.Errorf("%w: envelope missing id or type", domain.ErrValidation)
	}

	res := &Result{EventID: env.ID}
	eventType := domain.NormalizeEventType(env.Type)

	ev := &domain.WebhookEvent{ID: env.ID, Type: eventType, Payload: body}
	if err := p.events.IngestEvent(ctx, ev); err != nil {
		if errors.Is(err, domain.ErrDuplicateEvent) {
			res.Duplicate = true
			eventsProcessed.WithLabelValues(eventType, "duplicate").Inc()
			return res, nil
		}
		return nil, err
	}

	if p.mirror != nil {
		if err := p.mirror.Push(ctx, env.ID); err != nil {
			p.log.Warn("event mirror push failed", zap.String("event_id", env.ID), zap.Error(err))
		}
	}

	if !domain.RecognizedEventType(eventType) {
		// Stored for inspection, never posted.
		if err := p.events.MarkEventProcessed(ctx, env.ID); err != nil {
			return nil, err
		}
		eventsProcessed.WithLabelValues(eventType, "unrecognized").Inc()
		p.log.Info("unrecognized event type stored",
			zap.String("event_id", env.ID),
			zap.String("type", env.Type))
		return res, nil
	}

	if eventType != domain.EventIncomingPaymentCompleted {
		if err := p.events.MarkEventProcessed(ctx, env.ID); err != nil {
			return nil, err
		}
		eventsProcessed.WithLabelValues(eventType, "processed").Inc()
		return res, nil
	}

	if err := p.processIncomingPayment(ctx, &env, res); err != nil {
		if markErr := p.events.MarkEventError(ctx, env.ID, err.Error()); markErr != nil {
			p.log.Error("failed to mark event error",
				zap.String("event_id", env.ID), zap.Error(markErr))
		}
		eventsProcessed.WithLabelValues(eventType, "error").Inc()
		return res, err
	}

	if err := p.events.MarkEventProcessed(ctx, env.ID); err != nil {
		return nil, err
	}
	eventsProcessed.WithLabelValues(eventType, "processed").Inc()
	return res, nil
}

func (p *Pipeline) processIncomingPayment(ctx context.Context, env *domain.WebhookEnvelope, res *Result) error {
	wire := env.Data.Amount()
	if wire == nil {
		return fmt.Errorf("%w: incoming payment without amount", domain.ErrValidation)
	}
	amount, err := wire.Decimal()
	if err != nil {
		return err
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: non-positive amount %s", domain.ErrValidation, amount)
	}
	if env.Data.WalletAddressID == "" {
		return fmt.Errorf("%w: incoming payment without walletAddressId", domain.ErrValidation)
	}

	account, err := p.ledger.GetAccountByWalletID(ctx, env.Data.WalletAddressID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return fmt.Errorf("%w: no account for wallet %s", domain.ErrValidation, env.Data.WalletAddressID)
		}
		return err
	}

	// Redelivery of an errored event may re-enter here after the credit
	// already landed; reuse the posted row instead of landing a second one.
	ref := "webhook:" + env.ID
	tx, err := p.ledger.GetTransactionByReference(ctx, ref)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrTxNotFound):
		norm, nerr := p.rates.Normalize(ctx, amount, wire.AssetCode, account.Currency)
		if nerr != nil {
			return nerr
		}
		var conv *domain.Conversion
		if norm.Converted {
			conv = &domain.Conversion{
				OriginalAmount:   amount,
				OriginalCurrency: wire.AssetCode,
				Rate:             norm.Rate,
			}
		}
		tx, err = p.ledger.PostProvisionalCredit(ctx, account.ID, norm.Amount, account.Currency, conv, ref)
		if err != nil {
			return err
		}
	default:
		return err
	}
	res.Posted = true

	payment := &domain.PendingPayment{
		EventID:          env.ID,
		AccountID:        account.ID,
		TransactionID:    tx.ID,
		Amount:           tx.Amount,
		Currency:         tx.Currency,
		OriginalAmount:   tx.OriginalAmount,
		OriginalCurrency: tx.OriginalCurrency,
		ExchangeRate:     tx.ExchangeRate,
	}

	var match domain.MatchResult
	if name, field, ok := ExtractSenderName(env.Data.Metadata); ok {
		payment.SenderName = &name
		match, err = p.screener.Screen(ctx, name)
		if err != nil {
			return fmt.Errorf("screening failed: %w", err)
		}
		if match.Matched {
			p.log.Warn("block-list match",
				zap.String("event_id", env.ID),
				zap.String("name_field", field),
				zap.Bool("exact", match.Exact))
		}
	}
	res.Screening = &match

	if wallet, ok := ExtractSenderWallet(env.Data.Metadata); ok {
		payment.SenderWallet = &wallet
	}

	threshold := p.thresholds.For(account.Currency)
	payment.RiskScore = riskScore(match, payment.Amount, threshold)
	payment.AutoApproveEligible = !match.Matched && payment.Amount.LessThan(threshold)

	if err := p.pending.CreatePendingPayment(ctx, payment); err != nil {
		return err
	}
	res.Payment = payment

	if payment.AutoApproveEligible {
		decided, err := p.orch.Approve(ctx, payment.ID, "auto-screener", "under threshold, no block-list match")
		if err != nil {
			// The payment stays PENDING for manual review; the event itself
			// processed fine.
			p.log.Error("auto-approval failed",
				zap.Int64("payment_id", payment.ID), zap.Error(err))
			return nil
		}
		res.Payment = decided
		res.AutoApproved = true
		autoDecisions.WithLabelValues("approve").Inc()
	}
	return nil
}

// riskScore is a coarse screening signal for reviewers: block-list matches
// dominate, large amounts add weight.
func riskScore(match domain.MatchResult, amount, threshold decimal.Decimal) int {
	score := 10
	if amount.GreaterThanOrEqual(threshold) {
		score += 30
	}
	if match.Matched {
		if match.Exact {
			score += 80
		} else {
			score += 50
		}
	}
	if score > 100 {
		score = 100
	}
	return score
}
