package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/punchamoorthee/paycore/internal/domain"
)

const pendingColumns = `id, event_id, account_id, transaction_id, amount, currency,
	original_amount, original_currency, exchange_rate, risk_score, auto_approve_eligible,
	sender_name, sender_wallet, status, decided_by, decision_notes, decided_at,
	reversal_status, reversal_payment_id, reversal_error, created_at`

func scanPending(row pgx.Row) (*domain.PendingPayment, error) {
	var p domain.PendingPayment
	err := row.Scan(&p.ID, &p.EventID, &p.AccountID, &p.TransactionID, &p.Amount,
		&p.Currency, &p.OriginalAmount, &p.OriginalCurrency, &p.ExchangeRate,
		&p.RiskScore, &p.AutoApproveEligible, &p.SenderName, &p.SenderWallet,
		&p.Status, &p.DecidedBy, &p.DecisionNotes, &p.DecidedAt,
		&p.ReversalStatus, &p.ReversalPaymentID, &p.ReversalError, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreatePendingPayment(ctx context.Context, p *domain.PendingPayment) error {
	err := s.Db.QueryRow(ctx,
		`INSERT INTO pending_payments
		 (event_id, account_id, transaction_id, amount, currency, original_amount,
		  original_currency, exchange_rate, risk_score, auto_approve_eligible,
		  sender_name, sender_wallet, status, reversal_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id, created_at`,
		p.EventID, p.AccountID, p.TransactionID, p.Amount, p.Currency,
		p.OriginalAmount, p.OriginalCurrency, p.ExchangeRate,
		p.RiskScore, p.AutoApproveEligible, p.SenderName, p.SenderWallet,
		domain.PaymentStatusPending, domain.ReversalNotAttempted,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("pending payment insert failed: %w", err)
	}
	p.Status = domain.PaymentStatusPending
	p.ReversalStatus = domain.ReversalNotAttempted
	return nil
}

func (s *Store) GetPendingPayment(ctx context.Context, id int64) (*domain.PendingPayment, error) {
	p, err := scanPending(s.Db.QueryRow(ctx,
		"SELECT "+pendingColumns+" FROM pending_payments WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *Store) ListPendingPayments(ctx context.Context, status string, limit int) ([]domain.PendingPayment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.Db.Query(ctx,
		"SELECT "+pendingColumns+" FROM pending_payments WHERE status = $1 ORDER BY created_at ASC LIMIT $2",
		status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PendingPayment
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// DecidePendingPayment moves a payment to a terminal status with a
// compare-and-set on the PENDING state, so concurrent decisions cannot both
// win. The loser gets domain.ErrAlreadyDecided.
func (s *Store) DecidePendingPayment(ctx context.Context, id int64, status, reviewer, notes string) (*domain.PendingPayment, error) {
	p, err := scanPending(s.Db.QueryRow(ctx,
		`UPDATE pending_payments
		 SET status = $2, decided_by = $3, decision_notes = $4, decided_at = NOW()
		 WHERE id = $1 AND status = $5
		 RETURNING `+pendingColumns,
		id, status, reviewer, notes, domain.PaymentStatusPending))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("decision update failed: %w", err)
	}

	// CAS missed: distinguish already-decided from absent.
	var exists bool
	if err := s.Db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pending_payments WHERE id = $1)", id,
	).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrAlreadyDecided
	}
	return nil, domain.ErrPaymentNotFound
}

// RevertDecision returns a payment to PENDING after a decision whose ledger
// work could not be applied, so the decision can be retried.
func (s *Store) RevertDecision(ctx context.Context, id int64) error {
	tag, err := s.Db.Exec(ctx,
		`UPDATE pending_payments
		 SET status = $2, decided_by = NULL, decision_notes = NULL, decided_at = NULL
		 WHERE id = $1`,
		id, domain.PaymentStatusPending)
	if err != nil {
		return fmt.Errorf("decision revert failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

// SetReversalOutcome applies the allow-listed reversal patch. No dynamic
// field lists: the three settable columns are fixed here.
func (s *Store) SetReversalOutcome(ctx context.Context, id int64, patch domain.ReversalPatch) error {
	tag, err := s.Db.Exec(ctx,
		`UPDATE pending_payments
		 SET reversal_status = $2, reversal_payment_id = $3, reversal_error = $4
		 WHERE id = $1`,
		id, patch.Status, patch.PaymentID, patch.Error)
	if err != nil {
		return fmt.Errorf("reversal outcome update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}
