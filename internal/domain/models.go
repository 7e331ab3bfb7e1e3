package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event processing statuses.
const (
	EventStatusReceived  = "received"
	EventStatusProcessed = "processed"
	EventStatusError     = "error"
)

// Transaction types and statuses.
const (
	TxTypeCredit        = "CREDIT"
	TxTypeDebit         = "DEBIT"
	TxTypeCreditPending = "CREDIT_PENDING"

	TxStatusPending   = "PENDING"
	TxStatusCompleted = "COMPLETED"
)

// Pending-payment lifecycle. PENDING is the only non-terminal state.
const (
	PaymentStatusPending  = "PENDING"
	PaymentStatusApproved = "APPROVED"
	PaymentStatusRejected = "REJECTED"
)

// Reversal sub-states recorded on a rejected payment.
const (
	ReversalNotAttempted = "NOT_ATTEMPTED"
	ReversalCompleted    = "COMPLETED"
	ReversalFailed       = "FAILED"
	ReversalNoSenderInfo = "NO_SENDER_INFO"
)

// WebhookEvent is the durable record of one notification delivered by the
// payment network. The network-assigned id is the primary key; it is the
// sole dedupe guard for redeliveries.
type WebhookEvent struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Payload      []byte    `json:"payload"`
	Status       string    `json:"status"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	ReceivedAt   time.Time `json:"received_at"`
}

// Account is the ledger view of a customer account. Balances are mutated
// only through the ledger store operations.
type Account struct {
	ID               int64           `json:"id"`
	Currency         string          `json:"currency"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	BookBalance      decimal.Decimal `json:"book_balance"`
	WalletID         *string         `json:"wallet_id,omitempty"`
	WalletAddress    *string         `json:"wallet_address,omitempty"`
	Active           bool            `json:"active"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Conversion carries the pre-conversion amount and the rate applied, so the
// same figures land on both the transaction and the pending payment.
type Conversion struct {
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	OriginalCurrency string          `json:"original_currency"`
	Rate             decimal.Decimal `json:"rate"`
}

// Transaction is one ledger movement. A provisional credit is a single row
// that is later finalized or offset in place; it is never superseded by a
// second credit row for the same event.
type Transaction struct {
	ID               int64            `json:"id"`
	AccountID        int64            `json:"account_id"`
	Type             string           `json:"type"`
	Amount           decimal.Decimal  `json:"amount"`
	Currency         string           `json:"currency"`
	BalanceAfter     decimal.Decimal  `json:"balance_after"`
	OriginalAmount   *decimal.Decimal `json:"original_amount,omitempty"`
	OriginalCurrency *string          `json:"original_currency,omitempty"`
	ExchangeRate     *decimal.Decimal `json:"exchange_rate,omitempty"`
	Status           string           `json:"status"`
	Reference        string           `json:"reference"`
	CreatedAt        time.Time        `json:"created_at"`
}

// PendingPayment tracks one screened incoming payment from provisional
// posting through a terminal decision.
type PendingPayment struct {
	ID                  int64            `json:"id"`
	EventID             string           `json:"event_id"`
	AccountID           int64            `json:"account_id"`
	TransactionID       int64            `json:"transaction_id"`
	Amount              decimal.Decimal  `json:"amount"`
	Currency            string           `json:"currency"`
	OriginalAmount      *decimal.Decimal `json:"original_amount,omitempty"`
	OriginalCurrency    *string          `json:"original_currency,omitempty"`
	ExchangeRate        *decimal.Decimal `json:"exchange_rate,omitempty"`
	RiskScore           int              `json:"risk_score"`
	AutoApproveEligible bool             `json:"auto_approve_eligible"`
	SenderName          *string          `json:"sender_name,omitempty"`
	SenderWallet        *string          `json:"sender_wallet,omitempty"`
	Status              string           `json:"status"`
	DecidedBy           *string          `json:"decided_by,omitempty"`
	DecisionNotes       *string          `json:"decision_notes,omitempty"`
	DecidedAt           *time.Time       `json:"decided_at,omitempty"`
	ReversalStatus      string           `json:"reversal_status"`
	ReversalPaymentID   *string          `json:"reversal_payment_id,omitempty"`
	ReversalError       *string          `json:"reversal_error,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
}

// ReversalPatch is the allow-listed set of fields the orchestrator may set
// after a reversal attempt. Nothing else on a decided payment is writable.
type ReversalPatch struct {
	Status    string
	PaymentID *string
	Error     *string
}

// BlockListEntry is one row of the sanctions/fraud block list. Managed
// externally; read-only here.
type BlockListEntry struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	EntityType string `json:"entity_type"`
	Reason     string `json:"reason"`
	Severity   string `json:"severity"`
	Active     bool   `json:"active"`
}

// MatchResult is the outcome of screening a candidate name.
type MatchResult struct {
	Matched        bool            `json:"matched"`
	Exact          bool            `json:"exact"`
	Entry          *BlockListEntry `json:"entry,omitempty"`
	NormalizedName string          `json:"normalized_name"`
}

// AuditEntry is one append-only record of a decision or outcome.
type AuditEntry struct {
	ID           string         `json:"id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Actor        string         `json:"actor"`
	Details      map[string]any `json:"details,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ReversalRequest describes one reversal to push back to the sender over
// the payment network.
type ReversalRequest struct {
	WalletAddress string
	Amount        decimal.Decimal
	Currency      string
	EventID       string
	Reason        string
}
