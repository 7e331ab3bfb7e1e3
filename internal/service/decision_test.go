package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/punchamoorthee/paycore/internal/domain"
)

type decisionFixture struct {
	ledger   *fakeLedger
	pending  *fakePendingStore
	audit    *fakeAudit
	reversal *fakeReversalClient
	orch     *Orchestrator
	account  *domain.Account
	payment  *domain.PendingPayment
}

// newDecisionFixture posts a provisional credit and opens a pending payment
// the way the pipeline would.
func newDecisionFixture(t *testing.T, fallbackWallet string, senderWallet *string) *decisionFixture {
	t.Helper()

	ledger := newFakeLedger()
	pending := newFakePendingStore()
	audit := &fakeAudit{}
	reversal := &fakeReversalClient{}

	account := ledger.addAccount(1, "PKR", "wallet-1")

	conv := &domain.Conversion{
		OriginalAmount:   decimal.RequireFromString("50.00"),
		OriginalCurrency: "USD",
		Rate:             decimal.RequireFromString("278.50"),
	}
	tx, err := ledger.PostProvisionalCredit(context.Background(), 1,
		decimal.RequireFromString("13925.00"), "PKR", conv, "webhook:evt-1")
	if err != nil {
		t.Fatal(err)
	}

	payment := &domain.PendingPayment{
		EventID:          "evt-1",
		AccountID:        1,
		TransactionID:    tx.ID,
		Amount:           decimal.RequireFromString("13925.00"),
		Currency:         "PKR",
		OriginalAmount:   &conv.OriginalAmount,
		OriginalCurrency: &conv.OriginalCurrency,
		ExchangeRate:     &conv.Rate,
		SenderWallet:     senderWallet,
	}
	if err := pending.CreatePendingPayment(context.Background(), payment); err != nil {
		t.Fatal(err)
	}

	return &decisionFixture{
		ledger:   ledger,
		pending:  pending,
		audit:    audit,
		reversal: reversal,
		orch:     NewOrchestrator(ledger, pending, audit, reversal, fallbackWallet, zap.NewNop()),
		account:  account,
		payment:  payment,
	}
}

func strptr(s string) *string { return &s }

func TestApproveFinalizesInPlace(t *testing.T) {
	f := newDecisionFixture(t, "", nil)

	p, err := f.orch.Approve(context.Background(), f.payment.ID, "reviewer@bank", "looks fine")
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != domain.PaymentStatusApproved {
		t.Fatalf("status = %s", p.Status)
	}

	tx := f.ledger.txs[p.TransactionID]
	if tx.Type != domain.TxTypeCredit || tx.Status != domain.TxStatusCompleted {
		t.Fatalf("transaction not finalized: %+v", tx)
	}
	// Finalize flips the row; the balance stays as posted.
	if !f.account.BookBalance.Equal(decimal.RequireFromString("13925.00")) {
		t.Fatalf("book balance = %s", f.account.BookBalance)
	}
	if len(f.ledger.txs) != 1 {
		t.Fatalf("finalize inserted extra rows: %d", len(f.ledger.txs))
	}

	if len(f.audit.entries) != 1 || f.audit.entries[0].Action != "payment.approved" {
		t.Fatalf("audit entries: %+v", f.audit.entries)
	}
}

func TestRejectZeroSumAndReversal(t *testing.T) {
	f := newDecisionFixture(t, "", strptr("https://wallet.example.com/alice"))

	p, err := f.orch.Reject(context.Background(), f.payment.ID, "reviewer@bank", "sanctions hit")
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != domain.PaymentStatusRejected {
		t.Fatalf("status = %s", p.Status)
	}

	// Ledger zero-sum: +13925.00 then -13925.00.
	if !f.account.BookBalance.IsZero() || !f.account.AvailableBalance.IsZero() {
		t.Fatalf("balances not restored: book=%s available=%s",
			f.account.BookBalance, f.account.AvailableBalance)
	}

	debits := 0
	for _, tx := range f.ledger.txs {
		if tx.Type == domain.TxTypeDebit {
			debits++
			if !tx.Amount.Equal(decimal.RequireFromString("13925.00")) {
				t.Fatalf("debit amount = %s", tx.Amount)
			}
		}
	}
	if debits != 1 {
		t.Fatalf("compensating debits = %d, want exactly 1", debits)
	}

	// Reversal goes to the sender in the original currency.
	if len(f.reversal.calls) != 1 {
		t.Fatalf("reversal calls = %d", len(f.reversal.calls))
	}
	call := f.reversal.calls[0]
	if call.WalletAddress != "https://wallet.example.com/alice" {
		t.Fatalf("reversal wallet = %s", call.WalletAddress)
	}
	if call.Currency != "USD" || !call.Amount.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("reversal amount = %s %s, want 50.00 USD", call.Amount, call.Currency)
	}

	if p.ReversalStatus != domain.ReversalCompleted {
		t.Fatalf("reversal status = %s", p.ReversalStatus)
	}
	if p.ReversalPaymentID == nil || *p.ReversalPaymentID == "" {
		t.Fatal("reversal payment id not recorded")
	}

	if len(f.audit.entries) != 1 || f.audit.entries[0].Action != "payment.rejected" {
		t.Fatalf("audit entries: %+v", f.audit.entries)
	}
	if f.audit.entries[0].Details["reversal_status"] != domain.ReversalCompleted {
		t.Fatalf("audit details: %+v", f.audit.entries[0].Details)
	}
}

func TestApproveLedgerFailureStaysRetriable(t *testing.T) {
	f := newDecisionFixture(t, "", nil)
	f.ledger.failFinalize = true

	if _, err := f.orch.Approve(context.Background(), f.payment.ID, "reviewer@bank", ""); err == nil {
		t.Fatal("approve should surface the finalize failure")
	}

	// The decision must not stick while the transaction row is still
	// provisional; a retry has to be possible.
	p, err := f.pending.GetPendingPayment(context.Background(), f.payment.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != domain.PaymentStatusPending {
		t.Fatalf("status = %s, want PENDING after failed finalize", p.Status)
	}

	f.ledger.failFinalize = false
	decided, err := f.orch.Approve(context.Background(), f.payment.ID, "reviewer@bank", "")
	if err != nil {
		t.Fatalf("retry after transient ledger failure: %v", err)
	}
	if decided.Status != domain.PaymentStatusApproved {
		t.Fatalf("status = %s", decided.Status)
	}
	tx := f.ledger.txs[decided.TransactionID]
	if tx.Type != domain.TxTypeCredit || tx.Status != domain.TxStatusCompleted {
		t.Fatalf("transaction not finalized on retry: %+v", tx)
	}
}

func TestRejectLedgerFailureStaysRetriable(t *testing.T) {
	f := newDecisionFixture(t, "", strptr("https://wallet.example.com/alice"))
	f.ledger.failReverse = true

	if _, err := f.orch.Reject(context.Background(), f.payment.ID, "reviewer@bank", "fraud"); err == nil {
		t.Fatal("reject should surface the debit failure")
	}

	p, err := f.pending.GetPendingPayment(context.Background(), f.payment.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != domain.PaymentStatusPending {
		t.Fatalf("status = %s, want PENDING after failed debit", p.Status)
	}
	if p.ReversalStatus != domain.ReversalNotAttempted {
		t.Fatalf("reversal status = %s", p.ReversalStatus)
	}
	if len(f.reversal.calls) != 0 {
		t.Fatal("external reversal attempted before the ledger correction landed")
	}
	// The credit stays on the books until the retry succeeds.
	if !f.account.BookBalance.Equal(decimal.RequireFromString("13925.00")) {
		t.Fatalf("book balance = %s", f.account.BookBalance)
	}

	f.ledger.failReverse = false
	decided, err := f.orch.Reject(context.Background(), f.payment.ID, "reviewer@bank", "fraud")
	if err != nil {
		t.Fatalf("retry after transient ledger failure: %v", err)
	}
	if decided.Status != domain.PaymentStatusRejected {
		t.Fatalf("status = %s", decided.Status)
	}
	if !f.account.BookBalance.IsZero() || !f.account.AvailableBalance.IsZero() {
		t.Fatalf("balances not restored on retry: book=%s available=%s",
			f.account.BookBalance, f.account.AvailableBalance)
	}
	debits := 0
	for _, tx := range f.ledger.txs {
		if tx.Type == domain.TxTypeDebit {
			debits++
		}
	}
	if debits != 1 {
		t.Fatalf("compensating debits = %d, want exactly 1", debits)
	}
}

func TestRejectReversalFailureDoesNotBlockRejection(t *testing.T) {
	f := newDecisionFixture(t, "", strptr("https://wallet.example.com/alice"))
	f.reversal.err = errors.New("connection refused")

	p, err := f.orch.Reject(context.Background(), f.payment.ID, "reviewer@bank", "fraud")
	if err != nil {
		t.Fatalf("rejection must not fail on reversal error: %v", err)
	}
	if p.Status != domain.PaymentStatusRejected {
		t.Fatalf("status = %s", p.Status)
	}
	if p.ReversalStatus != domain.ReversalFailed {
		t.Fatalf("reversal status = %s", p.ReversalStatus)
	}
	if p.ReversalError == nil || *p.ReversalError != "connection refused" {
		t.Fatalf("reversal error = %v", p.ReversalError)
	}
	// Ledger correction still landed.
	if !f.account.BookBalance.IsZero() {
		t.Fatalf("book balance = %s, want 0", f.account.BookBalance)
	}
}

func TestRejectNoSenderInfo(t *testing.T) {
	f := newDecisionFixture(t, "", nil)

	p, err := f.orch.Reject(context.Background(), f.payment.ID, "reviewer@bank", "fraud")
	if err != nil {
		t.Fatal(err)
	}
	if p.ReversalStatus != domain.ReversalNoSenderInfo {
		t.Fatalf("reversal status = %s", p.ReversalStatus)
	}
	if len(f.reversal.calls) != 0 {
		t.Fatal("reversal attempted without sender info")
	}
	if p.Status != domain.PaymentStatusRejected {
		t.Fatalf("status = %s", p.Status)
	}
	if !f.account.BookBalance.IsZero() {
		t.Fatalf("book balance = %s, want 0", f.account.BookBalance)
	}
}

func TestRejectFallbackWallet(t *testing.T) {
	f := newDecisionFixture(t, "https://wallet.example.com/ops-recovery", nil)

	p, err := f.orch.Reject(context.Background(), f.payment.ID, "reviewer@bank", "fraud")
	if err != nil {
		t.Fatal(err)
	}
	if len(f.reversal.calls) != 1 {
		t.Fatalf("reversal calls = %d", len(f.reversal.calls))
	}
	if f.reversal.calls[0].WalletAddress != "https://wallet.example.com/ops-recovery" {
		t.Fatalf("reversal wallet = %s", f.reversal.calls[0].WalletAddress)
	}
	if p.ReversalStatus != domain.ReversalCompleted {
		t.Fatalf("reversal status = %s", p.ReversalStatus)
	}
}

func TestDecideTwiceReturnsAlreadyDecided(t *testing.T) {
	f := newDecisionFixture(t, "", strptr("https://wallet.example.com/alice"))

	if _, err := f.orch.Approve(context.Background(), f.payment.ID, "first@bank", ""); err != nil {
		t.Fatal(err)
	}
	balanceAfterFirst := f.account.BookBalance

	_, err := f.orch.Reject(context.Background(), f.payment.ID, "second@bank", "changed my mind")
	if !errors.Is(err, domain.ErrAlreadyDecided) {
		t.Fatalf("err = %v, want ErrAlreadyDecided", err)
	}

	// The first decision's ledger effect is untouched.
	if !f.account.BookBalance.Equal(balanceAfterFirst) {
		t.Fatalf("balance changed by redundant decision: %s", f.account.BookBalance)
	}
	if len(f.reversal.calls) != 0 {
		t.Fatal("redundant decision triggered a reversal")
	}
	p, _ := f.pending.GetPendingPayment(context.Background(), f.payment.ID)
	if p.Status != domain.PaymentStatusApproved || *p.DecidedBy != "first@bank" {
		t.Fatalf("first decision overwritten: %+v", p)
	}
}

func TestDecideUnknownPayment(t *testing.T) {
	f := newDecisionFixture(t, "", nil)

	_, err := f.orch.Approve(context.Background(), 999, "reviewer@bank", "")
	if !errors.Is(err, domain.ErrPaymentNotFound) {
		t.Fatalf("err = %v, want ErrPaymentNotFound", err)
	}
}

func TestAuditFailureSwallowed(t *testing.T) {
	f := newDecisionFixture(t, "", nil)
	f.audit.err = errors.New("audit sink down")

	p, err := f.orch.Approve(context.Background(), f.payment.ID, "reviewer@bank", "")
	if err != nil {
		t.Fatalf("audit failure must not abort approval: %v", err)
	}
	if p.Status != domain.PaymentStatusApproved {
		t.Fatalf("status = %s", p.Status)
	}
}
