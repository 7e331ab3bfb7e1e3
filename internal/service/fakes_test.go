package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/paycore/internal/domain"
)

type fakeEventStore struct {
	events map[string]*domain.WebhookEvent
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{events: make(map[string]*domain.WebhookEvent)}
}

func (f *fakeEventStore) IngestEvent(ctx context.Context, ev *domain.WebhookEvent) error {
	if existing, ok := f.events[ev.ID]; ok && existing.Status != domain.EventStatusError {
		return domain.ErrDuplicateEvent
	}
	ev.Status = domain.EventStatusReceived
	ev.ReceivedAt = time.Now()
	stored := *ev
	f.events[ev.ID] = &stored
	return nil
}

func (f *fakeEventStore) MarkEventProcessed(ctx context.Context, id string) error {
	f.events[id].Status = domain.EventStatusProcessed
	return nil
}

func (f *fakeEventStore) MarkEventError(ctx context.Context, id, msg string) error {
	f.events[id].Status = domain.EventStatusError
	f.events[id].ErrorMessage = &msg
	return nil
}

func (f *fakeEventStore) GetEvent(ctx context.Context, id string) (*domain.WebhookEvent, error) {
	ev, ok := f.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	return ev, nil
}

type fakeLedger struct {
	accounts map[int64]*domain.Account
	byWallet map[string]int64
	txs      map[int64]*domain.Transaction
	nextTxID int64

	failFinalize bool
	failReverse  bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		accounts: make(map[int64]*domain.Account),
		byWallet: make(map[string]int64),
		txs:      make(map[int64]*domain.Transaction),
	}
}

func (f *fakeLedger) addAccount(id int64, currency, walletID string) *domain.Account {
	a := &domain.Account{
		ID:       id,
		Currency: currency,
		WalletID: &walletID,
		Active:   true,
	}
	f.accounts[id] = a
	f.byWallet[walletID] = id
	return a
}

func (f *fakeLedger) GetAccountByWalletID(ctx context.Context, walletID string) (*domain.Account, error) {
	id, ok := f.byWallet[walletID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return f.accounts[id], nil
}

func (f *fakeLedger) GetTransactionByReference(ctx context.Context, ref string) (*domain.Transaction, error) {
	var found *domain.Transaction
	for _, t := range f.txs {
		if t.Reference == ref && (found == nil || t.ID < found.ID) {
			found = t
		}
	}
	if found == nil {
		return nil, domain.ErrTxNotFound
	}
	return found, nil
}

func (f *fakeLedger) PostProvisionalCredit(ctx context.Context, accountID int64, amount decimal.Decimal, currency string, conv *domain.Conversion, ref string) (*domain.Transaction, error) {
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	a.AvailableBalance = a.AvailableBalance.Add(amount)
	a.BookBalance = a.BookBalance.Add(amount)

	f.nextTxID++
	t := &domain.Transaction{
		ID:           f.nextTxID,
		AccountID:    accountID,
		Type:         domain.TxTypeCreditPending,
		Amount:       amount,
		Currency:     currency,
		BalanceAfter: a.BookBalance,
		Status:       domain.TxStatusPending,
		Reference:    ref,
		CreatedAt:    time.Now(),
	}
	if conv != nil {
		t.OriginalAmount = &conv.OriginalAmount
		t.OriginalCurrency = &conv.OriginalCurrency
		t.ExchangeRate = &conv.Rate
	}
	f.txs[t.ID] = t
	return t, nil
}

func (f *fakeLedger) FinalizeTransaction(ctx context.Context, txID int64) (*domain.Transaction, error) {
	if f.failFinalize {
		return nil, domain.ErrLedgerWrite
	}
	t, ok := f.txs[txID]
	if !ok {
		return nil, domain.ErrTxNotFound
	}
	t.Type = domain.TxTypeCredit
	t.Status = domain.TxStatusCompleted
	return t, nil
}

func (f *fakeLedger) ReverseTransaction(ctx context.Context, txID int64, ref string) (*domain.Transaction, error) {
	if f.failReverse {
		return nil, domain.ErrLedgerWrite
	}
	orig, ok := f.txs[txID]
	if !ok {
		return nil, domain.ErrTxNotFound
	}
	a := f.accounts[orig.AccountID]
	a.AvailableBalance = a.AvailableBalance.Sub(orig.Amount)
	a.BookBalance = a.BookBalance.Sub(orig.Amount)
	orig.Status = domain.TxStatusCompleted

	f.nextTxID++
	debit := &domain.Transaction{
		ID:           f.nextTxID,
		AccountID:    orig.AccountID,
		Type:         domain.TxTypeDebit,
		Amount:       orig.Amount,
		Currency:     orig.Currency,
		BalanceAfter: a.BookBalance,
		Status:       domain.TxStatusCompleted,
		Reference:    ref,
		CreatedAt:    time.Now(),
	}
	f.txs[debit.ID] = debit
	return debit, nil
}

type fakePendingStore struct {
	payments  map[int64]*domain.PendingPayment
	nextID    int64
	createErr error
}

func newFakePendingStore() *fakePendingStore {
	return &fakePendingStore{payments: make(map[int64]*domain.PendingPayment)}
}

func (f *fakePendingStore) CreatePendingPayment(ctx context.Context, p *domain.PendingPayment) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	p.ID = f.nextID
	p.Status = domain.PaymentStatusPending
	p.ReversalStatus = domain.ReversalNotAttempted
	p.CreatedAt = time.Now()
	f.payments[p.ID] = p
	return nil
}

func (f *fakePendingStore) GetPendingPayment(ctx context.Context, id int64) (*domain.PendingPayment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return p, nil
}

func (f *fakePendingStore) DecidePendingPayment(ctx context.Context, id int64, status, reviewer, notes string) (*domain.PendingPayment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	if p.Status != domain.PaymentStatusPending {
		return nil, domain.ErrAlreadyDecided
	}
	now := time.Now()
	p.Status = status
	p.DecidedBy = &reviewer
	p.DecisionNotes = &notes
	p.DecidedAt = &now
	return p, nil
}

func (f *fakePendingStore) RevertDecision(ctx context.Context, id int64) error {
	p, ok := f.payments[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.Status = domain.PaymentStatusPending
	p.DecidedBy = nil
	p.DecisionNotes = nil
	p.DecidedAt = nil
	return nil
}

func (f *fakePendingStore) SetReversalOutcome(ctx context.Context, id int64, patch domain.ReversalPatch) error {
	p, ok := f.payments[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.ReversalStatus = patch.Status
	p.ReversalPaymentID = patch.PaymentID
	p.ReversalError = patch.Error
	return nil
}

type auditRecord struct {
	Action     string
	ResourceID string
	Actor      string
	Details    map[string]any
}

type fakeAudit struct {
	entries []auditRecord
	err     error
}

func (f *fakeAudit) Record(ctx context.Context, action, resourceType, resourceID, actor string, details map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, auditRecord{Action: action, ResourceID: resourceID, Actor: actor, Details: details})
	return nil
}

type fakeReversalClient struct {
	err       error
	paymentID string
	calls     []domain.ReversalRequest
}

func (f *fakeReversalClient) Reverse(ctx context.Context, req domain.ReversalRequest) (string, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	if f.paymentID == "" {
		return "op-rev-1", nil
	}
	return f.paymentID, nil
}

type staticBlockList struct {
	entries []domain.BlockListEntry
}

func (s *staticBlockList) ListActive(ctx context.Context) ([]domain.BlockListEntry, error) {
	var out []domain.BlockListEntry
	for _, e := range s.entries {
		if e.Active {
			out = append(out, e)
		}
	}
	return out, nil
}

type countingRateSource struct {
	rate  decimal.Decimal
	err   error
	calls int
}

func (c *countingRateSource) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	c.calls++
	if c.err != nil {
		return decimal.Zero, c.err
	}
	return c.rate, nil
}
