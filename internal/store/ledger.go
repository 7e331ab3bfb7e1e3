package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/paycore/internal/domain"
)

const txColumns = `id, account_id, type, amount, currency, balance_after,
	original_amount, original_currency, exchange_rate, status, reference, created_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(&t.ID, &t.AccountID, &t.Type, &t.Amount, &t.Currency,
		&t.BalanceAfter, &t.OriginalAmount, &t.OriginalCurrency, &t.ExchangeRate,
		&t.Status, &t.Reference, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	var a domain.Account
	err := s.Db.QueryRow(ctx,
		`SELECT id, currency, available_balance, book_balance, wallet_id, wallet_address, active, created_at
		 FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Currency, &a.AvailableBalance, &a.BookBalance,
		&a.WalletID, &a.WalletAddress, &a.Active, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetAccountByWalletID resolves the account registered for a payment-network
// wallet id (the walletAddressId carried on incoming-payment events).
func (s *Store) GetAccountByWalletID(ctx context.Context, walletID string) (*domain.Account, error) {
	var a domain.Account
	err := s.Db.QueryRow(ctx,
		`SELECT id, currency, available_balance, book_balance, wallet_id, wallet_address, active, created_at
		 FROM accounts WHERE wallet_id = $1 AND active`, walletID,
	).Scan(&a.ID, &a.Currency, &a.AvailableBalance, &a.BookBalance,
		&a.WalletID, &a.WalletAddress, &a.Active, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetTransactionByReference looks up a ledger row by its reference string.
func (s *Store) GetTransactionByReference(ctx context.Context, ref string) (*domain.Transaction, error) {
	t, err := scanTransaction(s.Db.QueryRow(ctx,
		"SELECT "+txColumns+" FROM transactions WHERE reference = $1 ORDER BY id LIMIT 1", ref))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTxNotFound
		}
		return nil, err
	}
	return t, nil
}

// PostProvisionalCredit increments both balances and inserts the pending
// CREDIT_PENDING transaction row in one database transaction. The account
// row is locked for the duration so concurrent postings cannot lose updates.
func (s *Store) PostProvisionalCredit(ctx context.Context, accountID int64, amount decimal.Decimal, currency string, conv *domain.Conversion, ref string) (*domain.Transaction, error) {
	tx, err := s.Db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("%w: tx begin: %v", domain.ErrLedgerWrite, err)
	}
	defer tx.Rollback(ctx)

	var available, book decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT available_balance, book_balance FROM accounts WHERE id = $1 FOR UPDATE",
		accountID,
	).Scan(&available, &book)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: lock acquisition: %v", domain.ErrLedgerWrite, err)
	}

	newAvailable := available.Add(amount)
	newBook := book.Add(amount)

	_, err = tx.Exec(ctx,
		"UPDATE accounts SET available_balance = $1, book_balance = $2 WHERE id = $3",
		newAvailable, newBook, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: balance update: %v", domain.ErrLedgerWrite, err)
	}

	var origAmount *decimal.Decimal
	var origCurrency *string
	var rate *decimal.Decimal
	if conv != nil {
		origAmount = &conv.OriginalAmount
		origCurrency = &conv.OriginalCurrency
		rate = &conv.Rate
	}

	t, err := scanTransaction(tx.QueryRow(ctx,
		`INSERT INTO transactions
		 (account_id, type, amount, currency, balance_after, original_amount, original_currency, exchange_rate, status, reference)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+txColumns,
		accountID, domain.TxTypeCreditPending, amount, currency, newBook,
		origAmount, origCurrency, rate, domain.TxStatusPending, ref))
	if err != nil {
		return nil, fmt.Errorf("%w: transaction insert: %v", domain.ErrLedgerWrite, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: tx commit: %v", domain.ErrLedgerWrite, err)
	}
	return t, nil
}

// FinalizeTransaction flips the provisional row to a settled CREDIT in
// place. It never inserts a second row for the same event.
func (s *Store) FinalizeTransaction(ctx context.Context, txID int64) (*domain.Transaction, error) {
	t, err := scanTransaction(s.Db.QueryRow(ctx,
		`UPDATE transactions SET type = $2, status = $3
		 WHERE id = $1 AND status = $4
		 RETURNING `+txColumns,
		txID, domain.TxTypeCredit, domain.TxStatusCompleted, domain.TxStatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTxNotFound
		}
		return nil, fmt.Errorf("%w: finalize: %v", domain.ErrLedgerWrite, err)
	}
	return t, nil
}

// ReverseTransaction zeroes out a provisional credit: it decrements both
// balances by the original amount, settles the provisional row, and inserts
// exactly one compensating DEBIT, all inside one database transaction.
func (s *Store) ReverseTransaction(ctx context.Context, txID int64, ref string) (*domain.Transaction, error) {
	tx, err := s.Db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("%w: tx begin: %v", domain.ErrLedgerWrite, err)
	}
	defer tx.Rollback(ctx)

	orig, err := scanTransaction(tx.QueryRow(ctx,
		"SELECT "+txColumns+" FROM transactions WHERE id = $1 FOR UPDATE", txID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTxNotFound
		}
		return nil, fmt.Errorf("%w: load original: %v", domain.ErrLedgerWrite, err)
	}

	var available, book decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT available_balance, book_balance FROM accounts WHERE id = $1 FOR UPDATE",
		orig.AccountID,
	).Scan(&available, &book)
	if err != nil {
		return nil, fmt.Errorf("%w: lock acquisition: %v", domain.ErrLedgerWrite, err)
	}

	newAvailable := available.Sub(orig.Amount)
	newBook := book.Sub(orig.Amount)

	_, err = tx.Exec(ctx,
		"UPDATE accounts SET available_balance = $1, book_balance = $2 WHERE id = $3",
		newAvailable, newBook, orig.AccountID)
	if err != nil {
		return nil, fmt.Errorf("%w: balance update: %v", domain.ErrLedgerWrite, err)
	}

	// The provisional row stays CREDIT_PENDING typed but is settled; the
	// compensating debit carries the net-zero proof.
	_, err = tx.Exec(ctx,
		"UPDATE transactions SET status = $2 WHERE id = $1",
		orig.ID, domain.TxStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("%w: settle original: %v", domain.ErrLedgerWrite, err)
	}

	debit, err := scanTransaction(tx.QueryRow(ctx,
		`INSERT INTO transactions
		 (account_id, type, amount, currency, balance_after, status, reference)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+txColumns,
		orig.AccountID, domain.TxTypeDebit, orig.Amount, orig.Currency,
		newBook, domain.TxStatusCompleted, ref))
	if err != nil {
		return nil, fmt.Errorf("%w: debit insert: %v", domain.ErrLedgerWrite, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: tx commit: %v", domain.ErrLedgerWrite, err)
	}
	return debit, nil
}

// GetAccountTransactions lists an account's ledger history, newest first.
func (s *Store) GetAccountTransactions(ctx context.Context, accountID int64, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Db.Query(ctx,
		"SELECT "+txColumns+" FROM transactions WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2",
		accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
