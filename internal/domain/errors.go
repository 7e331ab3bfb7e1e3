package domain

import "errors"

var (
	// ErrDuplicateEvent means the event id was already ingested; the caller
	// should acknowledge the delivery and do nothing else.
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrValidation marks a malformed webhook payload.
	ErrValidation = errors.New("validation failed")

	ErrAccountNotFound = errors.New("account not found")
	ErrPaymentNotFound = errors.New("pending payment not found")
	ErrTxNotFound      = errors.New("transaction not found")
	ErrEventNotFound   = errors.New("event not found")

	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrLedgerWrite is fatal to the current webhook's processing; the
	// event is left in error state for redelivery.
	ErrLedgerWrite = errors.New("ledger write failed")

	// ErrReversalNetwork is recorded on the pending payment; it never
	// blocks the rejection decision.
	ErrReversalNetwork = errors.New("reversal network failure")

	// ErrNoSenderInfo means no sender wallet address could be resolved;
	// the rejection proceeds and the reversal is skipped.
	ErrNoSenderInfo = errors.New("no sender wallet info")

	// ErrAlreadyDecided rejects a second decision on a terminal payment.
	ErrAlreadyDecided = errors.New("payment already decided")

	// ErrRateUnavailable means no exchange rate could be resolved for a
	// currency pair.
	ErrRateUnavailable = errors.New("exchange rate unavailable")
)
