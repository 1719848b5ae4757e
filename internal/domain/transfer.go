package domain

import "errors"

var (
	// ErrInvalidAmount indicates a zero, negative or unparsable amount.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrSelfTransfer indicates that source and destination are the same account.
	ErrSelfTransfer = errors.New("cannot transfer to the same account")
	// ErrFromAccountNotFound indicates that the source account is not found.
	ErrFromAccountNotFound = errors.New("from account not found")
	// ErrToAccountNotFound indicates that the destination account is not found.
	ErrToAccountNotFound = errors.New("to account not found")
	// ErrInsufficientBalance indicates that the source account cannot cover the amount.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrTransferFailed is the fallback result for technical transfer failures.
	ErrTransferFailed = errors.New("transfer failed")
	// ErrOperationFailed is the fallback result for technical failures outside transfers.
	ErrOperationFailed = errors.New("operation failed")
)

// TransferTxResult is the result of a committed transfer transaction.
type TransferTxResult struct {
	FromAccount     Account     `json:"from_account"`
	ToAccount       Account     `json:"to_account"`
	FromTransaction Transaction `json:"from_transaction"`
	ToTransaction   Transaction `json:"to_transaction"`
}

// IsBusinessError reports whether err is a business rejection rather than a
// technical fault. Business rejections are terminal, reported to the caller
// as-is, and never counted against circuit breaker health.
func IsBusinessError(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount,
		ErrSelfTransfer,
		ErrAccountNotFound,
		ErrFromAccountNotFound,
		ErrToAccountNotFound,
		ErrInsufficientBalance,
		ErrAccountExists,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
