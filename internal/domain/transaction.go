package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType tags a ledger entry with the operation that produced it.
type TransactionType string

// Ledger entry types. Amounts are always positive; the type encodes the
// direction of the balance change.
const (
	TypeDeposit     TransactionType = "DEPOSIT"
	TypeWithdrawal  TransactionType = "WITHDRAWAL"
	TypeTransferIn  TransactionType = "TRANSFER_IN"
	TypeTransferOut TransactionType = "TRANSFER_OUT"
)

// Transaction is an immutable ledger entry recording one balance change on
// one account. Rows are only ever appended, never updated or deleted.
type Transaction struct {
	ID           int64           `json:"id"`
	AccountID    int64           `json:"account_id"`
	Amount       decimal.Decimal `json:"amount"`
	Type         TransactionType `json:"type"`
	Description  string          `json:"description"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CreateTransactionParams is the input data to append a ledger entry.
type CreateTransactionParams struct {
	AccountID    int64
	Amount       decimal.Decimal
	Type         TransactionType
	Description  string
	BalanceAfter decimal.Decimal
}
