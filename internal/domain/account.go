// Package domain provides definitions of all entities.
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists indicates that an account with the given number already exists.
	ErrAccountExists = errors.New("account number already exists")
)

// Account holds a holder's balance under a stable account number.
//
// The account number is the public identity of the account; the surrogate
// ID never leaves the store layer except as a foreign key on ledger rows.
type Account struct {
	ID            int64           `json:"id"`
	AccountNumber string          `json:"account_number"`
	HolderName    string          `json:"holder_name"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"created_at"`
}
