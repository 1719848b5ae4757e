package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is a fact that already happened in the system. Every event carries
// a unique identifier and occurrence timestamp so downstream consumers can
// deduplicate at-least-once deliveries.
type Event interface {
	EventID() string
	EventType() string
	OccurredAt() time.Time
}

type eventMeta struct {
	ID   string    `json:"event_id"`
	Time time.Time `json:"occurred_at"`
}

func newEventMeta() eventMeta {
	return eventMeta{ID: uuid.NewString(), Time: time.Now().UTC()}
}

// EventID returns the unique identifier of the event.
func (m eventMeta) EventID() string { return m.ID }

// OccurredAt returns the occurrence timestamp of the event.
func (m eventMeta) OccurredAt() time.Time { return m.Time }

// AccountCreatedEvent is published after an account has been committed.
type AccountCreatedEvent struct {
	eventMeta
	AccountID      int64           `json:"account_id"`
	AccountNumber  string          `json:"account_number"`
	HolderName     string          `json:"holder_name"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

// NewAccountCreatedEvent builds an AccountCreatedEvent for the given account.
func NewAccountCreatedEvent(a Account) AccountCreatedEvent {
	return AccountCreatedEvent{
		eventMeta:      newEventMeta(),
		AccountID:      a.ID,
		AccountNumber:  a.AccountNumber,
		HolderName:     a.HolderName,
		InitialBalance: a.Balance,
	}
}

// EventType returns the event type tag.
func (AccountCreatedEvent) EventType() string { return "AccountCreated" }

// TransactionCreatedEvent is published after a ledger entry has been committed.
type TransactionCreatedEvent struct {
	eventMeta
	TransactionID int64           `json:"transaction_id"`
	AccountID     int64           `json:"account_id"`
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
}

// NewTransactionCreatedEvent builds a TransactionCreatedEvent for the given
// ledger entry. The entry must already be committed; events are never
// published for rolled-back transactions.
func NewTransactionCreatedEvent(t Transaction) TransactionCreatedEvent {
	return TransactionCreatedEvent{
		eventMeta:     newEventMeta(),
		TransactionID: t.ID,
		AccountID:     t.AccountID,
		Type:          t.Type,
		Amount:        t.Amount,
		Description:   t.Description,
		BalanceAfter:  t.BalanceAfter,
	}
}

// EventType returns the event type tag.
func (TransactionCreatedEvent) EventType() string { return "TransactionCreated" }
