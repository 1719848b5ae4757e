// Package accountservice manages business logic layer of accounts: account
// creation, reads and the single-account deposit/withdraw operations.
package accountservice

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-corebank/corebank/internal/domain"
	"github.com/go-corebank/corebank/internal/monitoring"
	"github.com/go-corebank/corebank/pkg/breakerpkg"
	"github.com/go-corebank/corebank/pkg/lockpkg"
)

// Repo provides the account data access needed by the service layer.
type Repo interface {
	Create(ctx context.Context, number, holder string, balance decimal.Decimal) (domain.Account, error)
	Get(ctx context.Context, number string) (domain.Account, error)
	SaveBalance(ctx context.Context, number string, balance decimal.Decimal) (domain.Account, error)
	List(ctx context.Context, limit, offset int32) ([]domain.Account, error)
	Count(ctx context.Context) (int64, error)
}

// TransactionRepo appends and lists ledger entries.
type TransactionRepo interface {
	Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error)
	ListByAccount(ctx context.Context, accountID int64, limit int32) ([]domain.Transaction, error)
}

// TxRunner executes units of work against the store.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher hands committed events off for background delivery.
type EventPublisher interface {
	PublishAsync(event domain.Event)
}

// Service facilitates account service layer logic. Writes and reads are
// protected by independent breakers so a failing write path cannot starve
// reads, and the other way round.
type Service struct {
	accounts     Repo
	transactions TransactionRepo
	runner       TxRunner
	locks        lockpkg.Locker
	events       EventPublisher
	writeBreaker *breakerpkg.Breaker
	readBreaker  *breakerpkg.Breaker
	metrics      *monitoring.Metrics
}

// New returns account service struct to manage account business logic.
func New(
	accounts Repo,
	transactions TransactionRepo,
	runner TxRunner,
	locks lockpkg.Locker,
	events EventPublisher,
	writeBreaker, readBreaker *breakerpkg.Breaker,
	metrics *monitoring.Metrics,
) *Service {
	return &Service{
		accounts:     accounts,
		transactions: transactions,
		runner:       runner,
		locks:        locks,
		events:       events,
		writeBreaker: writeBreaker,
		readBreaker:  readBreaker,
		metrics:      metrics,
	}
}

// newAccountNumber derives a fresh opaque account number from the clock.
func newAccountNumber() string {
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}

// Create opens an account for the given holder and returns it.
func (s *Service) Create(ctx context.Context, holder string, initialBalance decimal.Decimal) (domain.Account, error) {
	return breakerpkg.Do(s.writeBreaker,
		func() (domain.Account, error) {
			return s.create(ctx, holder, initialBalance)
		},
		func(err error) (domain.Account, error) {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("create account failed")
			return domain.Account{}, domain.ErrOperationFailed
		},
	)
}

func (s *Service) create(ctx context.Context, holder string, initialBalance decimal.Decimal) (domain.Account, error) {
	if initialBalance.IsNegative() {
		return domain.Account{}, domain.ErrInvalidAmount
	}

	var account domain.Account

	err := s.runner.Run(ctx, func(ctx context.Context) error {
		var err error
		account, err = s.accounts.Create(ctx, newAccountNumber(), holder, initialBalance)
		return err
	})
	if err != nil {
		return domain.Account{}, err
	}

	s.metrics.AccountCreated()

	if count, err := s.accounts.Count(ctx); err == nil {
		s.metrics.SetAccountTotal(count)
	}

	s.events.PublishAsync(domain.NewAccountCreatedEvent(account))

	return account, nil
}

// Deposit credits amount to the account and appends a deposit ledger entry.
func (s *Service) Deposit(ctx context.Context, number string, amount decimal.Decimal) (domain.Transaction, error) {
	return s.mutate(ctx, number, amount, domain.TypeDeposit)
}

// Withdraw debits amount from the account and appends a withdrawal ledger
// entry. Fails with ErrInsufficientBalance when the balance cannot cover it.
func (s *Service) Withdraw(ctx context.Context, number string, amount decimal.Decimal) (domain.Transaction, error) {
	return s.mutate(ctx, number, amount, domain.TypeWithdrawal)
}

func (s *Service) mutate(ctx context.Context, number string, amount decimal.Decimal, transactionType domain.TransactionType) (domain.Transaction, error) {
	return breakerpkg.Do(s.writeBreaker,
		func() (domain.Transaction, error) {
			return s.mutateLocked(ctx, number, amount, transactionType)
		},
		func(err error) (domain.Transaction, error) {
			zerolog.Ctx(ctx).Warn().Err(err).
				Str("account", number).
				Str("type", string(transactionType)).
				Msg("balance mutation failed")

			return domain.Transaction{}, domain.ErrOperationFailed
		},
	)
}

func (s *Service) mutateLocked(ctx context.Context, number string, amount decimal.Decimal, transactionType domain.TransactionType) (domain.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}

	lease, err := s.locks.Acquire(ctx, lockpkg.AccountKey(number))
	if err != nil {
		return domain.Transaction{}, err
	}
	defer lease.Release(ctx)

	var transaction domain.Transaction

	err = s.runner.Run(ctx, func(ctx context.Context) error {
		account, err := s.accounts.Get(ctx, number)
		if err != nil {
			return err
		}

		balance := account.Balance.Add(amount)
		description := fmt.Sprintf("Deposit to %s", number)

		if transactionType == domain.TypeWithdrawal {
			if account.Balance.LessThan(amount) {
				return domain.ErrInsufficientBalance
			}

			balance = account.Balance.Sub(amount)
			description = fmt.Sprintf("Withdrawal from %s", number)
		}

		saved, err := s.accounts.SaveBalance(ctx, number, balance)
		if err != nil {
			return err
		}

		transaction, err = s.transactions.Create(ctx, domain.CreateTransactionParams{
			AccountID:    saved.ID,
			Amount:       amount,
			Type:         transactionType,
			Description:  description,
			BalanceAfter: saved.Balance,
		})

		return err
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	s.metrics.Transaction(string(transaction.Type))
	s.events.PublishAsync(domain.NewTransactionCreatedEvent(transaction))

	return transaction, nil
}

// Get returns the account with the given account number.
func (s *Service) Get(ctx context.Context, number string) (domain.Account, error) {
	return breakerpkg.Do(s.readBreaker,
		func() (domain.Account, error) {
			var account domain.Account

			err := s.runner.ReadOnly(ctx, func(ctx context.Context) error {
				var err error
				account, err = s.accounts.Get(ctx, number)
				return err
			})

			return account, err
		},
		func(err error) (domain.Account, error) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("account", number).Msg("get account failed")
			return domain.Account{}, domain.ErrOperationFailed
		},
	)
}

// History returns the most recent ledger entries of the account.
func (s *Service) History(ctx context.Context, number string, limit int32) ([]domain.Transaction, error) {
	return breakerpkg.Do(s.readBreaker,
		func() ([]domain.Transaction, error) {
			var items []domain.Transaction

			err := s.runner.ReadOnly(ctx, func(ctx context.Context) error {
				account, err := s.accounts.Get(ctx, number)
				if err != nil {
					return err
				}

				items, err = s.transactions.ListByAccount(ctx, account.ID, limit)
				return err
			})

			return items, err
		},
		func(err error) ([]domain.Transaction, error) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("account", number).Msg("get transaction history failed")
			return nil, domain.ErrOperationFailed
		},
	)
}

// List returns the specified page of accounts.
func (s *Service) List(ctx context.Context, limit, offset int32) ([]domain.Account, error) {
	return breakerpkg.Do(s.readBreaker,
		func() ([]domain.Account, error) {
			var items []domain.Account

			err := s.runner.ReadOnly(ctx, func(ctx context.Context) error {
				var err error
				items, err = s.accounts.List(ctx, limit, offset)
				return err
			})

			return items, err
		},
		func(err error) ([]domain.Account, error) {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("list accounts failed")
			return nil, domain.ErrOperationFailed
		},
	)
}
