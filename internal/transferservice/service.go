// Package transferservice coordinates two-account money transfers: ordered
// pair-locking, transactional balance mutation and post-commit event
// publication, all behind a fail-fast circuit breaker.
package transferservice

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-corebank/corebank/internal/domain"
	"github.com/go-corebank/corebank/internal/monitoring"
	"github.com/go-corebank/corebank/pkg/breakerpkg"
	"github.com/go-corebank/corebank/pkg/lockpkg"
)

// AccountRepo provides the account data access needed by the transfer coordinator.
type AccountRepo interface {
	Get(ctx context.Context, number string) (domain.Account, error)
	SaveBalance(ctx context.Context, number string, balance decimal.Decimal) (domain.Account, error)
}

// TransactionRepo appends ledger entries.
type TransactionRepo interface {
	Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error)
}

// TxRunner executes a unit of work with atomicity guarantees.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher hands committed events off for background delivery.
type EventPublisher interface {
	PublishBatchAsync(events []domain.Event)
}

// Service is the transfer coordinator.
type Service struct {
	accounts     AccountRepo
	transactions TransactionRepo
	runner       TxRunner
	locks        lockpkg.Locker
	events       EventPublisher
	breaker      *breakerpkg.Breaker
	metrics      *monitoring.Metrics
}

// New returns the transfer coordinator. The breaker instance is owned by
// this coordinator and must not be shared with other resources.
func New(
	accounts AccountRepo,
	transactions TransactionRepo,
	runner TxRunner,
	locks lockpkg.Locker,
	events EventPublisher,
	breaker *breakerpkg.Breaker,
	metrics *monitoring.Metrics,
) *Service {
	return &Service{
		accounts:     accounts,
		transactions: transactions,
		runner:       runner,
		locks:        locks,
		events:       events,
		breaker:      breaker,
		metrics:      metrics,
	}
}

// Transfer moves amount from one account to another.
//
// Business rejections (invalid amount, self transfer, unknown account,
// insufficient balance) are returned as-is and leave both accounts
// untouched. Technical failures (lock acquisition, store faults) surface as
// ErrTransferFailed through the breaker fallback; the raw cause is logged,
// never returned.
func (s *Service) Transfer(ctx context.Context, from, to string, amount decimal.Decimal) (domain.TransferTxResult, error) {
	return breakerpkg.Do(s.breaker,
		func() (domain.TransferTxResult, error) {
			return s.transfer(ctx, from, to, amount)
		},
		func(err error) (domain.TransferTxResult, error) {
			zerolog.Ctx(ctx).Warn().Err(err).
				Str("from", from).
				Str("to", to).
				Msg("transfer failed")

			return domain.TransferTxResult{}, domain.ErrTransferFailed
		},
	)
}

func (s *Service) transfer(ctx context.Context, from, to string, amount decimal.Decimal) (domain.TransferTxResult, error) {
	l := zerolog.Ctx(ctx)

	// Validated before any lock is taken.
	if amount.LessThanOrEqual(decimal.Zero) {
		l.Info().Str("amount", amount.String()).Msg("rejected transfer amount")
		return domain.TransferTxResult{}, domain.ErrInvalidAmount
	}

	if from == to {
		l.Info().Str("account", from).Msg("rejected self transfer")
		return domain.TransferTxResult{}, domain.ErrSelfTransfer
	}

	lease, err := s.locks.Acquire(ctx, lockpkg.TransferKey(from, to))
	if err != nil {
		return domain.TransferTxResult{}, err
	}
	defer lease.Release(ctx)

	var result domain.TransferTxResult

	err = s.runner.Run(ctx, func(ctx context.Context) error {
		fromAccount, err := s.accounts.Get(ctx, from)
		if err != nil {
			return sideNotFound(err, domain.ErrFromAccountNotFound)
		}

		if fromAccount.Balance.LessThan(amount) {
			return domain.ErrInsufficientBalance
		}

		toAccount, err := s.accounts.Get(ctx, to)
		if err != nil {
			return sideNotFound(err, domain.ErrToAccountNotFound)
		}

		result.FromAccount, err = s.accounts.SaveBalance(ctx, from, fromAccount.Balance.Sub(amount))
		if err != nil {
			return err
		}

		result.ToAccount, err = s.accounts.SaveBalance(ctx, to, toAccount.Balance.Add(amount))
		if err != nil {
			return err
		}

		result.FromTransaction, err = s.transactions.Create(ctx, domain.CreateTransactionParams{
			AccountID:    result.FromAccount.ID,
			Amount:       amount,
			Type:         domain.TypeTransferOut,
			Description:  fmt.Sprintf("Transfer to %s", to),
			BalanceAfter: result.FromAccount.Balance,
		})
		if err != nil {
			return err
		}

		result.ToTransaction, err = s.transactions.Create(ctx, domain.CreateTransactionParams{
			AccountID:    result.ToAccount.ID,
			Amount:       amount,
			Type:         domain.TypeTransferIn,
			Description:  fmt.Sprintf("Transfer from %s", from),
			BalanceAfter: result.ToAccount.Balance,
		})

		return err
	})
	if err != nil {
		return domain.TransferTxResult{}, err
	}

	// Only a committed transfer reaches this point; events are built from
	// the committed rows and delivered off the request path.
	s.metrics.Transaction(string(result.FromTransaction.Type))
	s.metrics.Transaction(string(result.ToTransaction.Type))

	s.events.PublishBatchAsync([]domain.Event{
		domain.NewTransactionCreatedEvent(result.FromTransaction),
		domain.NewTransactionCreatedEvent(result.ToTransaction),
	})

	return result, nil
}

// sideNotFound maps a missing-account error onto the side it occurred on,
// leaving every other error untouched.
func sideNotFound(err, side error) error {
	if err == domain.ErrAccountNotFound {
		return side
	}

	return err
}
